package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/vaultscribe/internal/storage"
)

// watcherTestEnv sets up a vault dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, *storage.FS, *DB) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) record(kind, path string) {
	l.mu.Lock()
	l.events = append(l.events, kind+":"+path)
	l.mu.Unlock()
}

func (l *eventLog) has(e string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.events {
		if got == e {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, db *DB, store *storage.FS, log *eventLog) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, store, quietLogger(), log.record)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewAudioIndexed(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	log := &eventLog{}
	startWatcher(t, db, store, log)

	_ = os.WriteFile(filepath.Join(vaultDir, "memo.m4a"), []byte("audio"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok, _ := db.Lookup("memo.m4a")
		return ok
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:memo.m4a")
	}, "expected created event")
}

func TestWatcher_NewDirIndexed(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	log := &eventLog{}
	startWatcher(t, db, store, log)

	dir := filepath.Join(vaultDir, "recordings")
	_ = os.MkdirAll(dir, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(dir, "call.m4a"), []byte("audio"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok, _ := db.Lookup("recordings/call.m4a")
		return ok
	}, "file in new dir not indexed")
}

func TestWatcher_RemoveDeletesRow(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = store.Write("old.m4a", []byte("x"))
	if _, err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	log := &eventLog{}
	startWatcher(t, db, store, log)

	_ = os.Remove(filepath.Join(vaultDir, "old.m4a"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok, _ := db.Lookup("old.m4a")
		return !ok
	}, "removed file still indexed")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	_ = store.Write("before.m4a", []byte("x"))
	if _, err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	log := &eventLog{}
	startWatcher(t, db, store, log)

	_ = os.Rename(filepath.Join(vaultDir, "before.m4a"), filepath.Join(vaultDir, "after.m4a"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, oldOK, _ := db.Lookup("before.m4a")
		_, newOK, _ := db.Lookup("after.m4a")
		return !oldOK && newOK
	}, "rename not reconciled")
}
