package splicer

import (
	"context"
	"path"
	"strings"
	"sync"
)

// Runner serializes batches per note so one process never splices the same
// note from two goroutines at once. Batches on different notes run in
// parallel.
type Runner struct {
	splicer *Splicer

	mu    sync.Mutex
	locks map[string]*noteLock
}

type noteLock struct {
	mu   sync.Mutex
	refs int
}

// NewRunner wraps s.
func NewRunner(s *Splicer) *Runner {
	return &Runner{splicer: s, locks: make(map[string]*noteLock)}
}

// Splicer returns the wrapped splicer.
func (r *Runner) Splicer() *Splicer {
	return r.splicer
}

// Process runs a batch on notePath once no other batch holds the note.
// Waiting for the lock honours ctx.
func (r *Runner) Process(ctx context.Context, notePath string) (*Report, error) {
	var report *Report
	err := r.Do(ctx, notePath, func() error {
		var err error
		report, err = r.splicer.Process(ctx, notePath)
		return err
	})
	return report, err
}

// Do runs fn while holding the lock for notePath. Any other edit of a note
// outside a batch goes through Do so it cannot interleave with one.
func (r *Runner) Do(ctx context.Context, notePath string, fn func() error) error {
	key := lockKey(notePath)
	if key == "" {
		return fn()
	}
	l := r.acquire(key)
	defer r.release(key, l)

	locked := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(locked)
	}()
	select {
	case <-locked:
	case <-ctx.Done():
		// Hand the lock back as soon as the goroutine gets it.
		go func() {
			<-locked
			l.mu.Unlock()
		}()
		return ctx.Err()
	}
	defer l.mu.Unlock()
	return fn()
}

// Busy reports whether a batch is running or queued for notePath.
func (r *Runner) Busy(notePath string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locks[lockKey(notePath)]
	return ok
}

func (r *Runner) acquire(key string) *noteLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &noteLock{}
		r.locks[key] = l
	}
	l.refs++
	return l
}

func (r *Runner) release(key string, l *noteLock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, key)
	}
}

func lockKey(notePath string) string {
	p := strings.TrimSpace(notePath)
	if p == "" {
		return ""
	}
	return path.Clean(p)
}
