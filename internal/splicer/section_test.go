package splicer

import "testing"

func TestMimeType(t *testing.T) {
	cases := map[string]string{
		"m4a":  "audio/mp4",
		".M4A": "audio/mp4",
		"mp3":  "audio/mp3",
		"wav":  "audio/wav",
	}
	for ext, want := range cases {
		if got := MimeType(ext); got != want {
			t.Errorf("MimeType(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestBuildSection(t *testing.T) {
	got := BuildSection("Transcript for a.m4a", "a.m4a", "Hello world.\n")
	want := "# Transcript for a.m4a\n![[a.m4a]]\n\nHello world.\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = BuildSection("Transcript for a.m4a", "a.m4a", "  \n")
	want = "# Transcript for a.m4a\n![[a.m4a]]\n"
	if got != want {
		t.Errorf("empty transcript: got %q, want %q", got, want)
	}
}

func TestRemoveFirstToken(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    string
		removed bool
	}{
		{"plain", "see [[a.m4a]] here", "see  here", true},
		{"embed", "see ![[a.m4a]] here", "see  here", true},
		{"embed preferred over earlier plain", "[[a.m4a]] then ![[a.m4a]]", "[[a.m4a]] then ", true},
		{"only first", "[[a.m4a]][[a.m4a]]", "[[a.m4a]]", true},
		{"absent", "nothing", "nothing", false},
		{"different name", "[[b.m4a]]", "[[b.m4a]]", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := RemoveFirstToken(tt.doc, "a.m4a")
			if got != tt.want || removed != tt.removed {
				t.Errorf("got (%q, %v), want (%q, %v)", got, removed, tt.want, tt.removed)
			}
		})
	}
}

func TestAppendSection(t *testing.T) {
	const sec = "# H\n![[a.m4a]]\n"
	tests := []struct {
		doc, want string
	}{
		{"", sec},
		{"text", "text\n\n" + sec},
		{"text\n", "text\n\n" + sec},
		{"text\n\n", "text\n\n" + sec},
		{"text\n\n\n", "text\n\n\n" + sec},
	}
	for _, tt := range tests {
		if got := AppendSection(tt.doc, sec); got != tt.want {
			t.Errorf("AppendSection(%q) = %q, want %q", tt.doc, got, tt.want)
		}
	}
}

func TestSpliceProtectsTail(t *testing.T) {
	sec := BuildSection("Transcript for a.m4a", "a.m4a", "one")
	doc, protected, removed := Splice("x ![[a.m4a]] y ![[a.m4a]]", 0, "a.m4a", sec)
	if !removed {
		t.Fatal("expected first removal")
	}
	if want := "x  y ![[a.m4a]]\n\n" + sec; doc != want {
		t.Fatalf("first splice = %q, want %q", doc, want)
	}

	sec2 := BuildSection("Transcript for a.m4a", "a.m4a", "two")
	doc, _, removed = Splice(doc, protected, "a.m4a", sec2)
	if !removed {
		t.Fatal("expected second removal")
	}
	want := "x  y \n\n" + sec + "\n" + sec2
	if doc != want {
		t.Errorf("second splice = %q, want %q", doc, want)
	}
}

func TestSpliceNothingLeftToRemove(t *testing.T) {
	sec := BuildSection("Transcript for a.m4a", "a.m4a", "body")
	prev := "intro\n\n" + sec
	doc, _, removed := Splice(prev, len(sec)+2, "a.m4a", sec)
	if removed {
		t.Error("embed inside the protected tail must not be removed")
	}
	if doc != prev+"\n"+sec {
		t.Errorf("doc = %q", doc)
	}
}

func TestSpliceIgnoresBadProtectedLength(t *testing.T) {
	doc, _, removed := Splice("[[a.m4a]]", 99, "a.m4a", "# H\n")
	if !removed || doc != "# H\n" {
		t.Errorf("got (%q, %v)", doc, removed)
	}
}
