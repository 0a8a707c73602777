package parser

import (
	"testing"
)

func TestExtractAudioLinks_NoLinks(t *testing.T) {
	refs := ExtractAudioLinks("# Title\nJust text, a [[Note]] and ![[image.png]].\n", DefaultExtensions)
	if len(refs) != 0 {
		t.Fatalf("expected no references, got %v", refs)
	}
}

func TestExtractAudioLinks_EmbedAndPlain(t *testing.T) {
	doc := "Voice memo ![[memo.m4a]] and later [[rec/2024/call.M4A]].\n"
	refs := ExtractAudioLinks(doc, DefaultExtensions)
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2", len(refs))
	}
	if refs[0].Raw != "memo.m4a" || !refs[0].Embed {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].Raw != "rec/2024/call.M4A" || refs[1].Embed {
		t.Errorf("refs[1] = %+v", refs[1])
	}
	if refs[0].Offset != 11 {
		t.Errorf("refs[0].Offset = %d, want 11", refs[0].Offset)
	}
	if doc[refs[1].Offset:refs[1].Offset+len(refs[1].Token())] != refs[1].Token() {
		t.Errorf("offset %d does not point at %q", refs[1].Offset, refs[1].Token())
	}
}

func TestExtractAudioLinks_DuplicatesKept(t *testing.T) {
	refs := ExtractAudioLinks("[[a.m4a]] text [[a.m4a]]", DefaultExtensions)
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2", len(refs))
	}
	if refs[0].Raw != refs[1].Raw {
		t.Errorf("refs = %v", refs)
	}
}

func TestExtractAudioLinks_ConfigurableExtensions(t *testing.T) {
	doc := "[[a.m4a]] [[b.mp3]] [[c.wav]] [[d.ogg]]"
	refs := ExtractAudioLinks(doc, []string{".MP3", "wav", " "})
	if len(refs) != 2 || refs[0].Raw != "b.mp3" || refs[1].Raw != "c.wav" {
		t.Errorf("refs = %v", refs)
	}
	if got := ExtractAudioLinks(doc, nil); len(got) != 0 {
		t.Errorf("empty allow-list should match nothing, got %v", got)
	}
}

func TestExtractAudioLinks_Malformed(t *testing.T) {
	cases := []string{
		"[[]]",
		"[[a.m4a]",
		"[[a.m4a",
		"[a.m4a]]",
		"[[a\n.m4a]]",
		"[[a.m4a] ]",
	}
	for _, doc := range cases {
		if refs := ExtractAudioLinks(doc, DefaultExtensions); len(refs) != 0 {
			t.Errorf("doc %q: expected no references, got %v", doc, refs)
		}
	}
}

func TestExtractAudioLinks_LeftmostMatch(t *testing.T) {
	refs := ExtractAudioLinks("x [[[a.m4a]] y", DefaultExtensions)
	if len(refs) != 1 || refs[0].Raw != "[a.m4a" {
		t.Errorf("refs = %v", refs)
	}

	refs = ExtractAudioLinks("[[broken] [[ok.m4a]]", DefaultExtensions)
	if len(refs) != 1 || refs[0].Raw != "ok.m4a" {
		t.Errorf("refs = %v", refs)
	}
}

func TestExtractAudioLinks_AliasIsNotAudio(t *testing.T) {
	refs := ExtractAudioLinks("[[a.m4a|my memo]]", DefaultExtensions)
	if len(refs) != 0 {
		t.Errorf("aliased link should not end with an audio extension, got %v", refs)
	}
}

func TestReference_Derived(t *testing.T) {
	r := Reference{Raw: "folder/Sub/Clip.Final.M4A"}
	if r.Basename() != "Clip.Final.M4A" {
		t.Errorf("Basename = %q", r.Basename())
	}
	if r.Ext() != "m4a" {
		t.Errorf("Ext = %q", r.Ext())
	}
	if (Reference{Raw: "noext"}).Ext() != "" {
		t.Error("expected empty extension")
	}
	if got := (Reference{Raw: "a.m4a", Embed: true}).Token(); got != "![[a.m4a]]" {
		t.Errorf("Token = %q", got)
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"M4A", ".m4a", "", "..Wav"})
	if len(got) != 2 || got[0] != "m4a" || got[1] != "wav" {
		t.Errorf("got %v", got)
	}
}
