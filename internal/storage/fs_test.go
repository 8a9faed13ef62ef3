package storage

import (
	"testing"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempStore(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete_MissingIsNotAnError(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("del.md"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestSafePath_RejectsTraversal(t *testing.T) {
	s := tempStore(t)
	for _, p := range []string{"../outside.md", "a/../../outside.md", "/etc/passwd"} {
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("Write(%q) should be rejected", p)
		}
	}
}

func TestList_SkipsHiddenAndForeign(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.markdown", []byte("b"))
	_ = s.Write("secret.enc.json", []byte("{}"))
	_ = s.Write("img.png", []byte{1, 2, 3})
	_ = s.Write(".hidden/c.md", []byte("c"))
	_ = s.Write("sub/.draft.md", []byte("d"))

	infos, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := make(map[string]bool, len(infos))
	for _, fi := range infos {
		got[fi.Path] = fi.Sidecar
	}
	if len(got) != 3 {
		t.Fatalf("List returned %v, want 3 entries", got)
	}
	if sc, ok := got["secret.enc.json"]; !ok || !sc {
		t.Errorf("sidecar not flagged: %v", got)
	}
	if _, ok := got[".hidden/c.md"]; ok {
		t.Error("hidden dir contents should be skipped")
	}
	if _, ok := got["sub/.draft.md"]; ok {
		t.Error("hidden file should be skipped")
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden(".obsidian/workspace.md") || !IsHidden("a/.b/c.md") {
		t.Error("hidden segments not detected")
	}
	if IsHidden("a/b.md") {
		t.Error("plain path flagged hidden")
	}
}
