package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadNormalizesBOMAndCRLF(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "mod.fl")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("let a\r\nlet b\r\n")...)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSetWithBase(tmp)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "let a\nlet b\n" {
		t.Fatalf("content not normalized: %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 {
		t.Errorf("expected FileHadBOM")
	}
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Errorf("expected FileNormalizedCRLF")
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("virt.fl", []byte("one\ntwo\nthree\n"))

	start, end := fs.Resolve(Span{File: id, Start: 4, End: 7})
	if start.Line != 2 || start.Col != 1 {
		t.Errorf("start = %d:%d, want 2:1", start.Line, start.Col)
	}
	if end.Line != 2 || end.Col != 4 {
		t.Errorf("end = %d:%d, want 2:4", end.Line, end.Col)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("virt.fl", []byte("one\ntwo\nthree"))
	f := fs.Get(id)

	cases := []struct {
		line uint32
		want string
	}{
		{1, "one"},
		{2, "two"},
		{3, "three"},
		{4, ""},
		{0, ""},
	}
	for _, tc := range cases {
		if got := f.GetLine(tc.line); got != tc.want {
			t.Errorf("GetLine(%d) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestAddComputesDistinctHashes(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("a.fl", []byte("let x"))
	b := fs.AddVirtual("b.fl", []byte("let y"))
	if fs.Get(a).Hash == fs.Get(b).Hash {
		t.Fatalf("different contents must hash differently")
	}

	c := fs.AddVirtual("c.fl", []byte("let x"))
	if fs.Get(a).Hash != fs.Get(c).Hash {
		t.Fatalf("identical contents must hash identically")
	}
}

func TestGetByPath(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "x.fl")
	if err := os.WriteFile(path, []byte("let x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileSetWithBase(tmp)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f, ok := fs.GetByPath(path)
	if !ok {
		t.Fatalf("GetByPath miss for %q", path)
	}
	if f.ID != id {
		t.Errorf("GetByPath returned file %d, want %d", f.ID, id)
	}
}
