package archive

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPackUnpackSingleFileRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "note.txt")
	if err := os.WriteFile(srcPath, []byte("hello archive"), 0o644); err != nil {
		t.Fatalf("writing source file: %v", err)
	}

	data, name, err := Pack(srcPath)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if name != "note.txt" {
		t.Fatalf("Pack name = %q, want %q", name, "note.txt")
	}

	destDir := t.TempDir()
	n, err := Unpack(data, destDir)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if n != 1 {
		t.Fatalf("Unpack extracted %d entries, want 1", n)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "note.txt"))
	if err != nil {
		t.Fatalf("reading unpacked file: %v", err)
	}
	if string(got) != "hello archive" {
		t.Fatalf("unpacked content = %q, want %q", got, "hello archive")
	}
}

func TestPackUnpackDirectoryTreeRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	root := filepath.Join(srcDir, "project")
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("creating source tree: %v", err)
	}
	files := map[string]string{
		"a.txt":     "top level",
		"sub/b.txt": "nested",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}

	data, name, err := Pack(root)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if name != "project" {
		t.Fatalf("Pack name = %q, want %q", name, "project")
	}

	destDir := t.TempDir()
	if _, err := Unpack(data, destDir); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	for rel, want := range files {
		got, err := os.ReadFile(filepath.Join(destDir, "project", rel))
		if err != nil {
			t.Fatalf("reading unpacked %s: %v", rel, err)
		}
		if string(got) != want {
			t.Fatalf("unpacked %s = %q, want %q", rel, got, want)
		}
	}
}

func TestUnpackRejectsCorruptedData(t *testing.T) {
	if _, err := Unpack([]byte("not gzip data"), t.TempDir()); err == nil {
		t.Fatal("Unpack should reject non-gzip input")
	}
}
