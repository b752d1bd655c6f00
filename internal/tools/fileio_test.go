package tools

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "note.txt")

	if err := WriteFile(path, "hello"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestMakeDirIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alex", "projects")

	if err := MakeDir(path); err != nil {
		t.Fatalf("MakeDir: %v", err)
	}
	if err := MakeDir(path); err != nil {
		t.Fatalf("MakeDir (second call): %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected %s to be a directory", path)
	}
}

func TestMoveFileCreatesDestinationParent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.txt")
	if err := WriteFile(src, "payload"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dst := filepath.Join(dir, "archive", "source.txt")

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected source %s to be gone after move", src)
	}
	got, err := ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != "payload" {
		t.Errorf("got %q, want %q", got, "payload")
	}
}

func TestMoveFileMissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	if err := MoveFile(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "out.txt")); err == nil {
		t.Error("expected error moving a nonexistent source")
	}
}
