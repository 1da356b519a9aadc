package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile_ReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q, want payload", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "img.jpg")
	if err := WriteFile(path, []byte("x"), 0o644); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestTouch_CreatesOnceAndKeepsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	if err := Touch(path); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Touch(path); err != nil {
		t.Fatalf("second Touch: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "data" {
		t.Errorf("Touch truncated existing file: %q", got)
	}
}

func TestRemove_MissingIsNotAnError(t *testing.T) {
	if err := Remove(filepath.Join(t.TempDir(), "ghost.jpg")); err != nil {
		t.Errorf("Remove missing file: %v", err)
	}
}
