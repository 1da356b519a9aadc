package gallery

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestIndex_RegisterAndList(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	path := filepath.Join(dir, "img_1700000000123.jpg")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	at := time.UnixMilli(1700000000123)
	if err := ix.Register(path, at); err != nil {
		t.Fatalf("Register: %v", err)
	}

	entries, err := ix.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Path != path {
		t.Errorf("path = %q, want %q", e.Path, path)
	}
	if e.MimeType != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", e.MimeType)
	}
	if e.DateAdded != 1700000000 || e.DateTaken != 1700000000123 {
		t.Errorf("dates = %d/%d, want 1700000000/1700000000123", e.DateAdded, e.DateTaken)
	}
	if e.ID == "" {
		t.Error("entry ID should be set")
	}
}

func TestIndex_ListSkipsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	kept := filepath.Join(dir, "kept.jpg")
	gone := filepath.Join(dir, "gone.jpg")
	for _, p := range []string{kept, gone} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := ix.Register(p, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	entries, err := ix.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Path != kept {
		t.Errorf("entries = %+v, want only %s", entries, kept)
	}
}

func TestIndex_DuplicateRegistrationListedOnce(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	p := filepath.Join(dir, "img.jpg")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_ = ix.Register(p, time.UnixMilli(1))
	_ = ix.Register(p, time.UnixMilli(2))

	entries, _ := ix.List()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].DateTaken != 2 {
		t.Errorf("DateTaken = %d, want latest (2)", entries[0].DateTaken)
	}
}

func TestIndex_ConcurrentRegister(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := filepath.Join(dir, "img_"+time.UnixMilli(int64(i)).Format("150405.000")+".jpg")
			_ = os.WriteFile(p, nil, 0o644)
			if err := ix.Register(p, time.UnixMilli(int64(i))); err != nil {
				t.Errorf("Register: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := ix.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 20 {
		t.Errorf("entries = %d, want 20", len(entries))
	}
}

func TestIndex_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, IndexFileName), []byte("{not json\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ix, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	entries, err := ix.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}
