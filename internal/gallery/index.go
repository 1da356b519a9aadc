// Package gallery keeps an append-only index of captured stills so viewers
// can discover them as soon as a capture starts.
package gallery

import (
	"bufio"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IndexFileName is the index file kept inside an album directory.
const IndexFileName = ".photocap-index.jsonl"

// Entry is one registered asset.
type Entry struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	MimeType  string `json:"mime_type"`
	DateAdded int64  `json:"date_added"` // seconds since epoch
	DateTaken int64  `json:"date_taken"` // milliseconds since epoch
}

// Index is a JSONL-backed gallery index.
type Index struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// Open opens (or creates) the index of the album at dir.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating album dir: %w", err)
	}
	path := filepath.Join(dir, IndexFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening gallery index: %w", err)
	}
	return &Index{path: path, file: f}, nil
}

// Register records the asset at path, captured at capturedAt.
func (ix *Index) Register(path string, capturedAt time.Time) error {
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = "image/jpeg"
	}
	entry := Entry{
		ID:        uuid.NewString(),
		Path:      path,
		MimeType:  mt,
		DateAdded: capturedAt.Unix(),
		DateTaken: capturedAt.UnixMilli(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshalling entry: %w", err)
	}
	data = append(data, '\n')

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, err := ix.file.Write(data); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return nil
}

// List returns registered assets that still exist on disk, oldest first.
// An asset registered twice is listed once, with its latest entry.
func (ix *Index) List() ([]Entry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	f, err := os.Open(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening gallery index for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var order []string
	latest := make(map[string]Entry)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // skip malformed lines
		}
		if _, seen := latest[e.Path]; !seen {
			order = append(order, e.Path)
		}
		latest[e.Path] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning gallery index: %w", err)
	}

	entries := make([]Entry, 0, len(order))
	for _, p := range order {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		entries = append(entries, latest[p])
	}
	return entries, nil
}

// Close closes the underlying index file.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.file.Close(); err != nil {
		return fmt.Errorf("closing gallery index: %w", err)
	}
	return nil
}
