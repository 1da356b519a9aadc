// Package storage decides where captured stills are written.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cjeanneret/photocap/internal/debug"
)

// ErrStorageUnavailable is matched by every error Resolve returns.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Error reports a directory that could not be prepared.
type Error struct {
	Dir string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage unavailable: %s: %v", e.Dir, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrStorageUnavailable }

// Resolver maps an album name and a capture time to a writable file path
// under Root.
type Resolver struct {
	Root   string
	Prefix string // defaults to "img_"
	Ext    string // defaults to ".jpg"
}

// NewResolver returns a resolver rooted at root.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root, Prefix: "img_", Ext: ".jpg"}
}

// AlbumDir returns the absolute directory for album without creating it.
func (r *Resolver) AlbumDir(album string) (string, error) {
	if album == "" || album == "." || album == ".." || strings.ContainsAny(album, `/\`) {
		return "", &Error{Dir: album, Err: fmt.Errorf("invalid album name %q", album)}
	}
	dir, err := filepath.Abs(filepath.Join(r.Root, album))
	if err != nil {
		return "", &Error{Dir: album, Err: err}
	}
	return dir, nil
}

// Resolve ensures the album directory exists and is writable, then returns
// the path for a capture taken at at. The file name carries the capture time
// in milliseconds; collisions are not retried.
func (r *Resolver) Resolve(album string, at time.Time) (string, error) {
	dir, err := r.AlbumDir(album)
	if err != nil {
		return "", err
	}

	// MkdirAll tolerates concurrent callers creating the same tree.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &Error{Dir: dir, Err: err}
	}
	if err := checkWritable(dir); err != nil {
		return "", &Error{Dir: dir, Err: err}
	}

	prefix, ext := r.Prefix, r.Ext
	if prefix == "" {
		prefix = "img_"
	}
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s%d%s", prefix, at.UnixMilli(), ext))
	debug.Verbose("Storage: resolved %s", path)
	return path, nil
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
