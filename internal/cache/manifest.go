// Package cache manages the process-relative artifact cache directory and a
// msgpack manifest describing the kernels compiled into it.
//
// Kernel ids restart at 0 on every process run and artifacts are named by id,
// not by content, so a run reuses (and overwrites) the paths of the previous
// one. The manifest exists to make leftover artifacts inspectable, not to
// make them safe: staleness across runs is an accepted limitation.
package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Schema version, incremented when the Record format changes.
const manifestSchemaVersion uint16 = 1

// Record stores metadata for one compiled kernel artifact.
type Record struct {
	Schema uint16

	ID       int
	FuncName string

	SourcePath  string
	LibraryPath string

	// SourceHash is the SHA-256 of the written (pre-format) source.
	SourceHash  [sha256.Size]byte
	SourceBytes int64

	CreatedAt time.Time
}

// Manifest persists kernel records under <cachedir>/meta, one msgpack file
// per kernel id. Safe for concurrent use.
type Manifest struct {
	mu  sync.RWMutex
	dir string
}

// OpenManifest initializes the manifest store inside the cache directory.
func OpenManifest(cacheDir string) (*Manifest, error) {
	dir := filepath.Join(cacheDir, "meta")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create manifest dir: %w", err)
	}
	return &Manifest{dir: dir}, nil
}

func (m *Manifest) pathFor(id int) string {
	return filepath.Join(m.dir, fmt.Sprintf("kernel%06d.mp", id))
}

// Put serializes and writes a record, replacing any previous one for the
// same id atomically.
func (m *Manifest) Put(rec *Record) error {
	if m == nil || rec == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Schema = manifestSchemaVersion
	p := m.pathFor(rec.ID)
	f, err := os.CreateTemp(m.dir, "tmp-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	if err := msgpack.NewEncoder(f).Encode(rec); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, p)
}

// Get reads the record for a kernel id. Returns false when absent.
func (m *Manifest) Get(id int, out *Record) (bool, error) {
	if m == nil {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := os.Open(m.pathFor(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != manifestSchemaVersion {
		return false, nil
	}
	return true, nil
}

// Clean removes the whole cache directory: generated sources, libraries and
// the manifest.
func Clean(cacheDir string) error {
	if cacheDir == "" || cacheDir == "/" {
		return fmt.Errorf("refusing to clean cache dir %q", cacheDir)
	}
	if err := os.RemoveAll(cacheDir); err != nil {
		return fmt.Errorf("failed to clean cache dir %q: %w", cacheDir, err)
	}
	return nil
}
