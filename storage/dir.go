package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
)

// DirStore is a directory-backed Store: each named file is a plain
// regular file under dir, written append-only and durably flushed via
// fsync, matching spec.md's "Writers are append-only and have
// sync_all that durably flushes."
type DirStore struct {
	dir string
}

// NewDirStore returns a Store rooted at dir. dir is not created here;
// it must already exist.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Sub returns a Store rooted at a subdirectory of s, creating it if
// necessary: the store package's per-layer namespace (spec.md's "one
// directory per layer").
func (s *DirStore) Sub(name string) (Store, error) {
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", path, err)
	}
	return NewDirStore(path), nil
}

// GetFile returns the File for name.
func (s *DirStore) GetFile(name string) File {
	return &dirFile{path: filepath.Join(s.dir, name)}
}

type dirFile struct {
	path string
}

func (f *dirFile) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

func (f *dirFile) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("storage: stat %s: %w", f.path, err)
	}
	return info.Size(), nil
}

// Map reads the whole file through an mmap(2) mapping and returns a
// copy of its bytes as one contiguous slice; the mapping is released
// before Map returns, so the result is not a live view of the file.
func (f *dirFile) Map() ([]byte, error) {
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}

	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", f.path, err)
	}
	defer fh.Close()

	m, err := mmap.Map(fh, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("storage: mmap %s: %w", f.path, err)
	}
	out := make([]byte, len(m))
	copy(out, m)
	if err := m.Unmap(); err != nil {
		return nil, fmt.Errorf("storage: unmap %s: %w", f.path, err)
	}
	return out, nil
}

func (f *dirFile) OpenWrite() (Writer, error) {
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s for write: %w", f.path, err)
	}
	return &dirWriter{fh: fh}, nil
}

func (f *dirFile) OpenReadFrom(offset int64) (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s for read: %w", f.path, err)
	}
	if _, err := fh.Seek(offset, io.SeekStart); err != nil {
		fh.Close()
		return nil, fmt.Errorf("storage: seek %s to %d: %w", f.path, offset, err)
	}
	return fh, nil
}

type dirWriter struct {
	fh *os.File
}

func (w *dirWriter) Write(p []byte) (int, error) { return w.fh.Write(p) }

func (w *dirWriter) Close() error { return w.fh.Close() }

func (w *dirWriter) SyncAll() error {
	return w.fh.Sync()
}
