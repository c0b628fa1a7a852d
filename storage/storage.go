// Package storage abstracts the byte-level file capability a layer's
// succinct structures are read from and written to: a minimal
// FileStore/FileLoad surface (spec.md: "Directory or in-memory file
// back-ends: abstracted behind a minimal FileStore/FileLoad
// capability"), so the rest of the module never depends on whether a
// layer lives on disk or only in memory (as it does transiently during
// a builder run or in tests).
package storage

import (
	"errors"
	"io"
)

// ErrNotFound is a sentinel for a file that does not exist. Neither
// DirStore nor MemoryStore returns it: a missing file reads as empty.
var ErrNotFound = errors.New("storage: file does not exist")

// Writer is an append-only handle; SyncAll durably flushes everything
// written so far. Writers are single-writer: concurrent OpenWrite
// calls on the same File are not supported, matching the append-only,
// single-builder-at-a-time write model of a layer build.
type Writer interface {
	io.Writer
	io.Closer
	SyncAll() error
}

// File is one named byte blob: open_write, open_read_from, exists,
// size, map, in spec.md's terms.
type File interface {
	// Exists reports whether the file has ever been written to.
	Exists() bool
	// Size returns the current length in bytes.
	Size() (int64, error)
	// Map returns a contiguous view of the whole file's bytes. Callers
	// must not retain it past a subsequent write to the same File.
	Map() ([]byte, error)
	// OpenWrite returns an append-only writer positioned at the
	// current end of the file.
	OpenWrite() (Writer, error)
	// OpenReadFrom opens a read cursor starting at the given byte offset.
	OpenReadFrom(offset int64) (io.ReadCloser, error)
}

// Store resolves named files within one layer's namespace (a
// directory, or a virtual prefix for the in-memory backend).
type Store interface {
	// GetFile returns the File handle for name, creating no bytes
	// until the caller writes to it.
	GetFile(name string) File
}

// SubStore is implemented by backends that can carve out an isolated
// child namespace by name: the store package's "one directory per
// layer" convention (spec.md §6), keyed on a layer id's hex form.
type SubStore interface {
	Sub(name string) (Store, error)
}
