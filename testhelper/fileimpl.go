// Package testhelper provides a backend.Storage stand-in backed by an
// in-memory buffer, for unit tests that want block-addressable storage
// without touching the host filesystem.
package testhelper

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/go-unixv6/unixv6fs/backend"
)

// MemStorage is a backend.Storage implementation over a growable
// in-memory byte slice, used by package-level tests that need a
// Storage without creating a real host file.
type MemStorage struct {
	buf    []byte
	closed bool
}

// NewMemStorage returns a MemStorage pre-sized to size bytes, all zero.
func NewMemStorage(size int64) *MemStorage {
	return &MemStorage{buf: make([]byte, size)}
}

func (m *MemStorage) grow(need int64) {
	if need <= int64(len(m.buf)) {
		return
	}
	grown := make([]byte, need)
	copy(grown, m.buf)
	m.buf = grown
}

// ReadAt implements io.ReaderAt.
func (m *MemStorage) ReadAt(b []byte, off int64) (int, error) {
	if m.closed {
		return 0, fmt.Errorf("testhelper: read from closed MemStorage")
	}
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(b, m.buf[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (m *MemStorage) WriteAt(b []byte, off int64) (int, error) {
	if m.closed {
		return 0, fmt.Errorf("testhelper: write to closed MemStorage")
	}
	m.grow(off + int64(len(b)))
	n := copy(m.buf[off:], b)
	return n, nil
}

// Read implements fs.File's io.Reader, reading from the start.
func (m *MemStorage) Read(b []byte) (int, error) { return m.ReadAt(b, 0) }

// Seek implements io.Seeker, accepted but not tracked: every Storage
// access in this module goes through ReadAt/WriteAt.
func (m *MemStorage) Seek(offset int64, whence int) (int64, error) { return offset, nil }

// Close marks the storage unusable for further access.
func (m *MemStorage) Close() error {
	m.closed = true
	return nil
}

// Stat returns a minimal fs.FileInfo reporting the buffer's length.
func (m *MemStorage) Stat() (fs.FileInfo, error) {
	return memFileInfo{size: int64(len(m.buf))}, nil
}

// Sys has no OS-backed file descriptor to return.
func (m *MemStorage) Sys() (*os.File, error) {
	return nil, fmt.Errorf("testhelper: MemStorage has no OS file")
}

// Writable returns itself: MemStorage is always read-write.
func (m *MemStorage) Writable() (backend.WritableFile, error) { return m, nil }

type memFileInfo struct{ size int64 }

func (i memFileInfo) Name() string       { return "memstorage" }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() fs.FileMode  { return 0o600 }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() interface{}   { return nil }

var _ backend.Storage = (*MemStorage)(nil)
