// Package image provides utilities for creating and opening the single
// regular host-OS file that backs a mounted unixv6fs filesystem.
//
// An Image carries no partition table: the whole file, from byte 0, is
// the filesystem.
package image

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-unixv6/unixv6fs/backend"
	"github.com/go-unixv6/unixv6fs/backend/file"
)

// Image is a reference to a single disk image file that has been
// Create()'d or Open()'d.
type Image struct {
	Backend backend.Storage
	Path    string
	Size    int64
}

// Create makes a new image file of the given size in bytes and truncates
// it to that size, before a filesystem is formatted onto it.
//
// The file must not already exist.
func Create(path string, size int64) (*Image, error) {
	if path == "" {
		return nil, errors.New("must pass an image path")
	}
	if size <= 0 {
		return nil, errors.New("must pass a valid image size")
	}
	b, err := file.CreateFromPath(path, size)
	if err != nil {
		return nil, fmt.Errorf("creating image %s: %w", path, err)
	}
	return &Image{Backend: b, Path: path, Size: size}, nil
}

// Open opens an existing image file for reading and writing.
func Open(path string) (*Image, error) {
	if path == "" {
		return nil, errors.New("must pass an image path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	b, err := file.OpenFromPath(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	return &Image{Backend: b, Path: path, Size: info.Size()}, nil
}

// Close releases the underlying host file descriptor.
func (i *Image) Close() error {
	if i == nil || i.Backend == nil {
		return nil
	}
	return i.Backend.Close()
}
