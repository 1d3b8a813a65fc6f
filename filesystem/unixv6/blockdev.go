package unixv6

import (
	"fmt"

	"github.com/go-unixv6/unixv6fs/backend"
)

// blockDevice is the bottom layer of the stack: a random-access store of
// fsize fixed-size blocks, addressed by block number, backed by a single
// open host file. It knows nothing about superblocks, inodes, or
// directories — only byte-for-byte transfer at block granularity.
type blockDevice struct {
	backend backend.Storage
	fsize   uint32
}

func newBlockDevice(b backend.Storage, fsize uint32) *blockDevice {
	return &blockDevice{backend: b, fsize: fsize}
}

func (d *blockDevice) checkBounds(n uint32, offset, length int) error {
	if n >= d.fsize {
		return fmt.Errorf("block %d out of range (fsize %d)", n, d.fsize)
	}
	if offset < 0 || length < 0 || offset+length > BlockSize {
		return fmt.Errorf("block %d: offset %d length %d exceeds block size %d", n, offset, length, BlockSize)
	}
	return nil
}

// readAt reads length bytes at offset within block n into out.
func (d *blockDevice) readAt(n uint32, offset, length int, out []byte) error {
	if err := d.checkBounds(n, offset, length); err != nil {
		return err
	}
	pos := int64(n)*BlockSize + int64(offset)
	if _, err := d.backend.ReadAt(out[:length], pos); err != nil {
		return fmt.Errorf("reading block %d: %w", n, err)
	}
	return nil
}

// writeAt writes length bytes at offset within block n from in.
func (d *blockDevice) writeAt(n uint32, offset, length int, in []byte) error {
	if err := d.checkBounds(n, offset, length); err != nil {
		return err
	}
	w, err := d.backend.Writable()
	if err != nil {
		return fmt.Errorf("writing block %d: %w", n, err)
	}
	pos := int64(n)*BlockSize + int64(offset)
	if _, err := w.WriteAt(in[:length], pos); err != nil {
		return fmt.Errorf("writing block %d: %w", n, err)
	}
	return nil
}

// readBlock reads the entire contents of block n.
func (d *blockDevice) readBlock(n uint32) ([]byte, error) {
	out := make([]byte, BlockSize)
	if err := d.readAt(n, 0, BlockSize, out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeBlock overwrites the entire contents of block n.
func (d *blockDevice) writeBlock(n uint32, in []byte) error {
	buf := make([]byte, BlockSize)
	copy(buf, in)
	return d.writeAt(n, 0, BlockSize, buf)
}

// zeroBlock writes a block of all zero bytes, used when wiring in a
// freshly allocated indirect block or directory block.
func (d *blockDevice) zeroBlock(n uint32) error {
	return d.writeBlock(n, make([]byte, BlockSize))
}
