package unixv6

import (
	"bytes"
	"encoding/binary"
)

// dirEntry is the in-memory form of the 32-byte on-disk directory entry
// described in the on-disk format: a 4-byte inode number followed by a
// 28-byte null-padded name. An entry with inode == 0 is a tombstone.
type dirEntry struct {
	inode uint32
	name  string
}

func dirEntryFromBytes(b []byte) dirEntry {
	ino := binary.LittleEndian.Uint32(b[0:4])
	raw := b[4:DirEntrySize]
	n := bytes.IndexByte(raw, 0)
	if n < 0 {
		n = len(raw)
	}
	return dirEntry{inode: ino, name: string(raw[:n])}
}

func (e dirEntry) toBytes() []byte {
	b := make([]byte, DirEntrySize)
	binary.LittleEndian.PutUint32(b[0:4], e.inode)
	copy(b[4:DirEntrySize], e.name)
	return b
}

// isTombstone reports whether this slot has been deleted but not
// reclaimed: tombstones are never reused.
func (e dirEntry) isTombstone() bool { return e.inode == 0 }
