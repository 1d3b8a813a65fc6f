package unixv6

import (
	"encoding/binary"
	"fmt"

	"github.com/go-unixv6/unixv6fs/util/timestamp"
)

// superblockSize is the number of bytes the on-disk superblock layout
// actually occupies; it fits comfortably inside one block.
const superblockSize = 4 + 4 + 4 + MaxFreeBlocks*4 + 4 + MaxFreeInodes*4 + 1 + 1 + 1 + 4

// superblock is the in-memory copy of block 1: the free-block cache, the
// free-inode cache, and the size constants of a mounted image. It is the
// single source of truth during a session; it is only persisted to the
// image on flush.
type superblock struct {
	isize uint32 // number of inode blocks
	fsize uint32 // total blocks in the image
	nfree uint32
	free  [MaxFreeBlocks]uint32
	ninode uint32
	inode  [MaxFreeInodes]uint32
	flock  byte // reserved, unused: no concurrent access model
	ilock  byte // reserved, unused: no concurrent access model
	fmod   byte // dirty flag
	time   [2]uint16

	dirty bool
}

// superblockFromBytes decodes a superblock from its 1023 on-disk bytes.
func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) < superblockSize {
		return nil, fmt.Errorf("superblock data too short: %d bytes, need %d", len(b), superblockSize)
	}
	sb := &superblock{}
	off := 0
	sb.isize = binary.LittleEndian.Uint32(b[off:])
	off += 4
	sb.fsize = binary.LittleEndian.Uint32(b[off:])
	off += 4
	sb.nfree = binary.LittleEndian.Uint32(b[off:])
	off += 4
	for i := range sb.free {
		sb.free[i] = binary.LittleEndian.Uint32(b[off:])
		off += 4
	}
	sb.ninode = binary.LittleEndian.Uint32(b[off:])
	off += 4
	for i := range sb.inode {
		sb.inode[i] = binary.LittleEndian.Uint32(b[off:])
		off += 4
	}
	sb.flock = b[off]
	off++
	sb.ilock = b[off]
	off++
	sb.fmod = b[off]
	off++
	sb.time[0] = binary.LittleEndian.Uint16(b[off:])
	off += 2
	sb.time[1] = binary.LittleEndian.Uint16(b[off:])
	off += 2
	return sb, nil
}

// toBytes encodes the superblock back to its on-disk layout.
func (sb *superblock) toBytes() []byte {
	b := make([]byte, BlockSize)
	off := 0
	binary.LittleEndian.PutUint32(b[off:], sb.isize)
	off += 4
	binary.LittleEndian.PutUint32(b[off:], sb.fsize)
	off += 4
	binary.LittleEndian.PutUint32(b[off:], sb.nfree)
	off += 4
	for _, v := range sb.free {
		binary.LittleEndian.PutUint32(b[off:], v)
		off += 4
	}
	binary.LittleEndian.PutUint32(b[off:], sb.ninode)
	off += 4
	for _, v := range sb.inode {
		binary.LittleEndian.PutUint32(b[off:], v)
		off += 4
	}
	b[off] = sb.flock
	off++
	b[off] = sb.ilock
	off++
	b[off] = sb.fmod
	off++
	binary.LittleEndian.PutUint16(b[off:], sb.time[0])
	off += 2
	binary.LittleEndian.PutUint16(b[off:], sb.time[1])
	off += 2
	return b
}

// markDirty sets the in-memory dirty flag and the on-disk fmod byte that
// mirrors it, per the invariant in the on-disk format: after any
// successful mutation, fmod stays 1 until the superblock is flushed.
func (sb *superblock) markDirty() {
	sb.dirty = true
	sb.fmod = 1
}

// stampTime records the current time (honoring SOURCE_DATE_EPOCH, for
// reproducible test fixtures) into the superblock's time field, called
// just before a dirty superblock is written out.
func (sb *superblock) stampTime() {
	u := uint32(timestamp.GetTime().Unix())
	sb.time[0] = uint16(u >> 16)
	sb.time[1] = uint16(u & 0xffff)
}

// dataBlocksStart returns the first data block number, the block
// immediately after the inode table.
func (sb *superblock) dataBlocksStart() uint32 {
	return FirstInodeBlock + sb.isize
}

// inodeBlockCount returns ceil(ninodes / 16), the number of 1024-byte
// blocks needed to hold ninodes 64-byte inodes.
func inodeBlockCount(ninodes uint32) uint32 {
	perBlock := uint32(BlockSize / InodeSize)
	return (ninodes + perBlock - 1) / perBlock
}
