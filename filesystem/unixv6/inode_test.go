package unixv6

import (
	"testing"

	"github.com/go-unixv6/unixv6fs/util"
)

func TestInodeEncodeDecodeRoundTrip(t *testing.T) {
	in := &inode{
		flags:  defaultFileFlags,
		nlinks: 1,
		uid:    7,
		gid:    9,
	}
	in.setSize(123456)
	in.addr[0] = 42
	in.addr[AddrCount-1] = 99
	in.acttime = [2]uint16{0x1234, 0x5678}
	in.modtime = [2]uint16{0x9abc, 0xdef0}

	encoded := in.toBytes()
	got, err := inodeFromBytes(encoded)
	if err != nil {
		t.Fatalf("inodeFromBytes: %v", err)
	}
	if *got != *in {
		if different, dump := util.DumpByteSlicesWithDiffs(encoded, got.toBytes(), 16, true, true, false); different {
			t.Logf("encoded inode bytes vs. re-encoded round trip:\n%s", dump)
		}
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, in)
	}
	if got.size() != 123456 {
		t.Fatalf("size() = %d, want 123456", got.size())
	}
}

func TestInodeOffsetLayout(t *testing.T) {
	// Inode 1 starts at the first byte of the inode table; inode 17
	// (one past 16 inodes per 1024-byte block) starts one block later.
	if off := inodeOffset(1); off != FirstInodeBlock*BlockSize {
		t.Fatalf("inodeOffset(1) = %d, want %d", off, FirstInodeBlock*BlockSize)
	}
	perBlock := int64(BlockSize / InodeSize)
	if off := inodeOffset(uint32(perBlock + 1)); off != FirstInodeBlock*BlockSize+BlockSize {
		t.Fatalf("inodeOffset(%d) = %d, want %d", perBlock+1, off, FirstInodeBlock*BlockSize+BlockSize)
	}
}

func TestAppendBlockPromotesToLargeFile(t *testing.T) {
	fsys := newTestImage(t)
	in := &inode{flags: defaultFileFlags}

	// Fill every direct slot first.
	direct := make([]uint32, directAddrCount)
	for i := range direct {
		b, err := fsys.allocBlock()
		if err != nil {
			t.Fatalf("allocBlock (direct %d): %v", i, err)
		}
		direct[i] = b
		if err := fsys.appendBlock(in, b); err != nil {
			t.Fatalf("appendBlock (direct %d): %v", i, err)
		}
		in.setSize(in.size() + BlockSize)
	}
	if in.isLarge() {
		t.Fatalf("inode promoted to large before outgrowing direct addressing")
	}

	// One more block must trigger promotion.
	extra, err := fsys.allocBlock()
	if err != nil {
		t.Fatalf("allocBlock (extra): %v", err)
	}
	if err := fsys.appendBlock(in, extra); err != nil {
		t.Fatalf("appendBlock (promoting): %v", err)
	}
	if !in.isLarge() {
		t.Fatalf("inode was not promoted to large after exceeding direct addressing")
	}

	// Every previously direct block must still resolve via
	// blockForOffset, now through the single-indirect path.
	for i, want := range direct {
		got, err := fsys.blockForOffset(in, uint32(i)*BlockSize)
		if err != nil {
			t.Fatalf("blockForOffset(%d) after promotion: %v", i, err)
		}
		if got != want {
			t.Fatalf("blockForOffset(%d) after promotion = %d, want %d", i, got, want)
		}
	}
	got, err := fsys.blockForOffset(in, uint32(directAddrCount)*BlockSize)
	if err != nil {
		t.Fatalf("blockForOffset(new block): %v", err)
	}
	if got != extra {
		t.Fatalf("blockForOffset(new block) = %d, want %d", got, extra)
	}
}

func TestTruncateAndFreeReturnsAllBlocks(t *testing.T) {
	fsys := newTestImage(t)
	in := &inode{flags: defaultFileFlags}
	var allocated []uint32
	for i := 0; i < directAddrCount; i++ {
		b, err := fsys.allocBlock()
		if err != nil {
			t.Fatalf("allocBlock (%d): %v", i, err)
		}
		allocated = append(allocated, b)
		if err := fsys.appendBlock(in, b); err != nil {
			t.Fatalf("appendBlock (%d): %v", i, err)
		}
		in.setSize(in.size() + BlockSize)
	}

	if err := fsys.truncateAndFree(in); err != nil {
		t.Fatalf("truncateAndFree: %v", err)
	}

	// Every freed block must be allocatable again; collect exactly
	// len(allocated) distinct blocks and confirm they match.
	got := make(map[uint32]bool)
	for i := 0; i < len(allocated); i++ {
		b, err := fsys.allocBlock()
		if err != nil {
			t.Fatalf("re-allocating after truncate (%d): %v", i, err)
		}
		got[b] = true
	}
	for _, b := range allocated {
		if !got[b] {
			t.Fatalf("block %d was not returned to the free list by truncateAndFree", b)
		}
	}
}
