package unixv6

import (
	"errors"
	"testing"

	"github.com/go-unixv6/unixv6fs/testhelper"
)

func TestAllocBlockDrainsCache(t *testing.T) {
	fsys := newTestImage(t)
	seen := make(map[uint32]bool)
	for {
		b, err := fsys.allocBlock()
		if errors.Is(err, ErrNoFreeBlocks) {
			break
		}
		if err != nil {
			t.Fatalf("allocBlock: %v", err)
		}
		if seen[b] {
			t.Fatalf("block %d allocated twice", b)
		}
		seen[b] = true
	}
	// Data blocks run from dataBlocksStart()+1 (dataBlocksStart() itself
	// is reserved for root) through fsize-1.
	want := int(testFsize-1) - int(fsys.sb.dataBlocksStart())
	if len(seen) != want {
		t.Fatalf("allocated %d distinct blocks, want %d", len(seen), want)
	}
}

func TestFreeBlockThenAllocReturnsSameBlock(t *testing.T) {
	fsys := newTestImage(t)
	b, err := fsys.allocBlock()
	if err != nil {
		t.Fatalf("allocBlock: %v", err)
	}
	if err := fsys.freeBlock(b); err != nil {
		t.Fatalf("freeBlock: %v", err)
	}
	got, err := fsys.allocBlock()
	if err != nil {
		t.Fatalf("allocBlock (2): %v", err)
	}
	if got != b {
		t.Fatalf("allocBlock after free = %d, want %d (LIFO reuse)", got, b)
	}
}

func TestFreeBlockCacheSpillsToLinkBlock(t *testing.T) {
	// The spill writes a link block into one of the freed block numbers
	// below, so the image must be large enough for all of them to be in
	// range; the standard 20-block fixture is not.
	const spillFsize = 1200
	fsys, err := Format(testhelper.NewMemStorage(spillFsize*BlockSize), spillFsize, testNinodes)
	if err != nil {
		t.Fatalf("formatting: %v", err)
	}
	// Empty the seeded free list so the blocks freed below are the only
	// ones on it.
	for {
		_, err := fsys.allocBlock()
		if errors.Is(err, ErrNoFreeBlocks) {
			break
		}
		if err != nil {
			t.Fatalf("draining free list: %v", err)
		}
	}
	// Drive the cache past its MaxFreeBlocks capacity to force a spill
	// into a link block.
	var blocks []uint32
	for i := 0; i < MaxFreeBlocks+5; i++ {
		blocks = append(blocks, uint32(1000+i))
	}
	for _, b := range blocks {
		if err := fsys.freeBlock(b); err != nil {
			t.Fatalf("freeBlock(%d): %v", b, err)
		}
	}
	if fsys.sb.nfree == 0 {
		t.Fatalf("nfree is 0 after spill, want at least the post-spill entry")
	}
	// Popping every freed block back off must recover them all, crossing
	// back over the link-block boundary along the way.
	recovered := make(map[uint32]bool)
	for i := 0; i < len(blocks); i++ {
		b, err := fsys.allocBlock()
		if err != nil {
			t.Fatalf("allocBlock during drain %d: %v", i, err)
		}
		recovered[b] = true
	}
	for _, b := range blocks {
		if !recovered[b] {
			t.Fatalf("block %d was not recovered after cache spill", b)
		}
	}
}
