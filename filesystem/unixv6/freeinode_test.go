package unixv6

import "testing"

func TestAllocInodeUsesSeededCache(t *testing.T) {
	fsys := newTestImage(t)
	seen := make(map[uint32]bool)
	// testNinodes=16, inode 1 is root, so 15 inodes (2..16) are
	// allocatable and all fit inside MaxFreeInodes without a rescan.
	// Each one is persisted as allocated immediately, the way every
	// real caller (Cpin, makeDir) does, so a later rescan does not see
	// them as free again.
	for i := 0; i < testNinodes-1; i++ {
		ino, err := fsys.allocInode()
		if err != nil {
			t.Fatalf("allocInode (%d): %v", i, err)
		}
		if ino == RootInode {
			t.Fatalf("allocInode returned the reserved root inode")
		}
		if seen[ino] {
			t.Fatalf("inode %d allocated twice", ino)
		}
		seen[ino] = true
		if err := fsys.writeInode(ino, &inode{flags: defaultFileFlags}); err != nil {
			t.Fatalf("persisting inode %d as allocated: %v", ino, err)
		}
	}
	if _, err := fsys.allocInode(); err != ErrNoFreeInodes {
		t.Fatalf("allocInode past exhaustion = %v, want ErrNoFreeInodes", err)
	}
}

func TestFreeInodeThenAllocReusesIt(t *testing.T) {
	fsys := newTestImage(t)
	ino, err := fsys.allocInode()
	if err != nil {
		t.Fatalf("allocInode: %v", err)
	}
	fsys.freeInode(ino)
	got, err := fsys.allocInode()
	if err != nil {
		t.Fatalf("allocInode (2): %v", err)
	}
	if got != ino {
		t.Fatalf("allocInode after free = %d, want %d", got, ino)
	}
}

func TestRefillFreeInodesScansOnDiskAllocatedBit(t *testing.T) {
	fsys := newTestImage(t)
	// Drain the seeded cache entirely, persisting every allocation so
	// the rescan below sees true on-disk state rather than handing the
	// same numbers out again.
	for {
		ino, err := fsys.allocInode()
		if err == ErrNoFreeInodes {
			break
		}
		if err != nil {
			t.Fatalf("draining cache: %v", err)
		}
		if err := fsys.writeInode(ino, &inode{flags: defaultFileFlags}); err != nil {
			t.Fatalf("persisting inode %d as allocated: %v", ino, err)
		}
	}
	// Directly free one inode's on-disk allocated bit without touching
	// the in-memory cache, the way removeFile does before freeInode.
	target := uint32(5)
	if err := fsys.writeInode(target, &inode{}); err != nil {
		t.Fatalf("clearing inode %d: %v", target, err)
	}
	fsys.sb.ninode = 0 // force refillFreeInodes to actually scan

	ino, err := fsys.allocInode()
	if err != nil {
		t.Fatalf("allocInode after rescan: %v", err)
	}
	if ino != target {
		t.Fatalf("allocInode after rescan = %d, want %d", ino, target)
	}
}
