package unixv6

import "encoding/binary"

// allocBlock implements the free-block allocator's alloc_block().
func (fs *FileSystem) allocBlock() (uint32, error) {
	sb := fs.sb
	if sb.nfree > 1 {
		sb.nfree--
		b := sb.free[sb.nfree]
		sb.markDirty()
		fs.log.WithField("block", b).Debug("allocated block from cache")
		return b, nil
	}

	// nfree == 1: free[0] is either the end-of-chain sentinel (0) or the
	// number of a link block holding the next batch of free blocks.
	if sb.free[0] == 0 {
		return 0, ErrNoFreeBlocks
	}

	linkBlockNo := sb.free[0]
	raw, err := fs.device.readBlock(linkBlockNo)
	if err != nil {
		return 0, err
	}
	nfree := binary.LittleEndian.Uint32(raw[0:4])
	var free [MaxFreeBlocks]uint32
	off := 4
	for i := range free {
		free[i] = binary.LittleEndian.Uint32(raw[off:])
		off += 4
	}
	sb.nfree = nfree
	sb.free = free
	sb.markDirty()
	fs.log.WithField("block", linkBlockNo).Debug("allocated block that was a free-list link")
	return linkBlockNo, nil
}

// freeBlock implements free_block(b).
func (fs *FileSystem) freeBlock(b uint32) error {
	sb := fs.sb
	if sb.nfree < MaxFreeBlocks {
		sb.free[sb.nfree] = b
		sb.nfree++
		sb.markDirty()
		fs.log.WithField("block", b).Debug("returned block to superblock cache")
		return nil
	}

	// The cache is full: spill it into block b as a link block, then
	// start a fresh cache whose sole entry is b.
	raw := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(raw[0:4], sb.nfree)
	off := 4
	for _, v := range sb.free {
		binary.LittleEndian.PutUint32(raw[off:], v)
		off += 4
	}
	if err := fs.device.writeBlock(b, raw); err != nil {
		return err
	}
	sb.nfree = 0
	sb.free[0] = b
	sb.nfree = 1
	sb.markDirty()
	fs.log.WithField("block", b).Debug("spilled free-block cache into link block")
	return nil
}
