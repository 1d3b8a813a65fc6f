package unixv6

// allocInode implements alloc_inode().
func (fs *FileSystem) allocInode() (uint32, error) {
	sb := fs.sb
	if sb.ninode > 0 {
		sb.ninode--
		ino := sb.inode[sb.ninode]
		sb.markDirty()
		fs.log.WithField("inode", ino).Debug("allocated inode from cache")
		return ino, nil
	}

	if err := fs.refillFreeInodes(); err != nil {
		return 0, err
	}
	if sb.ninode == 0 {
		return 0, ErrNoFreeInodes
	}
	sb.ninode--
	ino := sb.inode[sb.ninode]
	sb.markDirty()
	fs.log.WithField("inode", ino).Debug("allocated inode found by scan")
	return ino, nil
}

// refillFreeInodes scans the inode table from inode 2 upward, collecting
// up to MaxFreeInodes inodes whose allocated bit is clear on disk. The
// on-disk allocated bit, not the cache, is the source of truth.
func (fs *FileSystem) refillFreeInodes() error {
	sb := fs.sb
	found := 0
	total := sb.isize * (BlockSize / InodeSize)
	for ino := uint32(firstAllocatableInode); ino <= total && found < MaxFreeInodes; ino++ {
		in, err := fs.readInode(ino)
		if err != nil {
			return err
		}
		if !in.allocated() {
			sb.inode[found] = ino
			found++
		}
	}
	sb.ninode = uint32(found)
	fs.log.WithField("found", found).Debug("rescanned inode table for free inodes")
	return nil
}

// freeInode implements free_inode(ino). If the
// cache has no room, the hint is dropped silently; it will be
// rediscovered by the next scan.
func (fs *FileSystem) freeInode(ino uint32) {
	sb := fs.sb
	if sb.ninode < MaxFreeInodes {
		sb.inode[sb.ninode] = ino
		sb.ninode++
		sb.markDirty()
	}
	fs.log.WithField("inode", ino).Debug("returned inode")
}
