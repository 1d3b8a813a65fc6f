package unixv6

import "fmt"

// DirEntryKind distinguishes a directory entry's target.
type DirEntryKind int

const (
	// KindFile marks a directory entry pointing at a regular file.
	KindFile DirEntryKind = iota
	// KindDir marks a directory entry pointing at a subdirectory.
	KindDir
)

// DirListing is one live entry returned by list().
type DirListing struct {
	Name  string
	Inode uint32
	Kind  DirEntryKind
	Size  uint32
}

// readEntryAt reads the 32-byte directory entry at logical offset off
// within dir's data stream.
func (fs *FileSystem) readEntryAt(dir *inode, off uint32) (dirEntry, uint32, error) {
	block, err := fs.blockForOffset(dir, off)
	if err != nil {
		return dirEntry{}, 0, err
	}
	if block == 0 {
		return dirEntry{}, 0, fmt.Errorf("directory entry at offset %d has no backing block", off)
	}
	buf := make([]byte, DirEntrySize)
	if err := fs.device.readAt(block, int(off%BlockSize), DirEntrySize, buf); err != nil {
		return dirEntry{}, 0, err
	}
	return dirEntryFromBytes(buf), block, nil
}

// writeEntryAt overwrites the 32-byte directory entry at logical offset
// off within dir's data stream.
func (fs *FileSystem) writeEntryAt(dir *inode, off uint32, e dirEntry) error {
	block, err := fs.blockForOffset(dir, off)
	if err != nil {
		return err
	}
	if block == 0 {
		return fmt.Errorf("directory entry at offset %d has no backing block", off)
	}
	return fs.device.writeAt(block, int(off%BlockSize), DirEntrySize, e.toBytes())
}

// list streams a directory's contents 32 bytes at a time, skipping
// tombstones.
func (fs *FileSystem) list(dirIno uint32) ([]DirListing, error) {
	dir, err := fs.readInode(dirIno)
	if err != nil {
		return nil, err
	}
	if !dir.isDir() {
		return nil, ErrNotADirectory
	}
	var out []DirListing
	for off := uint32(0); off < dir.size(); off += DirEntrySize {
		e, _, err := fs.readEntryAt(dir, off)
		if err != nil {
			return nil, err
		}
		if e.isTombstone() {
			continue
		}
		target, err := fs.readInode(e.inode)
		if err != nil {
			return nil, err
		}
		kind := KindFile
		if target.isDir() {
			kind = KindDir
		}
		out = append(out, DirListing{Name: e.name, Inode: e.inode, Kind: kind, Size: target.size()})
	}
	return out, nil
}

// lookup performs a linear scan of dir's entries for name, returning the
// matching inode number or 0 if none is found. First match wins.
func (fs *FileSystem) lookup(dirIno uint32, name string) (uint32, error) {
	dir, err := fs.readInode(dirIno)
	if err != nil {
		return 0, err
	}
	if !dir.isDir() {
		return 0, ErrNotADirectory
	}
	for off := uint32(0); off < dir.size(); off += DirEntrySize {
		e, _, err := fs.readEntryAt(dir, off)
		if err != nil {
			return 0, err
		}
		if e.isTombstone() {
			continue
		}
		if e.name == name {
			return e.inode, nil
		}
	}
	return 0, nil
}

// insert appends a new directory entry (name, ino) to dirIno's data
// stream, allocating a new data block if the current size has outgrown
// the last one. Tombstones are never reused.
func (fs *FileSystem) insert(dirIno uint32, name string, ino uint32) error {
	dir, err := fs.readInode(dirIno)
	if err != nil {
		return err
	}
	offset := dir.size()
	block, err := fs.blockForOffset(dir, offset)
	if err != nil {
		return err
	}
	if block == 0 {
		nb, err := fs.allocBlock()
		if err != nil {
			return err
		}
		if err := fs.device.zeroBlock(nb); err != nil {
			return err
		}
		if err := fs.appendBlock(dir, nb); err != nil {
			return err
		}
		block = nb
	}
	e := dirEntry{inode: ino, name: name}
	if err := fs.device.writeAt(block, int(offset%BlockSize), DirEntrySize, e.toBytes()); err != nil {
		return err
	}
	dir.setSize(offset + DirEntrySize)
	return fs.writeInode(dirIno, dir)
}

// unlink rewrites the first entry in dirIno whose inode matches
// targetIno with a tombstone. The directory's logical size is not
// shrunk.
func (fs *FileSystem) unlink(dirIno uint32, targetIno uint32) error {
	dir, err := fs.readInode(dirIno)
	if err != nil {
		return err
	}
	for off := uint32(0); off < dir.size(); off += DirEntrySize {
		e, _, err := fs.readEntryAt(dir, off)
		if err != nil {
			return err
		}
		if e.isTombstone() || e.inode != targetIno {
			continue
		}
		e.inode = 0
		return fs.writeEntryAt(dir, off, e)
	}
	return nil
}

// makeDir allocates a new inode (or uses newIno if non-zero) and a data
// block, writes "." and ".." into it, and inserts an entry for name into
// the parent directory.
func (fs *FileSystem) makeDir(parentIno uint32, newIno uint32, name string) (uint32, error) {
	var err error
	if newIno == 0 {
		newIno, err = fs.allocInode()
		if err != nil {
			return 0, err
		}
	}
	block, err := fs.allocBlock()
	if err != nil {
		return 0, err
	}
	buf := make([]byte, BlockSize)
	copy(buf[0:DirEntrySize], dirEntry{inode: newIno, name: dot}.toBytes())
	copy(buf[DirEntrySize:2*DirEntrySize], dirEntry{inode: parentIno, name: dotdot}.toBytes())
	if err := fs.device.writeBlock(block, buf); err != nil {
		return 0, err
	}

	in := &inode{flags: defaultDirFlags, nlinks: 1}
	in.addr[0] = block
	in.setSize(2 * DirEntrySize)
	if err := fs.writeInode(newIno, in); err != nil {
		return 0, err
	}
	if err := fs.insert(parentIno, name, newIno); err != nil {
		return 0, err
	}
	fs.log.WithField("inode", newIno).WithField("name", name).Debug("created directory")
	return newIno, nil
}

// removeFile truncates and frees ino's data, clears its flags, and
// returns the inode to the free-inode cache.
func (fs *FileSystem) removeFile(ino uint32) error {
	in, err := fs.readInode(ino)
	if err != nil {
		return err
	}
	if err := fs.truncateAndFree(in); err != nil {
		return err
	}
	*in = inode{}
	if err := fs.writeInode(ino, in); err != nil {
		return err
	}
	fs.freeInode(ino)
	return nil
}

// removeTree implements remove_tree(ino). It
// recovers the parent inode by reading ".." rather than carrying a
// parent argument, so it is robust to any entry order; removing root
// (inode 1) is forbidden.
func (fs *FileSystem) removeTree(ino uint32) error {
	if ino == RootInode {
		return ErrRemoveRoot
	}
	in, err := fs.readInode(ino)
	if err != nil {
		return err
	}
	if !in.isDir() {
		return fmt.Errorf("removeTree called on a file inode %d", ino)
	}

	entries, err := fs.list(ino)
	if err != nil {
		return err
	}
	var parent uint32
	for off := uint32(0); off < in.size(); off += DirEntrySize {
		e, _, err := fs.readEntryAt(in, off)
		if err != nil {
			return err
		}
		if e.name == dotdot {
			parent = e.inode
			break
		}
	}

	for _, entry := range entries {
		if entry.Name == dot || entry.Name == dotdot {
			continue
		}
		if entry.Kind == KindDir {
			if err := fs.removeTree(entry.Inode); err != nil {
				return err
			}
		} else {
			if err := fs.removeFile(entry.Inode); err != nil {
				return err
			}
		}
	}

	if err := fs.truncateAndFree(in); err != nil {
		return err
	}
	*in = inode{}
	if err := fs.writeInode(ino, in); err != nil {
		return err
	}
	fs.freeInode(ino)

	if parent != 0 {
		if err := fs.unlink(parent, ino); err != nil {
			return err
		}
	}
	fs.log.WithField("inode", ino).Debug("removed directory tree")
	return nil
}
