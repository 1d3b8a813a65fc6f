package unixv6

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-unixv6/unixv6fs/backend"
	"github.com/go-unixv6/unixv6fs/filesystem"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileSystem implements filesystem.FileSystem for a mounted unixv6 image,
// the way ext4.FileSystem implements it for an ext4 image: one struct
// holding the backing store, the in-memory superblock, and a logger,
// with one method per concern delegated to the other files in this
// package.
type FileSystem struct {
	backend backend.Storage
	device  *blockDevice
	sb      *superblock
	mountID uuid.UUID
	log     *logrus.Entry
}

// Format implements format(image, fsize, ninodes).
// It writes every inode as unallocated, seeds the free-block chain in
// reverse order so the lowest-numbered data blocks are handed out
// first, seeds the free-inode cache with inodes 2..min(101, ninodes),
// and allocates and writes the root directory.
func Format(b backend.Storage, fsize, ninodes uint32) (*FileSystem, error) {
	if fsize < 4 {
		return nil, ErrInvalidSize
	}

	isize := inodeBlockCount(ninodes)
	sb := &superblock{isize: isize, fsize: fsize}

	mountID := uuid.New()
	fsys := &FileSystem{
		backend: b,
		device:  newBlockDevice(b, fsize),
		sb:      sb,
		mountID: mountID,
		log:     newLogger(mountID),
	}
	fsys.log.WithFields(logrus.Fields{"fsize": fsize, "ninodes": ninodes, "isize": isize}).Info("formatting image")

	// Every inode starts unallocated with a zeroed address array.
	zero := make([]byte, InodeSize)
	w, err := b.Writable()
	if err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	for ino := uint32(1); ino <= ninodes; ino++ {
		if _, err := w.WriteAt(zero, inodeOffset(ino)); err != nil {
			return nil, fmt.Errorf("formatting inode %d: %w", ino, err)
		}
	}

	// Zero every data block so a freshly formatted image never exposes
	// stale host-file bytes through an unwritten block.
	dataStart := sb.dataBlocksStart()
	for blk := dataStart; blk < fsize; blk++ {
		if err := fsys.device.zeroBlock(blk); err != nil {
			return nil, fmt.Errorf("formatting block %d: %w", blk, err)
		}
	}

	// Seed the end-of-chain sentinel first so it settles to the bottom
	// of the cache: allocBlock always pops the most recently freed
	// entry, so whatever is freed last is handed out first. Only once
	// every other entry below has been popped does nfree fall back to
	// 1 and expose this sentinel.
	sb.nfree = 0
	if err := fsys.freeBlock(0); err != nil {
		return nil, fmt.Errorf("seeding free-list sentinel: %w", err)
	}
	// Seed the free-block chain in reverse order: the lowest-numbered
	// data block is handed out first. Block dataStart itself is
	// reserved below for the root directory.
	for blk := fsize - 1; blk > dataStart; blk-- {
		if err := fsys.freeBlock(blk); err != nil {
			return nil, fmt.Errorf("seeding free list: %w", err)
		}
	}

	// Seed the free-inode cache with 2..min(101, ninodes); inode 1 is
	// reserved for root.
	sb.ninode = 0
	last := ninodes
	if last > MaxFreeInodes+1 {
		last = MaxFreeInodes + 1
	}
	for ino := last; ino >= firstAllocatableInode; ino-- {
		sb.inode[sb.ninode] = ino
		sb.ninode++
	}

	// Root directory: its own data block, "." and ".." both pointing
	// at inode 1.
	rootBlock := dataStart
	buf := make([]byte, BlockSize)
	copy(buf[0:DirEntrySize], dirEntry{inode: RootInode, name: dot}.toBytes())
	copy(buf[DirEntrySize:2*DirEntrySize], dirEntry{inode: RootInode, name: dotdot}.toBytes())
	if err := fsys.device.writeBlock(rootBlock, buf); err != nil {
		return nil, fmt.Errorf("writing root directory block: %w", err)
	}

	root := &inode{flags: defaultDirFlags, nlinks: 1}
	root.addr[0] = rootBlock
	root.setSize(2 * DirEntrySize)
	if err := fsys.writeInode(RootInode, root); err != nil {
		return nil, fmt.Errorf("writing root inode: %w", err)
	}

	sb.markDirty()
	if err := fsys.Flush(); err != nil {
		return nil, err
	}
	return fsys, nil
}

// Mount implements mount(image). It loads the
// superblock from block 1 and holds it in memory for the session.
func Mount(b backend.Storage, fsize uint32) (*FileSystem, error) {
	raw := make([]byte, BlockSize)
	if _, err := b.ReadAt(raw, SuperblockNumber*BlockSize); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb, err := superblockFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding superblock: %w", err)
	}
	if fsize != 0 && sb.fsize != fsize {
		return nil, fmt.Errorf("image reports fsize %d, caller expected %d", sb.fsize, fsize)
	}
	mountID := uuid.New()
	fsys := &FileSystem{
		backend: b,
		device:  newBlockDevice(b, sb.fsize),
		sb:      sb,
		mountID: mountID,
		log:     newLogger(mountID),
	}
	fsys.log.WithField("fsize", sb.fsize).Info("mounted image")
	return fsys, nil
}

// IsMounted reports whether this FileSystem value is ready for use.
func (fsys *FileSystem) IsMounted() bool { return fsys != nil && fsys.sb != nil }

// Flush implements flush(). It persists the
// superblock if it is dirty and clears the dirty flag.
func (fsys *FileSystem) Flush() error {
	if !fsys.sb.dirty && fsys.sb.fmod == 0 {
		return nil
	}
	fsys.sb.stampTime()
	w, err := fsys.backend.Writable()
	if err != nil {
		return fmt.Errorf("flushing superblock: %w", err)
	}
	if _, err := w.WriteAt(fsys.sb.toBytes(), SuperblockNumber*BlockSize); err != nil {
		return fmt.Errorf("flushing superblock: %w", err)
	}
	fsys.sb.fmod = 0
	fsys.sb.dirty = false
	fsys.log.Debug("flushed superblock")
	return nil
}

// Close flushes and releases the backing host file.
func (fsys *FileSystem) Close() error {
	if err := fsys.Flush(); err != nil {
		return err
	}
	return fsys.backend.Close()
}

// Type implements filesystem.FileSystem.
func (fsys *FileSystem) Type() filesystem.Type { return filesystem.TypeUnixV6 }

// NewCursor returns a cursor positioned at the root directory, the
// starting point of every mounted session.
func (fsys *FileSystem) NewCursor() *Cursor { return newRootCursor() }

// Mkdir implements filesystem.FileSystem, resolving pathname from root.
// Shell sessions normally use MkdirAt with their own Cursor instead.
func (fsys *FileSystem) Mkdir(pathname string) error {
	return fsys.MkdirAt(fsys.NewCursor(), pathname)
}

// MkdirAt creates a directory relative to cur, creating any missing
// intermediate components. Recreating an existing path is idempotent:
// no new inodes are allocated for segments that already exist.
func (fsys *FileSystem) MkdirAt(cur *Cursor, pathname string) error {
	parts := splitPath(pathname)
	if len(parts) == 0 {
		return nil
	}
	start := cur.inode
	if len(pathname) > 0 && pathname[0] == '/' {
		start = RootInode
	}
	dirIno := start
	for _, part := range parts {
		switch part {
		case dot:
			continue
		case dotdot:
			p, err := fsys.parentOf(dirIno)
			if err != nil {
				return err
			}
			dirIno = p
			continue
		}
		childIno, err := fsys.lookup(dirIno, part)
		if err != nil {
			return err
		}
		if childIno == 0 {
			newIno, err := fsys.makeDir(dirIno, 0, part)
			if err != nil {
				return err
			}
			dirIno = newIno
			continue
		}
		in, err := fsys.readInode(childIno)
		if err != nil {
			return err
		}
		if !in.isDir() {
			return fmt.Errorf("%w: %s", ErrNotADirectory, part)
		}
		dirIno = childIno
	}
	return fsys.Flush()
}

// Remove implements filesystem.FileSystem, resolving pathname from root.
func (fsys *FileSystem) Remove(pathname string) error {
	return fsys.RemoveAt(fsys.NewCursor(), pathname)
}

// RemoveAt removes the file or directory tree named by pathname,
// relative to cur. Removing root is forbidden.
func (fsys *FileSystem) RemoveAt(cur *Cursor, pathname string) error {
	r, err := fsys.resolve(cur, pathname, resolveStrict)
	if err != nil {
		return err
	}
	if r.fullIno == RootInode {
		return ErrRemoveRoot
	}
	if r.leafIno == 0 {
		return ErrNoSuchPath
	}
	target, err := fsys.readInode(r.leafIno)
	if err != nil {
		return err
	}
	if target.isDir() {
		if err := fsys.removeTree(r.leafIno); err != nil {
			return err
		}
	} else {
		if err := fsys.removeFile(r.leafIno); err != nil {
			return err
		}
		if err := fsys.unlink(r.dirIno, r.leafIno); err != nil {
			return err
		}
	}
	return fsys.Flush()
}

// ChangeDir moves cur to the directory named by pathname: "cd .." walks
// to the parent by following the directory's own ".." entry and trims
// the printable path.
func (fsys *FileSystem) ChangeDir(cur *Cursor, pathname string) error {
	parts := splitPath(pathname)
	absolute := len(pathname) > 0 && pathname[0] == '/'

	newCur := &Cursor{inode: cur.inode, parts: append([]string(nil), cur.parts...)}
	if absolute {
		newCur.inode = RootInode
		newCur.parts = nil
	}
	for _, part := range parts {
		switch part {
		case dot:
			continue
		case dotdot:
			p, err := fsys.parentOf(newCur.inode)
			if err != nil {
				return err
			}
			newCur.inode = p
			if len(newCur.parts) > 0 {
				newCur.parts = newCur.parts[:len(newCur.parts)-1]
			}
			continue
		}
		childIno, err := fsys.lookup(newCur.inode, part)
		if err != nil {
			return err
		}
		if childIno == 0 {
			return ErrNoSuchPath
		}
		in, err := fsys.readInode(childIno)
		if err != nil {
			return err
		}
		if !in.isDir() {
			return ErrNotADirectory
		}
		newCur.inode = childIno
		newCur.parts = append(newCur.parts, part)
	}
	*cur = *newCur
	return nil
}

// List implements list(dir_ino), relative to cur.
func (fsys *FileSystem) List(cur *Cursor) ([]DirListing, error) {
	return fsys.list(cur.inode)
}

// ReadDir implements filesystem.FileSystem.
func (fsys *FileSystem) ReadDir(pathname string) ([]os.FileInfo, error) {
	r, err := fsys.resolve(fsys.NewCursor(), pathname, resolveStrict)
	if err != nil {
		return nil, err
	}
	target := r.fullIno
	if target == 0 {
		target = r.dirIno
	}
	entries, err := fsys.list(target)
	if err != nil {
		return nil, err
	}
	out := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, dirFileInfo{e})
	}
	return out, nil
}

// dirFileInfo adapts a DirListing to os.FileInfo for ReadDir callers that
// expect the standard interface.
type dirFileInfo struct{ e DirListing }

func (d dirFileInfo) Name() string { return d.e.Name }
func (d dirFileInfo) Size() int64  { return int64(d.e.Size) }
func (d dirFileInfo) Mode() fs.FileMode {
	if d.e.Kind == KindDir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (d dirFileInfo) ModTime() time.Time { return time.Time{} }
func (d dirFileInfo) IsDir() bool        { return d.e.Kind == KindDir }
func (d dirFileInfo) Sys() interface{}   { return d.e }

// OpenFile implements filesystem.FileSystem, opening a file for reading
// or writing relative to root.
func (fsys *FileSystem) OpenFile(pathname string, flag int) (filesystem.File, error) {
	return fsys.openFileAt(fsys.NewCursor(), pathname, flag)
}

// Chmod sets the permission bits (bits 8/7/6 of flags) of the named
// inode from mode's owner-execute/write/read bits, the only permission
// concept the format's inode carries.
func (fsys *FileSystem) Chmod(name string, mode os.FileMode) error {
	r, err := fsys.resolve(fsys.NewCursor(), name, resolveStrict)
	if err != nil {
		return err
	}
	in, err := fsys.readInode(r.leafIno)
	if err != nil {
		return err
	}
	in.flags &^= flagRead | flagWrite | flagExec
	if mode&0o400 != 0 {
		in.flags |= flagRead
	}
	if mode&0o200 != 0 {
		in.flags |= flagWrite
	}
	if mode&0o100 != 0 {
		in.flags |= flagExec
	}
	if err := fsys.writeInode(r.leafIno, in); err != nil {
		return err
	}
	return fsys.Flush()
}

// Chown sets the uid/gid fields of the named inode. A value of -1 means
// "do not change", matching filesystem.FileSystem's documented contract.
func (fsys *FileSystem) Chown(name string, uid, gid int) error {
	r, err := fsys.resolve(fsys.NewCursor(), name, resolveStrict)
	if err != nil {
		return err
	}
	in, err := fsys.readInode(r.leafIno)
	if err != nil {
		return err
	}
	if uid >= 0 {
		in.uid = byte(uid)
	}
	if gid >= 0 {
		in.gid = byte(gid)
	}
	if err := fsys.writeInode(r.leafIno, in); err != nil {
		return err
	}
	return fsys.Flush()
}

// Chtimes sets the named inode's acttime/modtime fields from atime and
// mtime. ctime is accepted for interface symmetry but ignored: the format's
// inode carries no creation-time field.
func (fsys *FileSystem) Chtimes(name string, ctime, atime, mtime time.Time) error {
	_ = ctime
	r, err := fsys.resolve(fsys.NewCursor(), name, resolveStrict)
	if err != nil {
		return err
	}
	in, err := fsys.readInode(r.leafIno)
	if err != nil {
		return err
	}
	in.acttime = splitUnixTime(atime.Unix())
	in.modtime = splitUnixTime(mtime.Unix())
	if err := fsys.writeInode(r.leafIno, in); err != nil {
		return err
	}
	return fsys.Flush()
}

// Rename is not part of this format's verb surface; returns
// filesystem.ErrNotSupported.
func (fsys *FileSystem) Rename(string, string) error { return filesystem.ErrNotSupported }

// Mknod, Link, and Symlink are out of scope: no hard or symbolic links
// beyond what "." and ".." already provide.
func (fsys *FileSystem) Mknod(string, uint32, int) error  { return filesystem.ErrNotSupported }
func (fsys *FileSystem) Link(string, string) error        { return filesystem.ErrNotSupported }
func (fsys *FileSystem) Symlink(string, string) error      { return filesystem.ErrNotSupported }

// Label and SetLabel: this format has no volume label concept.
func (fsys *FileSystem) Label() string          { return "" }
func (fsys *FileSystem) SetLabel(string) error  { return filesystem.ErrNotSupported }

var _ filesystem.FileSystem = (*FileSystem)(nil)
