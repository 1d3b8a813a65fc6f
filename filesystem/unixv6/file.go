package unixv6

import (
	"fmt"
	"io"
	"io/fs"
	"os"
)

// File represents a single open file in a unixv6 filesystem, the way
// ext4.File wraps an inode with a current offset for Read/Write/Seek.
type File struct {
	fsys   *FileSystem
	ino    uint32
	in     *inode
	offset int64
	name   string
}

// openFileAt opens or creates the file named by pathname relative to
// cur, according to flag (os.O_CREATE, os.O_TRUNC, os.O_RDWR, ...).
func (fsys *FileSystem) openFileAt(cur *Cursor, pathname string, flag int) (*File, error) {
	mode := resolveStrict
	if flag&os.O_CREATE != 0 {
		mode = resolveParentMustExist
	}
	r, err := fsys.resolve(cur, pathname, mode)
	if err != nil {
		return nil, err
	}

	ino := r.leafIno
	if ino == 0 {
		if flag&os.O_CREATE == 0 {
			return nil, ErrNoSuchPath
		}
		newIno, err := fsys.allocInode()
		if err != nil {
			return nil, err
		}
		in := &inode{flags: defaultFileFlags}
		if err := fsys.writeInode(newIno, in); err != nil {
			return nil, err
		}
		if err := fsys.insert(r.dirIno, r.leaf, newIno); err != nil {
			return nil, err
		}
		ino = newIno
	}

	in, err := fsys.readInode(ino)
	if err != nil {
		return nil, err
	}
	if in.isDir() {
		return nil, ErrIsADirectory
	}
	if flag&os.O_TRUNC != 0 {
		if err := fsys.truncateAndFree(in); err != nil {
			return nil, err
		}
		in.addr = [AddrCount]uint32{}
		in.flags &^= flagLarge
		in.setSize(0)
		if err := fsys.writeInode(ino, in); err != nil {
			return nil, err
		}
	}
	return &File{fsys: fsys, ino: ino, in: in, name: r.leaf}, nil
}

// Read reads up to len(b) bytes starting at the file's current offset.
func (f *File) Read(b []byte) (int, error) {
	size := int64(f.in.size())
	if f.offset >= size {
		return 0, io.EOF
	}
	toRead := int64(len(b))
	if f.offset+toRead > size {
		toRead = size - f.offset
	}
	var read int64
	for read < toRead {
		block, err := f.fsys.blockForOffset(f.in, uint32(f.offset))
		if err != nil {
			return int(read), err
		}
		inBlock := int(f.offset % BlockSize)
		chunk := int64(BlockSize - inBlock)
		if chunk > toRead-read {
			chunk = toRead - read
		}
		if block == 0 {
			for i := int64(0); i < chunk; i++ {
				b[read+i] = 0
			}
		} else if err := f.fsys.device.readAt(block, inBlock, int(chunk), b[read:read+chunk]); err != nil {
			return int(read), err
		}
		read += chunk
		f.offset += chunk
	}
	var err error
	if f.offset >= size {
		err = io.EOF
	}
	return int(read), err
}

// Write appends len(p) bytes at the file's current offset, which must
// equal the file's current size: this format's inode engine only
// supports sequential population (the way cpin populates a new file),
// not arbitrary in-place rewrites.
func (f *File) Write(p []byte) (int, error) {
	if f.offset != int64(f.in.size()) {
		return 0, fmt.Errorf("unixv6fs: write at offset %d, want sequential append at %d", f.offset, f.in.size())
	}
	if err := f.fsys.writeInodeData(f.in, p); err != nil {
		return 0, err
	}
	f.offset = int64(f.in.size())
	return len(p), nil
}

// Seek sets the file's offset for the next Read or Write.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekEnd:
		newOffset = int64(f.in.size()) + offset
	case io.SeekCurrent:
		newOffset = f.offset + offset
	}
	if newOffset < 0 {
		return f.offset, fmt.Errorf("unixv6fs: negative seek offset %d", newOffset)
	}
	f.offset = newOffset
	return f.offset, nil
}

// Close persists the inode, including its current size and block
// addresses. Write does not update the inode's modification time.
func (f *File) Close() error {
	return f.fsys.writeInode(f.ino, f.in)
}

// Stat returns the file's size and kind.
func (f *File) Stat() (os.FileInfo, error) {
	kind := KindFile
	if f.in.isDir() {
		kind = KindDir
	}
	return dirFileInfo{DirListing{Name: f.name, Inode: f.ino, Kind: kind, Size: f.in.size()}}, nil
}

// ReadDir is part of fs.ReadDirFile; a File opened with OpenFile is
// never a directory, so this always errors.
func (f *File) ReadDir(int) ([]fs.DirEntry, error) {
	return nil, fmt.Errorf("unixv6fs: %s is not a directory", f.name)
}
