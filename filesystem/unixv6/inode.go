package unixv6

import (
	"encoding/binary"
	"fmt"
)

// inode is the in-memory form of the 64-byte on-disk inode record. Three
// bytes at the end of the on-disk layout are unused padding, kept only
// so the record lands on a 64-byte stride.
type inode struct {
	flags   uint16
	nlinks  byte
	uid     byte
	gid     byte
	size0   uint16 // high half of the 32-bit file size
	size1   uint16 // low half of the 32-bit file size
	addr    [AddrCount]uint32
	acttime [2]uint16
	modtime [2]uint16
}

func (in *inode) allocated() bool { return in.flags&flagAllocated != 0 }
func (in *inode) isDir() bool     { return in.flags&flagIsDir != 0 }
func (in *inode) isLarge() bool   { return in.flags&flagLarge != 0 }

func (in *inode) size() uint32 {
	return uint32(in.size0)<<16 | uint32(in.size1)
}

func (in *inode) setSize(size uint32) {
	in.size0 = uint16(size >> 16)
	in.size1 = uint16(size & 0xffff)
}

// inodeFromBytes decodes one 64-byte inode record.
func inodeFromBytes(b []byte) (*inode, error) {
	if len(b) < InodeSize {
		return nil, fmt.Errorf("inode data too short: %d bytes, need %d", len(b), InodeSize)
	}
	in := &inode{}
	off := 0
	in.flags = binary.LittleEndian.Uint16(b[off:])
	off += 2
	in.nlinks = b[off]
	off++
	in.uid = b[off]
	off++
	in.gid = b[off]
	off++
	in.size0 = binary.LittleEndian.Uint16(b[off:])
	off += 2
	in.size1 = binary.LittleEndian.Uint16(b[off:])
	off += 2
	for i := range in.addr {
		in.addr[i] = binary.LittleEndian.Uint32(b[off:])
		off += 4
	}
	in.acttime[0] = binary.LittleEndian.Uint16(b[off:])
	off += 2
	in.acttime[1] = binary.LittleEndian.Uint16(b[off:])
	off += 2
	in.modtime[0] = binary.LittleEndian.Uint16(b[off:])
	off += 2
	in.modtime[1] = binary.LittleEndian.Uint16(b[off:])
	off += 2
	return in, nil
}

// toBytes encodes the inode back to its 64-byte on-disk layout.
func (in *inode) toBytes() []byte {
	b := make([]byte, InodeSize)
	off := 0
	binary.LittleEndian.PutUint16(b[off:], in.flags)
	off += 2
	b[off] = in.nlinks
	off++
	b[off] = in.uid
	off++
	b[off] = in.gid
	off++
	binary.LittleEndian.PutUint16(b[off:], in.size0)
	off += 2
	binary.LittleEndian.PutUint16(b[off:], in.size1)
	off += 2
	for _, v := range in.addr {
		binary.LittleEndian.PutUint32(b[off:], v)
		off += 4
	}
	binary.LittleEndian.PutUint16(b[off:], in.acttime[0])
	off += 2
	binary.LittleEndian.PutUint16(b[off:], in.acttime[1])
	off += 2
	binary.LittleEndian.PutUint16(b[off:], in.modtime[0])
	off += 2
	binary.LittleEndian.PutUint16(b[off:], in.modtime[1])
	off += 2
	return b
}

// inodeOffset returns the byte offset of inode number ino within the
// image: 2048 + (ino-1)*64.
func inodeOffset(ino uint32) int64 {
	return FirstInodeBlock*BlockSize + int64(ino-1)*InodeSize
}

// readInode loads inode number ino from the image.
func (fs *FileSystem) readInode(ino uint32) (*inode, error) {
	if ino == 0 {
		return nil, fmt.Errorf("inode 0 is not a valid inode number")
	}
	b := make([]byte, InodeSize)
	pos := inodeOffset(ino)
	if _, err := fs.backend.ReadAt(b, pos); err != nil {
		return nil, fmt.Errorf("reading inode %d: %w", ino, err)
	}
	return inodeFromBytes(b)
}

// writeInode persists inode number ino to the image.
func (fs *FileSystem) writeInode(ino uint32, in *inode) error {
	if ino == 0 {
		return fmt.Errorf("inode 0 is not a valid inode number")
	}
	w, err := fs.backend.Writable()
	if err != nil {
		return fmt.Errorf("writing inode %d: %w", ino, err)
	}
	if _, err := w.WriteAt(in.toBytes(), inodeOffset(ino)); err != nil {
		return fmt.Errorf("writing inode %d: %w", ino, err)
	}
	return nil
}

// blockForOffset resolves a logical byte offset within the file
// represented by in to a physical block number, returning 0 if that
// offset is not yet backed by a block.
func (fs *FileSystem) blockForOffset(in *inode, byteOffset uint32) (uint32, error) {
	logical := byteOffset / BlockSize

	if !in.isLarge() {
		if int(logical) >= directAddrCount {
			return 0, nil
		}
		return in.addr[logical], nil
	}

	if int(logical) < logicalIndicesPerSingleIndirect {
		s := logical / pointersPerIndirectBlock
		slot := logical % pointersPerIndirectBlock
		indirect := in.addr[s]
		if indirect == 0 {
			return 0, nil
		}
		return fs.readIndirectSlot(indirect, int(slot))
	}

	// Triple-indirect range.
	root := in.addr[tripleIndirectSlot]
	if root == 0 {
		return 0, nil
	}
	r := logical - logicalIndicesPerSingleIndirect
	i1 := int(r / (pointersPerIndirectBlock * pointersPerIndirectBlock))
	i2 := int((r / pointersPerIndirectBlock) % pointersPerIndirectBlock)
	i3 := int(r % pointersPerIndirectBlock)

	lvl1, err := fs.readIndirectSlot(root, i1)
	if err != nil || lvl1 == 0 {
		return 0, err
	}
	lvl2, err := fs.readIndirectSlot(lvl1, i2)
	if err != nil || lvl2 == 0 {
		return 0, err
	}
	return fs.readIndirectSlot(lvl2, i3)
}

// readIndirectSlot returns the block pointer stored at slot within
// indirect block blockNo.
func (fs *FileSystem) readIndirectSlot(blockNo uint32, slot int) (uint32, error) {
	buf := make([]byte, 4)
	if err := fs.device.readAt(blockNo, slot*4, 4, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// writeIndirectSlot stores a block pointer at slot within indirect block
// blockNo.
func (fs *FileSystem) writeIndirectSlot(blockNo uint32, slot int, value uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, value)
	return fs.device.writeAt(blockNo, slot*4, 4, buf)
}

// appendBlock attaches blockNo as the next logical block of the file
// represented by in, promoting it from small to large in place when it
// outgrows direct addressing.
func (fs *FileSystem) appendBlock(in *inode, blockNo uint32) error {
	logical := int(in.size() / BlockSize)

	if !in.isLarge() {
		if logical < directAddrCount {
			in.addr[logical] = blockNo
			return nil
		}
		if err := fs.promoteToLarge(in); err != nil {
			return err
		}
		// fall through to the large-file path below with the same logical index
	}

	if logical >= maxAddressableLogicalBlock() {
		return ErrMaxFileSize
	}

	if logical < logicalIndicesPerSingleIndirect {
		s := logical / pointersPerIndirectBlock
		slot := logical % pointersPerIndirectBlock
		indirect := in.addr[s]
		if indirect == 0 {
			nb, err := fs.allocBlock()
			if err != nil {
				return err
			}
			if err := fs.device.zeroBlock(nb); err != nil {
				return err
			}
			in.addr[s] = nb
			indirect = nb
		}
		return fs.writeIndirectSlot(indirect, slot, blockNo)
	}

	// Triple-indirect path.
	r := logical - logicalIndicesPerSingleIndirect
	i1 := r / (pointersPerIndirectBlock * pointersPerIndirectBlock)
	i2 := (r / pointersPerIndirectBlock) % pointersPerIndirectBlock
	i3 := r % pointersPerIndirectBlock

	root := in.addr[tripleIndirectSlot]
	if root == 0 {
		nb, err := fs.allocBlock()
		if err != nil {
			return err
		}
		if err := fs.device.zeroBlock(nb); err != nil {
			return err
		}
		in.addr[tripleIndirectSlot] = nb
		root = nb
	}
	lvl1, err := fs.readIndirectSlot(root, i1)
	if err != nil {
		return err
	}
	if lvl1 == 0 {
		nb, err := fs.allocBlock()
		if err != nil {
			return err
		}
		if err := fs.device.zeroBlock(nb); err != nil {
			return err
		}
		if err := fs.writeIndirectSlot(root, i1, nb); err != nil {
			return err
		}
		lvl1 = nb
	}
	lvl2, err := fs.readIndirectSlot(lvl1, i2)
	if err != nil {
		return err
	}
	if lvl2 == 0 {
		nb, err := fs.allocBlock()
		if err != nil {
			return err
		}
		if err := fs.device.zeroBlock(nb); err != nil {
			return err
		}
		if err := fs.writeIndirectSlot(lvl1, i2, nb); err != nil {
			return err
		}
		lvl2 = nb
	}
	return fs.writeIndirectSlot(lvl2, i3, blockNo)
}

// maxAddressableLogicalBlock returns one past the highest logical block
// index the addressing scheme can resolve.
func maxAddressableLogicalBlock() int {
	return logicalIndicesPerSingleIndirect + pointersPerIndirectBlock*pointersPerIndirectBlock*pointersPerIndirectBlock
}

// promoteToLarge converts a small file's direct pointers into the first
// single-indirect block of a large file.
func (fs *FileSystem) promoteToLarge(in *inode) error {
	nb, err := fs.allocBlock()
	if err != nil {
		return err
	}
	buf := make([]byte, BlockSize)
	for i := 0; i < directAddrCount; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], in.addr[i])
	}
	if err := fs.device.writeBlock(nb, buf); err != nil {
		return err
	}
	in.addr = [AddrCount]uint32{}
	in.addr[0] = nb
	in.flags |= flagLarge
	return nil
}

// truncateAndFree returns every data block reachable from in's address
// graph to the free-block allocator.
func (fs *FileSystem) truncateAndFree(in *inode) error {
	if !in.isLarge() {
		for _, b := range in.addr {
			if b != 0 {
				if err := fs.freeBlock(b); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for s := 0; s < singleIndirectSlots; s++ {
		indirect := in.addr[s]
		if indirect == 0 {
			continue
		}
		if err := fs.freeIndirectLeaves(indirect); err != nil {
			return err
		}
		if err := fs.freeBlock(indirect); err != nil {
			return err
		}
	}

	root := in.addr[tripleIndirectSlot]
	if root != 0 {
		for i1 := 0; i1 < pointersPerIndirectBlock; i1++ {
			lvl1, err := fs.readIndirectSlot(root, i1)
			if err != nil {
				return err
			}
			if lvl1 == 0 {
				continue
			}
			for i2 := 0; i2 < pointersPerIndirectBlock; i2++ {
				lvl2, err := fs.readIndirectSlot(lvl1, i2)
				if err != nil {
					return err
				}
				if lvl2 == 0 {
					continue
				}
				if err := fs.freeIndirectLeaves(lvl2); err != nil {
					return err
				}
				if err := fs.freeBlock(lvl2); err != nil {
					return err
				}
			}
			if err := fs.freeBlock(lvl1); err != nil {
				return err
			}
		}
		if err := fs.freeBlock(root); err != nil {
			return err
		}
	}
	return nil
}

// freeIndirectLeaves returns every non-zero leaf block pointed to by one
// indirect block to the free-block allocator, without freeing the
// indirect block itself.
func (fs *FileSystem) freeIndirectLeaves(indirect uint32) error {
	for slot := 0; slot < pointersPerIndirectBlock; slot++ {
		leaf, err := fs.readIndirectSlot(indirect, slot)
		if err != nil {
			return err
		}
		if leaf == 0 {
			continue
		}
		if err := fs.freeBlock(leaf); err != nil {
			return err
		}
	}
	return nil
}
