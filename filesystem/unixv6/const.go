// Package unixv6 implements a modified UNIX v6 file system hosted inside
// a single regular host-OS file.
//
// The package is laid out one file per concern (superblock, free-space
// allocators, inodes, directories, path resolution, import/export), with
// a FileSystem type at the top implementing filesystem.FileSystem.
package unixv6

const (
	// BlockSize is the fixed size, in bytes, of every block in the image.
	BlockSize = 1024

	// SuperblockNumber is the block holding the persisted superblock.
	SuperblockNumber = 1
	// FirstInodeBlock is the first block of the inode table.
	FirstInodeBlock = 2

	// InodeSize is the on-disk size, in bytes, of one inode.
	InodeSize = 64
	// RootInode is the reserved inode number of the root directory.
	RootInode = 1
	// firstAllocatableInode is the first inode number the free-inode
	// scanner and cache consider, inode 1 being reserved for root.
	firstAllocatableInode = 2

	// MaxFreeBlocks is the capacity of the superblock's cached free list
	// and of a free-list link block's own list.
	MaxFreeBlocks = 150
	// MaxFreeInodes is the capacity of the superblock's cached free
	// inode list.
	MaxFreeInodes = 100

	// DirEntrySize is the on-disk size, in bytes, of one directory entry.
	DirEntrySize = 32
	// DirNameSize is the size, in bytes, of a directory entry's name
	// field, null-padded.
	DirNameSize = 28

	// AddrCount is the number of block pointers in an inode's addr array.
	AddrCount = 11
	// directAddrCount is the number of direct pointers usable by a small
	// file (addr[0..10]).
	directAddrCount = AddrCount
	// pointersPerIndirectBlock is the number of 32-bit block pointers
	// that fit in one 1024-byte indirect block.
	pointersPerIndirectBlock = BlockSize / 4
	// singleIndirectSlots is the number of addr entries (addr[0..9])
	// used for single-indirect addressing in a large file.
	singleIndirectSlots = AddrCount - 1
	// tripleIndirectSlot is the addr index holding the triple-indirect
	// pointer in a large file.
	tripleIndirectSlot = AddrCount - 1

	// maxSmallFileSize is the largest size, in bytes, representable by
	// direct addressing alone.
	maxSmallFileSize = directAddrCount * BlockSize

	// maxLargeFileSize is the largest size, in bytes, representable by
	// the large-file addressing scheme: ten single-indirect block
	// ranges plus one triple-indirect range.
	maxLargeFileSize = int64(singleIndirectSlots)*int64(pointersPerIndirectBlock)*BlockSize +
		int64(pointersPerIndirectBlock)*int64(pointersPerIndirectBlock)*int64(pointersPerIndirectBlock)*BlockSize

	// logicalIndicesPerSingleIndirect is how many logical block indices
	// one single-indirect range covers, used as the boundary at which
	// the triple-indirect tree takes over.
	logicalIndicesPerSingleIndirect = singleIndirectSlots * pointersPerIndirectBlock
)

// inode flag bits.
const (
	flagAllocated uint16 = 1 << 15
	flagIsDir     uint16 = 1 << 14
	flagLarge     uint16 = 1 << 12
	flagRead      uint16 = 1 << 8
	flagWrite     uint16 = 1 << 7
	flagExec      uint16 = 1 << 6

	defaultDirFlags = flagAllocated | flagIsDir | flagRead | flagWrite | flagExec
	defaultFileFlags = flagAllocated | flagRead | flagWrite
)

// dot and dotdot are the two mandatory entries at the start of every
// non-empty directory.
const (
	dot    = "."
	dotdot = ".."
)
