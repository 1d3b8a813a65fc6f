package unixv6

import "errors"

// Sentinel errors for verb-level failure conditions. Checked with
// errors.Is by the shell layer when it needs to distinguish one failure
// from another; otherwise surfaced as-is.
var (
	// ErrNotMounted is returned by any operation attempted before a
	// filesystem has been formatted or loaded.
	ErrNotMounted = errors.New("unixv6fs: no filesystem mounted")

	// ErrNoSuchPath is returned when a path component cannot be found.
	ErrNoSuchPath = errors.New("unixv6fs: no such path")
	// ErrNotADirectory is returned when a path component that must be a
	// directory (because more components follow it) is a file.
	ErrNotADirectory = errors.New("unixv6fs: not a directory")
	// ErrIsADirectory is returned when an operation expected a file but
	// found a directory.
	ErrIsADirectory = errors.New("unixv6fs: is a directory")
	// ErrNameExists is returned when an insert would collide with an
	// existing directory entry of a kind the caller did not expect.
	ErrNameExists = errors.New("unixv6fs: name already exists")
	// ErrRemoveRoot is returned when rm targets inode 1.
	ErrRemoveRoot = errors.New("unixv6fs: cannot remove root directory")

	// ErrNoFreeBlocks is returned when the free-block chain is exhausted.
	ErrNoFreeBlocks = errors.New("unixv6fs: no more blocks")
	// ErrNoFreeInodes is returned when no unallocated inode can be found.
	ErrNoFreeInodes = errors.New("unixv6fs: no more inodes")
	// ErrMaxFileSize is returned when a file would grow past the largest
	// offset the triple-indirect addressing scheme can reach.
	ErrMaxFileSize = errors.New("unixv6fs: max file size reached")

	// ErrInvalidSize is returned when fsize is smaller than the minimum
	// a formatted image requires.
	ErrInvalidSize = errors.New("unixv6fs: fsize must be at least 4 blocks")
	// ErrBadArguments is returned for missing or malformed verb
	// arguments, before any filesystem access is attempted.
	ErrBadArguments = errors.New("unixv6fs: bad arguments")
)
