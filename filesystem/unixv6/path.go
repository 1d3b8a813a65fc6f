package unixv6

import "strings"

// Cursor holds the current-directory inode and its printable path for an
// interactive session.
type Cursor struct {
	inode uint32
	parts []string // path components below root; empty means "/"
}

// newRootCursor returns a cursor positioned at the root directory.
func newRootCursor() *Cursor {
	return &Cursor{inode: RootInode}
}

// Path renders the cursor's printable path, "/" joined.
func (c *Cursor) Path() string {
	if len(c.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(c.parts, "/")
}

// Inode returns the cursor's current directory inode number.
func (c *Cursor) Inode() uint32 { return c.inode }

// splitPath splits a path on "/", dropping empty components (so "a//b"
// and "a/b/" behave the same as "a/b").
func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// resolveMode controls how resolve() treats missing intermediate
// directory components.
type resolveMode int

const (
	// resolveStrict requires every component, including the last, to
	// already exist. Used by rm and cpout.
	resolveStrict resolveMode = iota
	// resolveCreateIntermediates creates missing intermediate
	// directories (every component but the last). No caller in this
	// package passes it: MkdirAt walks its path on its own.
	resolveCreateIntermediates
	// resolveParentMustExist requires every component up to, but not
	// including, the last to exist; the last component need not exist
	// yet. Used by cpin.
	resolveParentMustExist
)

// resolved is the outcome of walking a path: the inode of the final
// directory reached, the leaf name (if any components remained), and
// whether that leaf already exists.
type resolved struct {
	dirIno   uint32 // inode of the directory containing the leaf
	leaf     string // last path component; "" if path was "/" or "."
	leafIno  uint32 // inode the leaf currently resolves to, 0 if absent
	fullIno  uint32 // inode the full path resolves to (== leafIno normally)
}

// resolve walks p starting from the cursor (or from root if p is
// absolute).
func (fs *FileSystem) resolve(cur *Cursor, p string, mode resolveMode) (*resolved, error) {
	start := cur.inode
	if strings.HasPrefix(p, "/") {
		start = RootInode
	}
	parts := splitPath(p)
	if len(parts) == 0 {
		return &resolved{dirIno: start, fullIno: start}, nil
	}

	dirIno := start
	for i, part := range parts {
		last := i == len(parts)-1
		switch part {
		case dot:
			continue
		case dotdot:
			parentIno, err := fs.parentOf(dirIno)
			if err != nil {
				return nil, err
			}
			dirIno = parentIno
			continue
		}

		childIno, err := fs.lookup(dirIno, part)
		if err != nil {
			return nil, err
		}

		if !last {
			if childIno == 0 {
				if mode == resolveCreateIntermediates {
					newIno, err := fs.makeDir(dirIno, 0, part)
					if err != nil {
						return nil, err
					}
					dirIno = newIno
					continue
				}
				return nil, ErrNoSuchPath
			}
			in, err := fs.readInode(childIno)
			if err != nil {
				return nil, err
			}
			if !in.isDir() {
				return nil, ErrNotADirectory
			}
			dirIno = childIno
			continue
		}

		// Last component.
		if childIno == 0 && mode == resolveStrict {
			return nil, ErrNoSuchPath
		}
		return &resolved{dirIno: dirIno, leaf: part, leafIno: childIno, fullIno: childIno}, nil
	}
	return &resolved{dirIno: dirIno, fullIno: dirIno}, nil
}

// parentOf returns the inode ".." points at for a directory inode.
func (fs *FileSystem) parentOf(dirIno uint32) (uint32, error) {
	if dirIno == RootInode {
		return RootInode, nil
	}
	return fs.lookup(dirIno, dotdot)
}
