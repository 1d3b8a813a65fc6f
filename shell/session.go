// Package shell implements the operational interface an interactive
// command-line front end consumes: one method per verb (initfs, load,
// mkdir, rm, cpin, cpout, cd, ls, q), each running to completion before
// returning control.
//
// The line-reading REPL itself is an external collaborator; cmd/unixv6fs
// wires a minimal one to this package.
package shell

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-unixv6/unixv6fs/filesystem/unixv6"
	"github.com/go-unixv6/unixv6fs/image"
	"github.com/sirupsen/logrus"
)

// Session holds the mounted filesystem and current-directory cursor for
// one interactive run: a single mounted-filesystem value with a defined
// mount/unmount lifecycle.
type Session struct {
	img    *image.Image
	fsys   *unixv6.FileSystem
	cursor *unixv6.Cursor
	log    *logrus.Logger
}

// NewSession returns a Session with no filesystem mounted yet.
func NewSession() *Session {
	return &Session{log: logrus.New()}
}

// ErrNotMounted mirrors unixv6.ErrNotMounted for callers that only
// import this package.
var ErrNotMounted = unixv6.ErrNotMounted

func (s *Session) requireMounted() error {
	if s.fsys == nil {
		return ErrNotMounted
	}
	return nil
}

// Initfs implements the initfs verb: format image-path, then mount it.
func (s *Session) Initfs(args []string) (string, error) {
	if len(args) != 3 {
		return "", fmt.Errorf("%w: usage: initfs <path> <fsize> <ninodes>", unixv6.ErrBadArguments)
	}
	path := args[0]
	fsize, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w: fsize must be numeric: %v", unixv6.ErrBadArguments, err)
	}
	ninodes, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w: ninodes must be numeric: %v", unixv6.ErrBadArguments, err)
	}

	if err := s.closeCurrent(); err != nil {
		return "", err
	}

	img, err := image.Create(path, int64(fsize)*unixv6.BlockSize)
	if err != nil {
		return "", err
	}
	fsys, err := unixv6.Format(img.Backend, uint32(fsize), uint32(ninodes))
	if err != nil {
		_ = img.Close()
		return "", err
	}
	s.img = img
	s.fsys = fsys
	s.cursor = fsys.NewCursor()
	s.log.WithField("path", path).Info("initialized and mounted filesystem")
	return fmt.Sprintf("initialized %s: %d blocks, %d inodes", path, fsize, ninodes), nil
}

// Load implements the load verb: flush the current image (if any), then
// mount another.
func (s *Session) Load(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: usage: load <path>", unixv6.ErrBadArguments)
	}
	path := args[0]
	if err := s.closeCurrent(); err != nil {
		return "", err
	}
	img, err := image.Open(path)
	if err != nil {
		return "", err
	}
	fsys, err := unixv6.Mount(img.Backend, 0)
	if err != nil {
		_ = img.Close()
		return "", err
	}
	s.img = img
	s.fsys = fsys
	s.cursor = fsys.NewCursor()
	s.log.WithField("path", path).Info("mounted filesystem")
	return fmt.Sprintf("loaded %s", path), nil
}

// closeCurrent flushes and unmounts whatever filesystem is currently
// mounted, a no-op if none is mounted.
func (s *Session) closeCurrent() error {
	if s.fsys == nil {
		return nil
	}
	err := s.fsys.Close()
	s.fsys = nil
	s.cursor = nil
	s.img = nil
	return err
}

// Mkdir implements the mkdir verb.
func (s *Session) Mkdir(args []string) (string, error) {
	if err := s.requireMounted(); err != nil {
		return "", err
	}
	if len(args) != 1 {
		return "", fmt.Errorf("%w: usage: mkdir <path>", unixv6.ErrBadArguments)
	}
	if err := s.fsys.MkdirAt(s.cursor, args[0]); err != nil {
		return "", err
	}
	return "", nil
}

// Rm implements the rm verb.
func (s *Session) Rm(args []string) (string, error) {
	if err := s.requireMounted(); err != nil {
		return "", err
	}
	if len(args) != 1 {
		return "", fmt.Errorf("%w: usage: rm <path>", unixv6.ErrBadArguments)
	}
	if err := s.fsys.RemoveAt(s.cursor, args[0]); err != nil {
		return "", err
	}
	return "", nil
}

// Cpin implements the cpin verb.
func (s *Session) Cpin(args []string) (string, error) {
	if err := s.requireMounted(); err != nil {
		return "", err
	}
	if len(args) != 2 {
		return "", fmt.Errorf("%w: usage: cpin <host-path> <v6-path>", unixv6.ErrBadArguments)
	}
	if err := s.fsys.Cpin(s.cursor, args[0], args[1]); err != nil {
		return "", err
	}
	return "", nil
}

// Cpout implements the cpout verb.
func (s *Session) Cpout(args []string) (string, error) {
	if err := s.requireMounted(); err != nil {
		return "", err
	}
	if len(args) != 2 {
		return "", fmt.Errorf("%w: usage: cpout <v6-path> <host-path>", unixv6.ErrBadArguments)
	}
	if err := s.fsys.Cpout(s.cursor, args[0], args[1]); err != nil {
		return "", err
	}
	return "", nil
}

// Cd implements the cd verb.
func (s *Session) Cd(args []string) (string, error) {
	if err := s.requireMounted(); err != nil {
		return "", err
	}
	if len(args) != 1 {
		return "", fmt.Errorf("%w: usage: cd <path>", unixv6.ErrBadArguments)
	}
	if err := s.fsys.ChangeDir(s.cursor, args[0]); err != nil {
		return "", err
	}
	return s.cursor.Path(), nil
}

// Ls implements the ls verb, rendering each live entry the way
// fsaccess.c's listDir prints name, kind, and size.
func (s *Session) Ls(args []string) (string, error) {
	if err := s.requireMounted(); err != nil {
		return "", err
	}
	if len(args) != 0 {
		return "", fmt.Errorf("%w: ls takes no arguments", unixv6.ErrBadArguments)
	}
	entries, err := s.fsys.List(s.cursor)
	if err != nil {
		return "", err
	}
	out := ""
	for _, e := range entries {
		kind := "f"
		if e.Kind == unixv6.KindDir {
			kind = "d"
		}
		out += fmt.Sprintf("%-28s %s %6d %d\n", e.Name, kind, e.Inode, e.Size)
	}
	return out, nil
}

// Quit implements the q verb: flush the superblock, close the image.
func (s *Session) Quit() error {
	return s.closeCurrent()
}

// Mounted reports whether a filesystem is currently mounted, for a
// front end deciding which prompt to show.
func (s *Session) Mounted() bool { return s.fsys != nil }

// CursorPath returns the current directory's printable path.
func (s *Session) CursorPath() string {
	if s.cursor == nil {
		return "/"
	}
	return s.cursor.Path()
}

// IsNotMounted reports whether err is the not-mounted sentinel, for
// front ends that want to special-case the message.
func IsNotMounted(err error) bool {
	return errors.Is(err, unixv6.ErrNotMounted)
}
