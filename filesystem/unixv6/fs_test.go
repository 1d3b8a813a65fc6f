package unixv6

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-unixv6/unixv6fs/backend/file"
)

// testFsize/testNinodes keep every fixture small: fsize=20 gives block 2
// as the sole inode-table block (16 inodes fit in one block) and block 3
// as the root directory, leaving blocks 4..19 as free data blocks.
const (
	testFsize   = 20
	testNinodes = 16
)

func newTestImage(t *testing.T) *FileSystem {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	b, err := file.CreateFromPath(path, testFsize*BlockSize)
	if err != nil {
		t.Fatalf("creating backing file: %v", err)
	}
	fsys, err := Format(b, testFsize, testNinodes)
	if err != nil {
		t.Fatalf("formatting: %v", err)
	}
	return fsys
}

func TestFormatAndMount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.img")
	b, err := file.CreateFromPath(path, testFsize*BlockSize)
	if err != nil {
		t.Fatalf("creating backing file: %v", err)
	}
	fsys, err := Format(b, testFsize, testNinodes)
	if err != nil {
		t.Fatalf("formatting: %v", err)
	}
	if err := fsys.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	b2, err := file.OpenFromPath(path, false)
	if err != nil {
		t.Fatalf("reopening backing file: %v", err)
	}
	remounted, err := Mount(b2, testFsize)
	if err != nil {
		t.Fatalf("mounting: %v", err)
	}
	if remounted.sb.fsize != testFsize {
		t.Errorf("fsize = %d, want %d", remounted.sb.fsize, testFsize)
	}
	root, err := remounted.readInode(RootInode)
	if err != nil {
		t.Fatalf("reading root inode: %v", err)
	}
	if !root.isDir() {
		t.Errorf("root inode is not marked as a directory")
	}
	if root.size() != 2*DirEntrySize {
		t.Errorf("root size = %d, want %d", root.size(), 2*DirEntrySize)
	}
}

func TestFormatRejectsUndersizedImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.img")
	b, err := file.CreateFromPath(path, 2*BlockSize)
	if err != nil {
		t.Fatalf("creating backing file: %v", err)
	}
	if _, err := Format(b, 2, testNinodes); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("Format with fsize=2 = %v, want ErrInvalidSize", err)
	}
}

func TestMkdirAtCreatesIntermediates(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	if err := fsys.MkdirAt(cur, "a/b/c"); err != nil {
		t.Fatalf("MkdirAt: %v", err)
	}
	r, err := fsys.resolve(cur, "a/b/c", resolveStrict)
	if err != nil {
		t.Fatalf("resolving a/b/c: %v", err)
	}
	in, err := fsys.readInode(r.leafIno)
	if err != nil {
		t.Fatalf("reading a/b/c inode: %v", err)
	}
	if !in.isDir() {
		t.Errorf("a/b/c is not a directory")
	}

	// Recreating the same path must not allocate a second time.
	before := fsys.sb.ninode
	if err := fsys.MkdirAt(cur, "a/b/c"); err != nil {
		t.Fatalf("MkdirAt (idempotent): %v", err)
	}
	if fsys.sb.ninode != before {
		t.Errorf("recreating a/b/c consumed inodes from the free cache")
	}
}

func TestMkdirAtRejectsFileAsIntermediate(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	if err := fsys.Cpin(cur, writeHostFile(t, "hello"), "leaf"); err != nil {
		t.Fatalf("Cpin: %v", err)
	}
	if err := fsys.MkdirAt(cur, "leaf/sub"); !errors.Is(err, ErrNotADirectory) {
		t.Fatalf("MkdirAt through a file = %v, want ErrNotADirectory", err)
	}
}

func TestRemoveAtFile(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	if err := fsys.Cpin(cur, writeHostFile(t, "hello world"), "f.txt"); err != nil {
		t.Fatalf("Cpin: %v", err)
	}
	if err := fsys.RemoveAt(cur, "f.txt"); err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	entries, err := fsys.List(cur)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range entries {
		if e.Name == "f.txt" {
			t.Fatalf("f.txt still listed after removal")
		}
	}
	if _, err := fsys.resolve(cur, "f.txt", resolveStrict); !errors.Is(err, ErrNoSuchPath) {
		t.Fatalf("resolving removed file = %v, want ErrNoSuchPath", err)
	}
}

func TestRemoveAtRejectsRoot(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	if err := fsys.RemoveAt(cur, "/"); !errors.Is(err, ErrRemoveRoot) {
		t.Fatalf("removing root = %v, want ErrRemoveRoot", err)
	}
}

func TestRemoveAtDirectoryTree(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	if err := fsys.MkdirAt(cur, "d/sub"); err != nil {
		t.Fatalf("MkdirAt: %v", err)
	}
	if err := fsys.Cpin(cur, writeHostFile(t, "x"), "d/sub/f"); err != nil {
		t.Fatalf("Cpin: %v", err)
	}
	if err := fsys.RemoveAt(cur, "d"); err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if _, err := fsys.resolve(cur, "d", resolveStrict); !errors.Is(err, ErrNoSuchPath) {
		t.Fatalf("resolving removed tree = %v, want ErrNoSuchPath", err)
	}
}

func TestChangeDirDotDot(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	if err := fsys.MkdirAt(cur, "a/b"); err != nil {
		t.Fatalf("MkdirAt: %v", err)
	}
	if err := fsys.ChangeDir(cur, "a/b"); err != nil {
		t.Fatalf("ChangeDir a/b: %v", err)
	}
	if cur.Path() != "/a/b" {
		t.Fatalf("Path() = %q, want /a/b", cur.Path())
	}
	if err := fsys.ChangeDir(cur, ".."); err != nil {
		t.Fatalf("ChangeDir ..: %v", err)
	}
	if cur.Path() != "/a" {
		t.Fatalf("Path() = %q, want /a", cur.Path())
	}
	if err := fsys.ChangeDir(cur, "/"); err != nil {
		t.Fatalf("ChangeDir /: %v", err)
	}
	if cur.Path() != "/" {
		t.Fatalf("Path() = %q, want /", cur.Path())
	}
}

func TestCpinCpoutRoundTrip(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	content := "the quick brown fox jumps over the lazy dog"
	if err := fsys.Cpin(cur, writeHostFile(t, content), "f.txt"); err != nil {
		t.Fatalf("Cpin: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "out.txt")
	if err := fsys.Cpout(cur, "f.txt", outPath); err != nil {
		t.Fatalf("Cpout: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading cpout result: %v", err)
	}
	if string(got) != content {
		t.Fatalf("round trip = %q, want %q", got, content)
	}
}

func TestCpinOverwritesExistingFile(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	if err := fsys.Cpin(cur, writeHostFile(t, "first"), "f.txt"); err != nil {
		t.Fatalf("Cpin (1): %v", err)
	}
	if err := fsys.Cpin(cur, writeHostFile(t, "second, and longer"), "f.txt"); err != nil {
		t.Fatalf("Cpin (2): %v", err)
	}
	outPath := filepath.Join(t.TempDir(), "out.txt")
	if err := fsys.Cpout(cur, "f.txt", outPath); err != nil {
		t.Fatalf("Cpout: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading cpout result: %v", err)
	}
	if string(got) != "second, and longer" {
		t.Fatalf("overwrite result = %q, want %q", got, "second, and longer")
	}

	entries, err := fsys.List(cur)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	count := 0
	for _, e := range entries {
		if e.Name == "f.txt" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("f.txt appears %d times after overwrite, want 1", count)
	}
}

func TestCpoutDirectoryFails(t *testing.T) {
	fsys := newTestImage(t)
	cur := fsys.NewCursor()
	if err := fsys.MkdirAt(cur, "d"); err != nil {
		t.Fatalf("MkdirAt: %v", err)
	}
	if err := fsys.Cpout(cur, "d", filepath.Join(t.TempDir(), "out")); !errors.Is(err, ErrIsADirectory) {
		t.Fatalf("Cpout of a directory = %v, want ErrIsADirectory", err)
	}
}

// writeHostFile writes content to a fresh file under t.TempDir and returns
// its path, a small fixture shared by the Cpin tests above.
func writeHostFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing host fixture file: %v", err)
	}
	return path
}
