package unixv6

import (
	"fmt"
	"io"
	"os"
	"time"

	times "gopkg.in/djherbis/times.v1"
)

// Cpin implements cpin(host_path, v6_path). The
// host file's access and modify times, read portably via
// gopkg.in/djherbis/times.v1, are stamped onto the new inode's
// acttime/modtime fields.
func (fsys *FileSystem) Cpin(cur *Cursor, hostPath, v6Path string) error {
	hf, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("opening host file %s: %w", hostPath, err)
	}
	defer hf.Close()

	r, err := fsys.resolve(cur, v6Path, resolveParentMustExist)
	if err != nil {
		return err
	}
	if r.leafIno != 0 {
		existing, err := fsys.readInode(r.leafIno)
		if err != nil {
			return err
		}
		if existing.isDir() {
			return fmt.Errorf("%w: %s", ErrNameExists, v6Path)
		}
		if err := fsys.removeFile(r.leafIno); err != nil {
			return err
		}
		if err := fsys.unlink(r.dirIno, r.leafIno); err != nil {
			return err
		}
	}

	newIno, err := fsys.allocInode()
	if err != nil {
		return err
	}
	// Explicitly zero the new inode before setting the allocated bit:
	// a freshly allocated inode number may still carry residual bytes
	// on disk from before it was freed.
	in := &inode{flags: defaultFileFlags}

	buf := make([]byte, BlockSize)
	for {
		n, rerr := io.ReadFull(hf, buf)
		if n > 0 {
			if err := fsys.writeInodeData(in, buf[:n]); err != nil {
				return err
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("reading host file %s: %w", hostPath, rerr)
		}
	}

	if ts, terr := times.Stat(hostPath); terr == nil {
		in.acttime = splitUnixTime(ts.AccessTime().Unix())
		in.modtime = splitUnixTime(ts.ModTime().Unix())
	}

	if err := fsys.writeInode(newIno, in); err != nil {
		return err
	}
	if err := fsys.insert(r.dirIno, r.leaf, newIno); err != nil {
		return err
	}
	fsys.log.WithField("v6_path", v6Path).WithField("host_path", hostPath).Info("imported file")
	return fsys.Flush()
}

// writeInodeData appends data to in's data stream, allocating blocks on
// demand via appendBlock as each one fills.
func (fsys *FileSystem) writeInodeData(in *inode, data []byte) error {
	written := 0
	for written < len(data) {
		size := in.size()
		inBlock := int(size % BlockSize)
		block, err := fsys.blockForOffset(in, size)
		if err != nil {
			return err
		}
		if block == 0 {
			block, err = fsys.allocBlock()
			if err != nil {
				return err
			}
			if err := fsys.device.zeroBlock(block); err != nil {
				return err
			}
			if err := fsys.appendBlock(in, block); err != nil {
				return err
			}
		}
		chunk := BlockSize - inBlock
		if chunk > len(data)-written {
			chunk = len(data) - written
		}
		if err := fsys.device.writeAt(block, inBlock, chunk, data[written:written+chunk]); err != nil {
			return err
		}
		in.setSize(size + uint32(chunk))
		written += chunk
	}
	return nil
}

// Cpout implements cpout(v6_path, host_path). It
// streams the v6 file block-by-block until the logical size is reached,
// then restores the host file's modtime from the inode's modtime.
func (fsys *FileSystem) Cpout(cur *Cursor, v6Path, hostPath string) error {
	r, err := fsys.resolve(cur, v6Path, resolveStrict)
	if err != nil {
		return err
	}
	if r.leafIno == 0 {
		return ErrNoSuchPath
	}
	in, err := fsys.readInode(r.leafIno)
	if err != nil {
		return err
	}
	if in.isDir() {
		return fmt.Errorf("%w: %s", ErrIsADirectory, v6Path)
	}

	hf, err := os.Create(hostPath)
	if err != nil {
		return fmt.Errorf("creating host file %s: %w", hostPath, err)
	}
	defer hf.Close()

	size := in.size()
	buf := make([]byte, BlockSize)
	for off := uint32(0); off < size; off += BlockSize {
		block, err := fsys.blockForOffset(in, off)
		if err != nil {
			return err
		}
		chunk := BlockSize
		if off+uint32(chunk) > size {
			chunk = int(size - off)
		}
		if block == 0 {
			for i := range buf[:chunk] {
				buf[i] = 0
			}
		} else if err := fsys.device.readAt(block, 0, chunk, buf[:chunk]); err != nil {
			return err
		}
		if _, err := hf.Write(buf[:chunk]); err != nil {
			return fmt.Errorf("writing host file %s: %w", hostPath, err)
		}
	}
	modtime := time.Unix(int64(uint32(in.modtime[0])<<16|uint32(in.modtime[1])), 0)
	if err := os.Chtimes(hostPath, time.Time{}, modtime); err != nil {
		return fmt.Errorf("restoring modtime on host file %s: %w", hostPath, err)
	}
	fsys.log.WithField("v6_path", v6Path).WithField("host_path", hostPath).Info("exported file")
	return nil
}

// splitUnixTime packs a 32-bit UNIX timestamp into the two 16-bit halves
// the on-disk format uses for acttime/modtime.
func splitUnixTime(sec int64) [2]uint16 {
	u := uint32(sec)
	return [2]uint16{uint16(u >> 16), uint16(u & 0xffff)}
}
