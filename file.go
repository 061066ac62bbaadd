package minifs

import (
	"fmt"

	"github.com/proyashpodder/minifs/internal/bitmap"
	"github.com/proyashpodder/minifs/internal/inode"
)

func (v *Volume) isOpen(ino int) bool {
	for i := range v.openFiles {
		if v.openFiles[i].inode == ino {
			return true
		}
	}
	return false
}

func (v *Volume) newFd() int {
	for i := range v.openFiles {
		if v.openFiles[i].inode == 0 {
			return i
		}
	}
	return -1
}

func (v *Volume) checkFd(fd int) error {
	if fd < 0 || fd >= len(v.openFiles) || v.openFiles[fd].inode == 0 {
		return ErrBadFd
	}
	return nil
}

// FileOpen opens the regular file at path and returns its file
// descriptor.
func (v *Volume) FileOpen(path string) (int, error) {
	_, child, _, err := v.resolve(path)
	if err != nil || child < 0 {
		return -1, ErrNoSuchFile
	}
	ino, err := v.acc.Read(child)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	if ino.Type != inode.TypeFile {
		return -1, ErrNoSuchFile
	}

	fd := v.newFd()
	if fd < 0 {
		return -1, ErrTooManyOpenFiles
	}
	v.openFiles[fd] = openFile{inode: child, size: int(ino.Size), pos: 0}
	v.debugf("open(%q): fd=%d inode=%d", path, fd, child)
	return fd, nil
}

func (v *Volume) readDataSector(sector int, out []byte) error {
	if v.geo.Compress == CompressNone {
		return v.dev.ReadSector(sector, out)
	}
	frame := make([]byte, v.geo.SectorSize)
	if err := v.dev.ReadSector(sector, frame); err != nil {
		return err
	}
	return v.decodeDataSector(frame, out)
}

func (v *Volume) writeDataSector(sector int, raw []byte) error {
	if v.geo.Compress == CompressNone {
		return v.dev.WriteSector(sector, raw)
	}
	frame, err := v.encodeDataSector(raw)
	if err != nil {
		return err
	}
	return v.dev.WriteSector(sector, frame)
}

// FileRead reads up to len(buf) bytes from fd's current position and
// advances it by the number of bytes actually read.
func (v *Volume) FileRead(fd int, buf []byte) (int, error) {
	if err := v.checkFd(fd); err != nil {
		return -1, err
	}
	of := v.openFiles[fd]
	ino, err := v.acc.Read(of.inode)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrGeneral, err)
	}

	toRead := len(buf)
	if remaining := of.size - of.pos; toRead > remaining {
		toRead = remaining
	}
	if toRead <= 0 {
		return 0, nil
	}

	sectorSize := v.geo.SectorSize
	sector := of.pos / sectorSize
	offset := of.pos % sectorSize
	count := 0
	block := make([]byte, sectorSize)

	for count < toRead {
		if int(ino.Data[sector]) == 0 {
			break
		}
		if err := v.readDataSector(int(ino.Data[sector]), block); err != nil {
			return -1, fmt.Errorf("%w: %v", ErrGeneral, err)
		}
		n := sectorSize - offset
		if remaining := toRead - count; n > remaining {
			n = remaining
		}
		copy(buf[count:count+n], block[offset:offset+n])
		count += n
		offset = 0
		sector++
	}

	v.openFiles[fd].pos += count
	return count, nil
}

// FileWrite writes len(buf) bytes to fd at its current position,
// allocating new data sectors as needed, and advances pos by the number
// of bytes written. Writes that fall inside already-allocated sectors
// reuse them (read-modify-write) rather than allocating fresh ones, so
// overwriting never abandons a sector another live inode could later be
// handed.
//
// When the sector bitmap is exhausted mid-write, this degrades to a short
// write: bytes transferred so far are committed and returned with a nil
// error, and ErrNoSpace only surfaces on the next call that needs another
// sector. A write that cannot allocate even its first sector fails
// immediately with ErrNoSpace.
func (v *Volume) FileWrite(fd int, buf []byte) (int, error) {
	if err := v.checkFd(fd); err != nil {
		return -1, err
	}
	of := v.openFiles[fd]
	ino, err := v.acc.Read(of.inode)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrGeneral, err)
	}

	sectorSize := v.geo.SectorSize
	sector := of.pos / sectorSize
	offset := of.pos % sectorSize
	count := 0
	block := make([]byte, sectorSize)

	for count < len(buf) {
		if sector >= len(ino.Data) {
			if count > 0 {
				if cerr := v.commitWrite(fd, &ino, of.inode, count, of.pos); cerr != nil {
					return -1, cerr
				}
			}
			return -1, ErrFileTooBig
		}

		allocated := ino.Data[sector] != 0
		if allocated {
			if err := v.readDataSector(int(ino.Data[sector]), block); err != nil {
				// A hard device failure mid-write: leave pos and the
				// persisted inode untouched rather than commit a partial
				// count the caller was never told about.
				return -1, fmt.Errorf("%w: %v", ErrGeneral, err)
			}
		} else {
			newSector, err := bitmap.FirstUnused(v.dev, v.geo.sectorBitmapStart(), v.geo.SectorBitmapSectors(), v.geo.TotalSectors)
			if err != nil {
				if count > 0 {
					if cerr := v.commitWrite(fd, &ino, of.inode, count, of.pos); cerr != nil {
						return -1, cerr
					}
					return count, nil
				}
				return 0, ErrNoSpace
			}
			ino.Data[sector] = uint32(newSector)
			for i := range block {
				block[i] = 0
			}
		}

		n := sectorSize - offset
		if remaining := len(buf) - count; n > remaining {
			n = remaining
		}
		copy(block[offset:offset+n], buf[count:count+n])
		if err := v.writeDataSector(int(ino.Data[sector]), block); err != nil {
			return -1, fmt.Errorf("%w: %v", ErrGeneral, err)
		}

		count += n
		offset = 0
		sector++
	}

	if err := v.commitWrite(fd, &ino, of.inode, count, of.pos); err != nil {
		return -1, err
	}
	return count, nil
}

// commitWrite persists ino's updated size to the inode table and mirrors
// the new position/size into the open-file entry. It must be the last
// thing FileWrite does on any path that reports success or partial
// progress, since a failure here means the caller's reported byte count
// and the on-disk inode have gone out of sync.
func (v *Volume) commitWrite(fd int, ino *inode.Inode, inodeNum, count, startPos int) error {
	newPos := startPos + count
	if newPos > int(ino.Size) {
		ino.Size = uint32(newPos)
	}
	if err := v.acc.Write(inodeNum, *ino); err != nil {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	v.openFiles[fd].pos = newPos
	if newPos > v.openFiles[fd].size {
		v.openFiles[fd].size = newPos
	}
	return nil
}

// FileSeek sets fd's position to offset, which must be within [0, size].
func (v *Volume) FileSeek(fd int, offset int) error {
	if err := v.checkFd(fd); err != nil {
		return err
	}
	of := v.openFiles[fd]
	if offset < 0 || offset > of.size {
		return ErrSeekOutOfBounds
	}
	v.openFiles[fd].pos = offset
	return nil
}

// FileClose marks fd's open-file table entry free. It does not implicitly
// flush; pair with Sync.
func (v *Volume) FileClose(fd int) error {
	if err := v.checkFd(fd); err != nil {
		return err
	}
	v.openFiles[fd] = openFile{}
	return nil
}
