package minifs

import (
	"errors"
	"fmt"

	"github.com/proyashpodder/minifs/internal/bitmap"
	"github.com/proyashpodder/minifs/internal/dirent"
	"github.com/proyashpodder/minifs/internal/inode"
	"github.com/proyashpodder/minifs/internal/pathwalk"
)

// FileCreate creates an empty regular file at path.
func (v *Volume) FileCreate(path string) error {
	return v.createNode(inode.TypeFile, path)
}

// DirCreate creates an empty directory at path.
func (v *Volume) DirCreate(path string) error {
	return v.createNode(inode.TypeDir, path)
}

func (v *Volume) resolve(path string) (parent, child int, lastName string, err error) {
	return pathwalk.Resolve(v.acc, v.dm, path, v.geo.MaxName)
}

func (v *Volume) createNode(typ inode.Type, path string) error {
	parent, child, lastName, err := v.resolve(path)
	if err != nil || child != -1 {
		v.debugf("create(%q): already exists or unresolvable", path)
		return ErrCreate
	}

	newInode, err := bitmap.FirstUnused(v.dev, v.geo.inodeBitmapStart(), v.geo.InodeBitmapSectors(), v.geo.MaxFiles)
	if err != nil {
		v.debugf("create(%q): inode table full", path)
		return ErrCreate
	}

	fresh := inode.Inode{Type: typ, Data: make([]uint32, v.geo.MaxSectorsPerFile)}
	if err := v.acc.Write(newInode, fresh); err != nil {
		_ = bitmap.Clear(v.dev, v.geo.inodeBitmapStart(), v.geo.InodeBitmapSectors(), newInode)
		return ErrCreate
	}

	parentIno, err := v.acc.Read(parent)
	if err != nil {
		_ = bitmap.Clear(v.dev, v.geo.inodeBitmapStart(), v.geo.InodeBitmapSectors(), newInode)
		return ErrCreate
	}
	if _, err := v.dm.Append(parent, parentIno, lastName, newInode); err != nil {
		_ = bitmap.Clear(v.dev, v.geo.inodeBitmapStart(), v.geo.InodeBitmapSectors(), newInode)
		return ErrCreate
	}

	v.debugf("create(%q): inode %d", path, newInode)
	return nil
}

// FileUnlink removes the regular file at path.
func (v *Volume) FileUnlink(path string) error {
	return v.unlinkNode(inode.TypeFile, path)
}

// DirUnlink removes the empty directory at path. The root directory is
// never unlinkable.
func (v *Volume) DirUnlink(path string) error {
	if path == "/" {
		return ErrRootDir
	}
	return v.unlinkNode(inode.TypeDir, path)
}

func (v *Volume) notFoundErr(typ inode.Type) error {
	if typ == inode.TypeDir {
		return ErrNoSuchDir
	}
	return ErrNoSuchFile
}

func (v *Volume) unlinkNode(typ inode.Type, path string) error {
	parent, child, _, err := v.resolve(path)
	if err != nil || child < 0 {
		return v.notFoundErr(typ)
	}
	if v.isOpen(child) {
		return ErrFileInUse
	}

	childIno, err := v.acc.Read(child)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	if childIno.Type != typ {
		return ErrGeneral
	}
	if typ == inode.TypeDir && childIno.Size != 0 {
		return ErrDirNotEmpty
	}

	for _, sec := range childIno.Data {
		if sec != 0 {
			if err := bitmap.Clear(v.dev, v.geo.sectorBitmapStart(), v.geo.SectorBitmapSectors(), int(sec)); err != nil {
				return fmt.Errorf("%w: %v", ErrGeneral, err)
			}
		}
	}

	if err := bitmap.Clear(v.dev, v.geo.inodeBitmapStart(), v.geo.InodeBitmapSectors(), child); err != nil {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	zero := inode.Inode{Data: make([]uint32, v.geo.MaxSectorsPerFile)}
	if err := v.acc.Write(child, zero); err != nil {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}

	parentIno, err := v.acc.Read(parent)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	if _, err := v.dm.RemoveByInode(parent, parentIno, child); err != nil && !errors.Is(err, dirent.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}

	v.debugf("unlink(%q): removed inode %d", path, child)
	return nil
}

// DirSize returns the number of bytes Dir_Read would fill for path's live
// entries, or 0 if path does not resolve to an existing directory.
func (v *Volume) DirSize(path string) int {
	_, child, _, err := v.resolve(path)
	if err != nil || child < 0 {
		return 0
	}
	ino, err := v.acc.Read(child)
	if err != nil || ino.Type != inode.TypeDir {
		return 0
	}
	return int(ino.Size) * v.geo.DirentSize()
}

// DirRead fills buf with path's live directory entries, each packed as
// {fname[MaxName], inode:uint32}, and returns the number of bytes written.
// Fails with ErrBufferTooSmall if len(buf) is less than DirSize(path).
func (v *Volume) DirRead(path string, buf []byte) (int, error) {
	_, child, _, err := v.resolve(path)
	if err != nil || child < 0 {
		return -1, v.notFoundErr(inode.TypeDir)
	}
	ino, err := v.acc.Read(child)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	required := int(ino.Size) * v.geo.DirentSize()
	if len(buf) < required {
		return -1, ErrBufferTooSmall
	}
	entries, err := v.dm.List(ino)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	entrySize := v.geo.DirentSize()
	for i, e := range entries {
		off := i * entrySize
		for j := range buf[off : off+v.geo.MaxName] {
			buf[off+j] = 0
		}
		copy(buf[off:off+v.geo.MaxName], e.Name)
		putUint32(buf[off+v.geo.MaxName:off+entrySize], uint32(e.Inode))
	}
	return required, nil
}
