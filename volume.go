// Package minifs implements a small, educational UNIX-style file system
// that lives entirely inside a fixed-size disk image backed by a host
// file. It exposes a POSIX-flavored API for files and directories under a
// single root "/". See SPEC_FULL.md for the full design.
package minifs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/proyashpodder/minifs/internal/bitmap"
	"github.com/proyashpodder/minifs/internal/blockdev"
	"github.com/proyashpodder/minifs/internal/dirent"
	"github.com/proyashpodder/minifs/internal/inode"
)

// openFile is one entry in the open-file table. An entry with inode == 0
// is free; inode 0 is reserved for root, which is a directory and can
// never be opened as a file.
type openFile struct {
	inode int
	size  int
	pos   int
}

// Volume is a single mounted minifs image. It is not safe for concurrent
// use: minifs is strictly single-threaded, with every operation running
// to completion before the next begins.
type Volume struct {
	geo           Geometry
	dev           *blockdev.FileBackedDevice
	acc           *inode.Accessor
	dm            *dirent.Manager
	backstorePath string
	openFiles     []openFile
	id            uuid.UUID
	log           *logrus.Entry
}

// SetLogger attaches a logrus entry that Volume uses for Debug-level
// tracing of Boot, Sync, create, unlink and open. File writes, seeks,
// closes and sector allocation are not traced. A nil logger (the default)
// is equivalent to a discard logger.
func (v *Volume) SetLogger(entry *logrus.Entry) { v.log = entry }

func (v *Volume) debugf(format string, args ...interface{}) {
	if v.log != nil {
		v.log.Debugf(format, args...)
	}
}

// ID returns the UUID stamped into the superblock when this image was
// formatted, distinguishing one freshly formatted image from another.
func (v *Volume) ID() uuid.UUID { return v.id }

// Geometry returns the geometry this volume was booted with.
func (v *Volume) Geometry() Geometry { return v.geo }

// Boot opens backstore, formatting a new image if it does not exist. It
// fails with ErrGeneral if the file exists but has the wrong length, or
// its magic number does not match.
func Boot(backstore string, geo Geometry) (*Volume, error) {
	if err := geo.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneral, err)
	}

	dev := blockdev.New(geo.SectorSize, geo.TotalSectors)
	v := &Volume{
		geo:           geo,
		dev:           dev,
		backstorePath: backstore,
		openFiles:     make([]openFile, geo.MaxOpenFiles),
	}
	v.acc = inode.NewAccessor(dev, geo.inodeTableStart(), geo.InodesPerSector(), geo.MaxSectorsPerFile)
	v.dm = dirent.NewManager(dev, v.acc, geo.MaxName, geo.sectorBitmapStart(), geo.SectorBitmapSectors(), geo.TotalSectors)

	loadErr := dev.Load(backstore)
	switch {
	case errors.Is(loadErr, blockdev.ErrNotExist):
		if err := v.format(); err != nil {
			return nil, err
		}
		if err := dev.Save(backstore); err != nil {
			return nil, fmt.Errorf("%w: saving formatted image: %v", ErrGeneral, err)
		}
		v.debugf("Boot(%s): formatted new image", backstore)
	case errors.Is(loadErr, blockdev.ErrWrongSize):
		return nil, fmt.Errorf("%w: backstore has wrong size", ErrGeneral)
	case loadErr != nil:
		return nil, fmt.Errorf("%w: %v", ErrGeneral, loadErr)
	default:
		if err := v.checkMagic(); err != nil {
			return nil, err
		}
		if err := v.readSuperblockID(); err != nil {
			return nil, err
		}
		v.debugf("Boot(%s): loaded existing image", backstore)
	}

	return v, nil
}

func (v *Volume) format() error {
	v.id = uuid.New()

	sb := make([]byte, v.geo.SectorSize)
	putUint32(sb[0:4], OSMagic)
	idBytes, _ := v.id.MarshalBinary()
	copy(sb[4:20], idBytes)
	if err := v.dev.WriteSector(superblockStart, sb); err != nil {
		return fmt.Errorf("%w: writing superblock: %v", ErrGeneral, err)
	}

	if err := bitmap.Init(v.dev, v.geo.inodeBitmapStart(), v.geo.InodeBitmapSectors(), 1); err != nil {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	if err := bitmap.Init(v.dev, v.geo.sectorBitmapStart(), v.geo.SectorBitmapSectors(), v.geo.DataBlockStart()); err != nil {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}

	root := inode.Inode{Size: 0, Type: inode.TypeDir, Data: make([]uint32, v.geo.MaxSectorsPerFile)}
	if err := v.acc.Write(0, root); err != nil {
		return fmt.Errorf("%w: writing root inode: %v", ErrGeneral, err)
	}
	for n := 1; n < v.geo.MaxFiles; n++ {
		empty := inode.Inode{Data: make([]uint32, v.geo.MaxSectorsPerFile)}
		if err := v.acc.Write(n, empty); err != nil {
			return fmt.Errorf("%w: zeroing inode table: %v", ErrGeneral, err)
		}
	}
	return nil
}

func (v *Volume) checkMagic() error {
	sb := make([]byte, v.geo.SectorSize)
	if err := v.dev.ReadSector(superblockStart, sb); err != nil {
		return fmt.Errorf("%w: reading superblock: %v", ErrGeneral, err)
	}
	if getUint32(sb[0:4]) != OSMagic {
		return fmt.Errorf("%w: bad superblock magic", ErrGeneral)
	}
	return nil
}

func (v *Volume) readSuperblockID() error {
	sb := make([]byte, v.geo.SectorSize)
	if err := v.dev.ReadSector(superblockStart, sb); err != nil {
		return fmt.Errorf("%w: reading superblock: %v", ErrGeneral, err)
	}
	_ = v.id.UnmarshalBinary(sb[4:20])
	return nil
}

// Sync persists the in-memory image to the host backstore file.
func (v *Volume) Sync() error {
	if err := v.dev.Save(v.backstorePath); err != nil {
		return fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	v.debugf("Sync(%s): saved image", v.backstorePath)
	return nil
}
