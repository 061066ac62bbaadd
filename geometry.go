package minifs

import "fmt"

// OSMagic is the 32-bit signature stamped into the first four bytes of the
// superblock.
const OSMagic uint32 = 0xdeadbeef

// Geometry is the set of compile-time parameters the original spec fixed
// as #defines. Making it a value instead of package-level constants is the
// one generalization this rendering needs over the C source: it lets a
// single process host more than one volume, each with its own parameters,
// without any other change to the core's logic.
type Geometry struct {
	// SectorSize is bytes per sector; must be a power of two, >= 512.
	SectorSize int
	// TotalSectors is the total number of sectors in the image.
	TotalSectors int
	// MaxFiles is the inode table capacity.
	MaxFiles int
	// MaxSectorsPerFile is the number of direct block pointers per inode.
	MaxSectorsPerFile int
	// MaxName is bytes per filename including the NUL terminator.
	MaxName int
	// MaxPath is bytes per path including the NUL terminator.
	MaxPath int
	// MaxOpenFiles is the size of the open-file table.
	MaxOpenFiles int
	// Compress selects the codec applied to file data sectors. Zero value
	// is CompressNone, matching the original format byte-for-byte.
	Compress Compression
}

// DefaultGeometry reproduces the original LibFS.c constants: 512-byte
// sectors, 256 inodes, 30 direct blocks per file, 16-byte names, 256-byte
// paths, 256 open files, and enough total sectors to host that layout plus
// a useful amount of data.
var DefaultGeometry = Geometry{
	SectorSize:        512,
	TotalSectors:      4096,
	MaxFiles:          256,
	MaxSectorsPerFile: 30,
	MaxName:           16,
	MaxPath:           256,
	MaxOpenFiles:      256,
	Compress:          CompressNone,
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// InodeBitmapSectors returns the number of sectors the inode bitmap
// occupies.
func (g Geometry) InodeBitmapSectors() int {
	return ceilDiv(ceilDiv(g.MaxFiles, 8), g.SectorSize)
}

// SectorBitmapSectors returns the number of sectors the sector bitmap
// occupies.
func (g Geometry) SectorBitmapSectors() int {
	return ceilDiv(ceilDiv(g.TotalSectors, 8), g.SectorSize)
}

// InodeRecordBytes returns the serialized size of one inode record.
func (g Geometry) InodeRecordBytes() int {
	return 8 + 4*g.MaxSectorsPerFile
}

// InodesPerSector returns how many inode records fit, without straddling,
// in one sector.
func (g Geometry) InodesPerSector() int {
	return g.SectorSize / g.InodeRecordBytes()
}

// InodeTableSectors returns the number of sectors the inode table
// occupies.
func (g Geometry) InodeTableSectors() int {
	return ceilDiv(g.MaxFiles, g.InodesPerSector())
}

// DirentSize returns the serialized size of one directory entry.
func (g Geometry) DirentSize() int {
	return g.MaxName + 4
}

// DirentsPerSector returns how many directory entries fit, without
// straddling, in one sector.
func (g Geometry) DirentsPerSector() int {
	return g.SectorSize / g.DirentSize()
}

// Layout sector numbers, in the byte-exact order fixed by §6:
// superblock, inode bitmap, sector bitmap, inode table, data blocks.
const superblockStart = 0

func (g Geometry) inodeBitmapStart() int { return superblockStart + 1 }
func (g Geometry) sectorBitmapStart() int {
	return g.inodeBitmapStart() + g.InodeBitmapSectors()
}
func (g Geometry) inodeTableStart() int {
	return g.sectorBitmapStart() + g.SectorBitmapSectors()
}

// DataBlockStart returns the first sector available for file and
// directory data.
func (g Geometry) DataBlockStart() int {
	return g.inodeTableStart() + g.InodeTableSectors()
}

// Validate checks the parameter constraints from §3.
func (g Geometry) Validate() error {
	if g.SectorSize < 512 || g.SectorSize&(g.SectorSize-1) != 0 {
		return fmt.Errorf("minifs: sector size %d must be a power of two >= 512", g.SectorSize)
	}
	if g.MaxFiles < 1 {
		return fmt.Errorf("minifs: max files must be >= 1")
	}
	if g.MaxSectorsPerFile < 1 {
		return fmt.Errorf("minifs: max sectors per file must be >= 1")
	}
	if g.MaxName < 2 {
		return fmt.Errorf("minifs: max name must be >= 2")
	}
	if g.MaxPath < 2 {
		return fmt.Errorf("minifs: max path must be >= 2")
	}
	if g.MaxOpenFiles < 1 {
		return fmt.Errorf("minifs: max open files must be >= 1")
	}
	if g.InodeRecordBytes() > g.SectorSize {
		return fmt.Errorf("minifs: inode record of %d bytes does not fit in a %d-byte sector", g.InodeRecordBytes(), g.SectorSize)
	}
	if g.DirentSize() > g.SectorSize {
		return fmt.Errorf("minifs: directory entry of %d bytes does not fit in a %d-byte sector", g.DirentSize(), g.SectorSize)
	}
	if g.TotalSectors < g.DataBlockStart()+1 {
		return fmt.Errorf("minifs: total sectors %d too small for layout overhead of %d sectors", g.TotalSectors, g.DataBlockStart())
	}
	return nil
}
