// Package blockdev implements the sector-addressable block device layer
// the core file system is built on top of. It is deliberately the one
// external collaborator minifs depends on rather than implements: the
// bitmap, inode and dirent packages only ever call through the Device
// interface, while the root minifs package holds a *FileBackedDevice and
// also uses its Load and Save methods.
package blockdev

import "fmt"

// Device is a sector-addressable store. Every operation transfers exactly
// SectorSize() bytes. Implementations are not required to be safe for
// concurrent use.
type Device interface {
	// SectorSize returns the fixed number of bytes per sector.
	SectorSize() int
	// TotalSectors returns the number of addressable sectors.
	TotalSectors() int
	// ReadSector copies SectorSize() bytes from sector into buf.
	ReadSector(sector int, buf []byte) error
	// WriteSector copies SectorSize() bytes from buf into sector.
	WriteSector(sector int, buf []byte) error
}

// OutOfRangeError is returned when a sector index falls outside
// [0, TotalSectors()).
type OutOfRangeError struct {
	Sector int
	Total  int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("sector %d out of range [0,%d)", e.Sector, e.Total)
}

// ShortBufferError is returned when a caller's buffer does not exactly
// match SectorSize().
type ShortBufferError struct {
	Got, Want int
}

func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("buffer size %d does not match sector size %d", e.Got, e.Want)
}
