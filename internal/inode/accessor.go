package inode

import (
	"fmt"

	"github.com/proyashpodder/minifs/internal/blockdev"
)

// Accessor loads and stores individual inodes from the inode table. Per
// the on-disk layout, inode records are packed consecutively but never
// straddle a sector boundary, so each inode lives entirely within one
// sector at a computable offset.
//
// A single raw inode-table sector is cached across calls (lastSector/lastBuf),
// mirroring the original's cached_inode_sector/cached_inode_buffer. This
// is safe only because minifs is defined as strictly single-threaded
// (see the Concurrency section); the cache is invalidated whenever the
// target sector differs from the cached one.
type Accessor struct {
	dev         blockdev.Device
	tableStart  int
	perSector   int
	maxData     int
	recordBytes int

	lastSector int
	lastBuf    []byte
	cached     bool
}

// NewAccessor builds an Accessor over the inode table beginning at
// tableStart, with perSector inodes packed into every sector and maxData
// data pointers per inode.
func NewAccessor(dev blockdev.Device, tableStart, perSector, maxData int) *Accessor {
	return &Accessor{
		dev:         dev,
		tableStart:  tableStart,
		perSector:   perSector,
		maxData:     maxData,
		recordBytes: byteLen(maxData),
		lastSector:  -1,
	}
}

func (a *Accessor) locate(n int) (sector, offset int) {
	sector = a.tableStart + n/a.perSector
	offset = (n % a.perSector) * a.recordBytes
	return
}

func (a *Accessor) loadSector(sector int) error {
	if a.cached && a.lastSector == sector {
		return nil
	}
	if a.lastBuf == nil {
		a.lastBuf = make([]byte, a.dev.SectorSize())
	}
	if err := a.dev.ReadSector(sector, a.lastBuf); err != nil {
		a.cached = false
		return fmt.Errorf("inode: read sector %d: %w", sector, err)
	}
	a.lastSector = sector
	a.cached = true
	return nil
}

// Read loads and returns a by-value copy of inode n.
func (a *Accessor) Read(n int) (Inode, error) {
	sector, offset := a.locate(n)
	if err := a.loadSector(sector); err != nil {
		return Inode{}, err
	}
	return decode(a.lastBuf[offset:offset+a.recordBytes], a.maxData), nil
}

// Write overwrites inode n with ino and flushes the sector immediately.
func (a *Accessor) Write(n int, ino Inode) error {
	if len(ino.Data) != a.maxData {
		padded := make([]uint32, a.maxData)
		copy(padded, ino.Data)
		ino.Data = padded
	}
	sector, offset := a.locate(n)
	if err := a.loadSector(sector); err != nil {
		return err
	}
	encode(ino, a.lastBuf[offset:offset+a.recordBytes])
	if err := a.dev.WriteSector(sector, a.lastBuf); err != nil {
		a.cached = false
		return fmt.Errorf("inode: write sector %d: %w", sector, err)
	}
	return nil
}

// RecordBytes returns the serialized size of one inode record.
func (a *Accessor) RecordBytes() int { return a.recordBytes }

// MaxData returns the number of data pointers carried per inode.
func (a *Accessor) MaxData() int { return a.maxData }
