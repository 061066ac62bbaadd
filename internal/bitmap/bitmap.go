// Package bitmap implements the sector-backed bit arrays used for the
// inode bitmap and the sector bitmap. Unlike an in-memory byte-slice
// bitmap, these bitmaps live in a run of device sectors and every
// operation performs its own read-modify-write against the device; there
// is no cached byte slice held across calls.
//
// Bit order is MSB-first within a byte: bit i of byte b is
// (b >> (7 - i%8)) & 1. This is part of the on-disk format and must not
// change.
package bitmap

import (
	"fmt"

	"github.com/proyashpodder/minifs/internal/blockdev"
)

// ErrFull is returned by FirstUnused when every bit in range is set.
var ErrFull = fmt.Errorf("bitmap: no unused bit available")

func bitsPerSector(dev blockdev.Device) int { return dev.SectorSize() * 8 }

// Init writes out a bitmap of num sectors starting at start, with the
// first nbitsPrefix logical bits set to 1 and everything else 0.
func Init(dev blockdev.Device, start, num, nbitsPrefix int) error {
	sectorSize := dev.SectorSize()
	perSector := bitsPerSector(dev)
	buf := make([]byte, sectorSize)

	for s := 0; s < num; s++ {
		for i := range buf {
			buf[i] = 0
		}
		lo := s * perSector
		hi := lo + perSector
		for bit := lo; bit < hi && bit < nbitsPrefix; bit++ {
			setBit(buf, bit-lo)
		}
		if err := dev.WriteSector(start+s, buf); err != nil {
			return fmt.Errorf("bitmap: init sector %d: %w", start+s, err)
		}
	}
	return nil
}

// FirstUnused scans logical bits [0, nbits), sets the lowest-indexed zero
// bit to 1, persists that sector, and returns the bit's index. It returns
// ErrFull if every bit in range is already 1.
func FirstUnused(dev blockdev.Device, start, num, nbits int) (int, error) {
	sectorSize := dev.SectorSize()
	perSector := bitsPerSector(dev)
	buf := make([]byte, sectorSize)

	remaining := nbits
	for s := 0; s < num && remaining > 0; s++ {
		if err := dev.ReadSector(start+s, buf); err != nil {
			return -1, fmt.Errorf("bitmap: read sector %d: %w", start+s, err)
		}
		limit := perSector
		if remaining < limit {
			limit = remaining
		}
		for bit := 0; bit < limit; bit++ {
			if !isBitSet(buf, bit) {
				setBit(buf, bit)
				if err := dev.WriteSector(start+s, buf); err != nil {
					return -1, fmt.Errorf("bitmap: write sector %d: %w", start+s, err)
				}
				return s*perSector + bit, nil
			}
		}
		remaining -= limit
	}
	return -1, ErrFull
}

// Clear resets bitIndex to 0 and persists the containing sector.
func Clear(dev blockdev.Device, start, num, bitIndex int) error {
	if bitIndex < 0 {
		return fmt.Errorf("bitmap: negative bit index %d", bitIndex)
	}
	perSector := bitsPerSector(dev)
	sector := bitIndex / perSector
	if sector >= num {
		return fmt.Errorf("bitmap: bit index %d out of range for %d sectors", bitIndex, num)
	}
	buf := make([]byte, dev.SectorSize())
	if err := dev.ReadSector(start+sector, buf); err != nil {
		return fmt.Errorf("bitmap: read sector %d: %w", start+sector, err)
	}
	clearBit(buf, bitIndex%perSector)
	if err := dev.WriteSector(start+sector, buf); err != nil {
		return fmt.Errorf("bitmap: write sector %d: %w", start+sector, err)
	}
	return nil
}

// IsSet reports whether bitIndex is set, without mutating anything.
func IsSet(dev blockdev.Device, start, num, bitIndex int) (bool, error) {
	perSector := bitsPerSector(dev)
	sector := bitIndex / perSector
	if sector >= num {
		return false, fmt.Errorf("bitmap: bit index %d out of range for %d sectors", bitIndex, num)
	}
	buf := make([]byte, dev.SectorSize())
	if err := dev.ReadSector(start+sector, buf); err != nil {
		return false, fmt.Errorf("bitmap: read sector %d: %w", start+sector, err)
	}
	return isBitSet(buf, bitIndex%perSector), nil
}

func setBit(buf []byte, bit int)   { buf[bit/8] |= 1 << (7 - uint(bit%8)) }
func clearBit(buf []byte, bit int) { buf[bit/8] &^= 1 << (7 - uint(bit%8)) }
func isBitSet(buf []byte, bit int) bool {
	return buf[bit/8]&(1<<(7-uint(bit%8))) != 0
}
