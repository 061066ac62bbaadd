// Package dirent implements the directory entry manager: appending,
// searching, and removing directory entries within a directory inode's
// data sectors.
package dirent

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/proyashpodder/minifs/internal/bitmap"
	"github.com/proyashpodder/minifs/internal/blockdev"
	"github.com/proyashpodder/minifs/internal/inode"
)

// ErrNotFound is returned by Find and RemoveByInode when no matching
// entry exists.
var ErrNotFound = errors.New("dirent: not found")

// Entry is one directory entry: a NUL-terminated name and the inode it
// names.
type Entry struct {
	Name  string
	Inode int
}

// Manager appends, finds, and removes entries within a directory inode's
// data blocks. It allocates new data sectors from the sector bitmap as a
// directory grows.
type Manager struct {
	dev               blockdev.Device
	acc               *inode.Accessor
	maxName           int
	entrySize         int
	entriesPerSector  int
	sectorBitmapStart int
	sectorBitmapNum   int
	totalSectors      int
}

// NewManager builds a Manager. maxName is MAX_NAME (including the NUL
// terminator); sectorBitmapStart/sectorBitmapNum/totalSectors describe the
// sector bitmap used to allocate new directory data sectors.
func NewManager(dev blockdev.Device, acc *inode.Accessor, maxName, sectorBitmapStart, sectorBitmapNum, totalSectors int) *Manager {
	entrySize := maxName + 4
	return &Manager{
		dev:               dev,
		acc:               acc,
		maxName:           maxName,
		entrySize:         entrySize,
		entriesPerSector:  dev.SectorSize() / entrySize,
		sectorBitmapStart: sectorBitmapStart,
		sectorBitmapNum:   sectorBitmapNum,
		totalSectors:      totalSectors,
	}
}

// EntrySize returns the serialized size of one directory entry.
func (m *Manager) EntrySize() int { return m.entrySize }

// EntriesPerSector returns how many entries are packed per sector.
func (m *Manager) EntriesPerSector() int { return m.entriesPerSector }

func (m *Manager) encodeEntry(e Entry, buf []byte) error {
	if len(e.Name)+1 > m.maxName {
		return fmt.Errorf("dirent: name %q exceeds %d bytes", e.Name, m.maxName-1)
	}
	for i := range buf[:m.maxName] {
		buf[i] = 0
	}
	copy(buf, e.Name)
	binary.LittleEndian.PutUint32(buf[m.maxName:m.maxName+4], uint32(e.Inode))
	return nil
}

func (m *Manager) decodeEntry(buf []byte) Entry {
	end := 0
	for end < m.maxName && buf[end] != 0 {
		end++
	}
	return Entry{
		Name:  string(buf[:end]),
		Inode: int(binary.LittleEndian.Uint32(buf[m.maxName : m.maxName+4])),
	}
}

// Append adds a new entry (name, childInode) to the directory described
// by parent, persisting the entry's sector before the parent inode's
// bumped size, so a crash between the two writes can never leave the
// directory claiming an entry that was not actually written.
func (m *Manager) Append(parentNum int, parent inode.Inode, name string, childInode int) (inode.Inode, error) {
	k := int(parent.Size) / m.entriesPerSector
	sectorBuf := make([]byte, m.dev.SectorSize())

	if int(parent.Size)%m.entriesPerSector == 0 {
		newSector, err := bitmap.FirstUnused(m.dev, m.sectorBitmapStart, m.sectorBitmapNum, m.totalSectors)
		if err != nil {
			return parent, fmt.Errorf("dirent: allocating directory sector: %w", err)
		}
		if k >= len(parent.Data) {
			_ = bitmap.Clear(m.dev, m.sectorBitmapStart, m.sectorBitmapNum, newSector)
			return parent, fmt.Errorf("dirent: directory exceeds %d data sectors", len(parent.Data))
		}
		parent.Data[k] = uint32(newSector)
	} else {
		if err := m.dev.ReadSector(int(parent.Data[k]), sectorBuf); err != nil {
			return parent, fmt.Errorf("dirent: read directory sector: %w", err)
		}
	}

	offset := (int(parent.Size) % m.entriesPerSector) * m.entrySize
	if err := m.encodeEntry(Entry{Name: name, Inode: childInode}, sectorBuf[offset:offset+m.entrySize]); err != nil {
		return parent, err
	}
	if err := m.dev.WriteSector(int(parent.Data[k]), sectorBuf); err != nil {
		return parent, fmt.Errorf("dirent: write directory sector: %w", err)
	}

	parent.Size++
	if err := m.acc.Write(parentNum, parent); err != nil {
		return parent, fmt.Errorf("dirent: update parent inode: %w", err)
	}
	return parent, nil
}

// Find scans parent's live entries for name and returns the matching
// child inode, or ErrNotFound.
func (m *Manager) Find(parent inode.Inode, name string) (int, error) {
	remaining := int(parent.Size)
	sectorBuf := make([]byte, m.dev.SectorSize())
	for k := 0; remaining > 0; k++ {
		if err := m.dev.ReadSector(int(parent.Data[k]), sectorBuf); err != nil {
			return -1, fmt.Errorf("dirent: read directory sector: %w", err)
		}
		n := m.entriesPerSector
		if remaining < n {
			n = remaining
		}
		for i := 0; i < n; i++ {
			off := i * m.entrySize
			e := m.decodeEntry(sectorBuf[off : off+m.entrySize])
			if e.Name == name {
				return e.Inode, nil
			}
		}
		remaining -= n
	}
	return -1, ErrNotFound
}

// List returns every live entry in parent, in on-disk order.
func (m *Manager) List(parent inode.Inode) ([]Entry, error) {
	remaining := int(parent.Size)
	sectorBuf := make([]byte, m.dev.SectorSize())
	entries := make([]Entry, 0, remaining)
	for k := 0; remaining > 0; k++ {
		if err := m.dev.ReadSector(int(parent.Data[k]), sectorBuf); err != nil {
			return nil, fmt.Errorf("dirent: read directory sector: %w", err)
		}
		n := m.entriesPerSector
		if remaining < n {
			n = remaining
		}
		for i := 0; i < n; i++ {
			off := i * m.entrySize
			entries = append(entries, m.decodeEntry(sectorBuf[off:off+m.entrySize]))
		}
		remaining -= n
	}
	return entries, nil
}

// RemoveByInode finds the entry naming childInode and removes it by
// compacting: the last live entry is moved into the freed slot before
// size is decremented, preserving invariant I6 (the last sector's tail
// entries are always zeroed). This is the documented resolution of the
// compaction-vs-holes open question.
func (m *Manager) RemoveByInode(parentNum int, parent inode.Inode, childInode int) (inode.Inode, error) {
	if parent.Size == 0 {
		return parent, ErrNotFound
	}
	total := int(parent.Size)
	sectorBuf := make([]byte, m.dev.SectorSize())

	targetSector, targetOff := -1, -1
	lastSector, lastOff := -1, -1
	var lastEntryBuf []byte

	remaining := total
	for k := 0; remaining > 0; k++ {
		if err := m.dev.ReadSector(int(parent.Data[k]), sectorBuf); err != nil {
			return parent, fmt.Errorf("dirent: read directory sector: %w", err)
		}
		n := m.entriesPerSector
		if remaining < n {
			n = remaining
		}
		for i := 0; i < n; i++ {
			off := i * m.entrySize
			e := m.decodeEntry(sectorBuf[off : off+m.entrySize])
			globalIdx := total - remaining + i
			if e.Inode == childInode {
				targetSector, targetOff = int(parent.Data[k]), off
			}
			if globalIdx == total-1 {
				lastSector, lastOff = int(parent.Data[k]), off
				lastEntryBuf = append([]byte(nil), sectorBuf[off:off+m.entrySize]...)
			}
		}
		remaining -= n
	}

	if targetSector == -1 {
		return parent, ErrNotFound
	}

	if targetSector == lastSector && targetOff == lastOff {
		if err := m.zeroEntry(targetSector, targetOff); err != nil {
			return parent, err
		}
	} else {
		if err := m.writeEntryBytes(targetSector, targetOff, lastEntryBuf); err != nil {
			return parent, err
		}
		if err := m.zeroEntry(lastSector, lastOff); err != nil {
			return parent, err
		}
	}

	parent.Size--

	oldSectors := ceilDiv(total, m.entriesPerSector)
	newSectors := ceilDiv(int(parent.Size), m.entriesPerSector)
	if newSectors < oldSectors {
		freed := int(parent.Data[oldSectors-1])
		if err := bitmap.Clear(m.dev, m.sectorBitmapStart, m.sectorBitmapNum, freed); err != nil {
			return parent, fmt.Errorf("dirent: free trailing directory sector: %w", err)
		}
		parent.Data[oldSectors-1] = 0
	}

	if err := m.acc.Write(parentNum, parent); err != nil {
		return parent, fmt.Errorf("dirent: update parent inode: %w", err)
	}
	return parent, nil
}

func ceilDiv(a, b int) int {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func (m *Manager) zeroEntry(sector, off int) error {
	buf := make([]byte, m.dev.SectorSize())
	if err := m.dev.ReadSector(sector, buf); err != nil {
		return fmt.Errorf("dirent: read directory sector: %w", err)
	}
	for i := off; i < off+m.entrySize; i++ {
		buf[i] = 0
	}
	if err := m.dev.WriteSector(sector, buf); err != nil {
		return fmt.Errorf("dirent: write directory sector: %w", err)
	}
	return nil
}

func (m *Manager) writeEntryBytes(sector, off int, entryBytes []byte) error {
	buf := make([]byte, m.dev.SectorSize())
	if err := m.dev.ReadSector(sector, buf); err != nil {
		return fmt.Errorf("dirent: read directory sector: %w", err)
	}
	copy(buf[off:off+m.entrySize], entryBytes)
	if err := m.dev.WriteSector(sector, buf); err != nil {
		return fmt.Errorf("dirent: write directory sector: %w", err)
	}
	return nil
}
