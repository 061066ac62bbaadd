package blockdev

import (
	"errors"
	"fmt"
	"os"
)

// FileBackedDevice holds the entire disk image in memory and mirrors it to
// a host file on Load/Save, exactly as the original Disk_Init/Disk_Load/
// Disk_Save contract describes: sector reads and writes never touch the
// host file directly, only Load and Save do.
type FileBackedDevice struct {
	sectorSize   int
	totalSectors int
	image        []byte
}

var _ Device = (*FileBackedDevice)(nil)

// New creates a fresh, zeroed in-memory image of the given geometry. This
// is the equivalent of Disk_Init().
func New(sectorSize, totalSectors int) *FileBackedDevice {
	return &FileBackedDevice{
		sectorSize:   sectorSize,
		totalSectors: totalSectors,
		image:        make([]byte, sectorSize*totalSectors),
	}
}

func (d *FileBackedDevice) SectorSize() int    { return d.sectorSize }
func (d *FileBackedDevice) TotalSectors() int  { return d.totalSectors }
func (d *FileBackedDevice) imageSize() int64   { return int64(d.sectorSize) * int64(d.totalSectors) }

func (d *FileBackedDevice) bounds(sector int, buf []byte) error {
	if sector < 0 || sector >= d.totalSectors {
		return &OutOfRangeError{Sector: sector, Total: d.totalSectors}
	}
	if len(buf) != d.sectorSize {
		return &ShortBufferError{Got: len(buf), Want: d.sectorSize}
	}
	return nil
}

// ReadSector copies the sector's bytes into buf.
func (d *FileBackedDevice) ReadSector(sector int, buf []byte) error {
	if err := d.bounds(sector, buf); err != nil {
		return err
	}
	off := sector * d.sectorSize
	copy(buf, d.image[off:off+d.sectorSize])
	return nil
}

// WriteSector overwrites the sector with buf's bytes.
func (d *FileBackedDevice) WriteSector(sector int, buf []byte) error {
	if err := d.bounds(sector, buf); err != nil {
		return err
	}
	off := sector * d.sectorSize
	copy(d.image[off:off+d.sectorSize], buf)
	return nil
}

// ErrNotExist is returned by Load when the backstore file does not exist,
// the signal that Boot uses to decide to format a new image.
var ErrNotExist = errors.New("blockdev: backstore does not exist")

// ErrWrongSize is returned by Load when the backstore file's length does
// not match this device's geometry.
var ErrWrongSize = errors.New("blockdev: backstore size does not match geometry")

// Load reads path into the in-memory image wholesale. Returns ErrNotExist
// if path does not exist, ErrWrongSize if it exists but its length is
// wrong, or a wrapped I/O error for any other failure.
func (d *FileBackedDevice) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("blockdev: opening backstore %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("blockdev: statting backstore %s: %w", path, err)
	}
	if info.Size() != d.imageSize() {
		return ErrWrongSize
	}

	buf := make([]byte, d.imageSize())
	if _, err := readFull(f, buf); err != nil {
		return fmt.Errorf("blockdev: reading backstore %s: %w", path, err)
	}
	d.image = buf
	return nil
}

// Save writes the entire in-memory image to path, creating it if
// necessary, and flushes it to stable storage (see sync_unix.go /
// sync_other.go).
func (d *FileBackedDevice) Save(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("blockdev: creating backstore %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(d.image); err != nil {
		return fmt.Errorf("blockdev: writing backstore %s: %w", path, err)
	}
	if err := syncFile(f); err != nil {
		return fmt.Errorf("blockdev: flushing backstore %s: %w", path, err)
	}
	return nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
