package minifs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"
)

// Compression selects the codec applied to a file's data sectors. It is
// the one domain-stack feature this repository adds beyond the distilled
// spec: compression is never mentioned there, so it defaults off and, when
// off, touches nothing about the on-disk format or the read/write path.
type Compression int

const (
	// CompressNone stores data sectors verbatim (the default).
	CompressNone Compression = iota
	// CompressLZ4 compresses each data sector with LZ4.
	CompressLZ4
	// CompressXZ compresses each data sector with XZ.
	CompressXZ
)

// frameHeaderSize is the fixed per-sector framing overhead used when
// compression is enabled: 1 flag byte + 4 length bytes.
const frameHeaderSize = 5

// ErrIncompressibleBlock is returned when a data sector's compressed form
// (plus framing) does not fit back within one sector. Compression is an
// optional, additive feature; this is its one documented limitation, and
// the reason it stays off by default.
var ErrIncompressibleBlock = fmt.Errorf("minifs: compressed block does not fit in one sector")

func compressBlock(method Compression, raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch method {
	case CompressLZ4:
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, fmt.Errorf("minifs: lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("minifs: lz4 compress: %w", err)
		}
	case CompressXZ:
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("minifs: xz compress: %w", err)
		}
		if _, err := w.Write(raw); err != nil {
			return nil, fmt.Errorf("minifs: xz compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("minifs: xz compress: %w", err)
		}
	default:
		return nil, fmt.Errorf("minifs: unknown compression method %d", method)
	}
	return buf.Bytes(), nil
}

func decompressBlock(method Compression, compressed []byte, out []byte) error {
	var r io.Reader
	switch method {
	case CompressLZ4:
		r = lz4.NewReader(bytes.NewReader(compressed))
	case CompressXZ:
		xr, err := xz.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return fmt.Errorf("minifs: xz decompress: %w", err)
		}
		r = xr
	default:
		return fmt.Errorf("minifs: unknown compression method %d", method)
	}
	if _, err := io.ReadFull(r, out); err != nil {
		return fmt.Errorf("minifs: decompress: %w", err)
	}
	return nil
}

// encodeDataSector frames raw (exactly SectorSize bytes of file content)
// for on-disk storage under the volume's compression policy. When
// compression is off, it returns raw unchanged.
func (v *Volume) encodeDataSector(raw []byte) ([]byte, error) {
	if v.geo.Compress == CompressNone {
		return raw, nil
	}
	compressed, err := compressBlock(v.geo.Compress, raw)
	if err != nil {
		return nil, err
	}
	sectorSize := v.geo.SectorSize
	if len(compressed)+frameHeaderSize > sectorSize {
		return nil, ErrIncompressibleBlock
	}
	frame := make([]byte, sectorSize)
	frame[0] = 1
	putUint32(frame[1:5], uint32(len(compressed)))
	copy(frame[frameHeaderSize:], compressed)
	return frame, nil
}

// decodeDataSector reverses encodeDataSector, writing exactly SectorSize
// bytes of file content into out.
func (v *Volume) decodeDataSector(frame []byte, out []byte) error {
	if v.geo.Compress == CompressNone {
		copy(out, frame)
		return nil
	}
	if frame[0] == 0 {
		copy(out, frame[:len(out)])
		return nil
	}
	length := getUint32(frame[1:5])
	return decompressBlock(v.geo.Compress, frame[frameHeaderSize:frameHeaderSize+int(length)], out)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
