// Package inode implements the fixed-size on-disk inode record and the
// accessor that translates inode numbers into (sector, offset) pairs
// within the inode table.
package inode

import "encoding/binary"

// Type distinguishes a regular file from a directory.
type Type uint32

const (
	// TypeFile is a regular file inode.
	TypeFile Type = 0
	// TypeDir is a directory inode.
	TypeDir Type = 1
)

// Inode is the fixed-size metadata record for one file or directory.
// Size is a byte count for files, a directory-entry count for directories.
// Data holds up to maxSectorsPerFile sector indices; unused entries are 0.
type Inode struct {
	Size uint32
	Type Type
	Data []uint32
}

// byteLen returns the serialized length of an inode with maxData data
// pointers: two uint32 header fields plus maxData uint32 data pointers.
func byteLen(maxData int) int {
	return 4 + 4 + 4*maxData
}

// encode writes ino into buf, which must be at least byteLen(len(ino.Data))
// bytes. Unused trailing Data slots beyond len(ino.Data) are not this
// function's concern; callers always pass a fully-sized Data slice.
func encode(ino Inode, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], ino.Size)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(ino.Type))
	for i, d := range ino.Data {
		off := 8 + 4*i
		binary.LittleEndian.PutUint32(buf[off:off+4], d)
	}
}

func decode(buf []byte, maxData int) Inode {
	ino := Inode{
		Size: binary.LittleEndian.Uint32(buf[0:4]),
		Type: Type(binary.LittleEndian.Uint32(buf[4:8])),
		Data: make([]uint32, maxData),
	}
	for i := range ino.Data {
		off := 8 + 4*i
		ino.Data[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	return ino
}
