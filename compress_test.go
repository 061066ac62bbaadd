package minifs_test

import (
	"path/filepath"
	"testing"

	"github.com/proyashpodder/minifs"
)

func TestCompressedWriteReadRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		method minifs.Compression
	}{
		{"lz4", minifs.CompressLZ4},
		{"xz", minifs.CompressXZ},
	}
	for _, tc := range cases {
		method := tc.method
		t.Run(tc.name, func(t *testing.T) {
			geo := testGeometry
			geo.Compress = method
			path := filepath.Join(t.TempDir(), "test.img")
			v, err := minifs.Boot(path, geo)
			if err != nil {
				t.Fatalf("Boot: %v", err)
			}

			if err := v.FileCreate("/hello"); err != nil {
				t.Fatalf("FileCreate: %v", err)
			}
			fd, err := v.FileOpen("/hello")
			if err != nil {
				t.Fatalf("FileOpen: %v", err)
			}

			payload := make([]byte, geo.SectorSize+100)
			for i := range payload {
				// Repetitive content, so it actually compresses instead of
				// tripping ErrIncompressibleBlock on noise.
				payload[i] = byte(i % 7)
			}
			n, err := v.FileWrite(fd, payload)
			if err != nil {
				t.Fatalf("FileWrite: %v", err)
			}
			if n != len(payload) {
				t.Fatalf("FileWrite = %d, want %d", n, len(payload))
			}

			if err := v.FileSeek(fd, 0); err != nil {
				t.Fatalf("FileSeek: %v", err)
			}
			got := make([]byte, len(payload))
			n, err = v.FileRead(fd, got)
			if err != nil {
				t.Fatalf("FileRead: %v", err)
			}
			if n != len(payload) {
				t.Fatalf("FileRead = %d, want %d", n, len(payload))
			}
			for i := range payload {
				if got[i] != payload[i] {
					t.Fatalf("byte %d: got %d, want %d", i, got[i], payload[i])
				}
			}
			if err := v.FileClose(fd); err != nil {
				t.Fatalf("FileClose: %v", err)
			}
		})
	}
}
