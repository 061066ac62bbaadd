package minifs_test

import (
	"errors"
	"testing"

	"github.com/proyashpodder/minifs"
)

func TestWriteReadRoundTrip(t *testing.T) {
	v := newTestVolume(t)
	if err := v.FileCreate("/hello"); err != nil {
		t.Fatalf("FileCreate: %v", err)
	}
	fd, err := v.FileOpen("/hello")
	if err != nil {
		t.Fatalf("FileOpen: %v", err)
	}
	n, err := v.FileWrite(fd, []byte("hello world"))
	if err != nil {
		t.Fatalf("FileWrite: %v", err)
	}
	if n != len("hello world") {
		t.Fatalf("FileWrite = %d, want %d", n, len("hello world"))
	}

	if err := v.FileSeek(fd, 0); err != nil {
		t.Fatalf("FileSeek: %v", err)
	}
	buf := make([]byte, 64)
	n, err = v.FileRead(fd, buf)
	if err != nil {
		t.Fatalf("FileRead: %v", err)
	}
	if string(buf[:n]) != "hello world" {
		t.Fatalf("FileRead = %q, want %q", buf[:n], "hello world")
	}
	if err := v.FileClose(fd); err != nil {
		t.Fatalf("FileClose: %v", err)
	}
}

func TestWriteSpanningMultipleSectors(t *testing.T) {
	v := newTestVolume(t)
	if err := v.FileCreate("/big"); err != nil {
		t.Fatalf("FileCreate: %v", err)
	}
	fd, err := v.FileOpen("/big")
	if err != nil {
		t.Fatalf("FileOpen: %v", err)
	}

	geo := v.Geometry()
	payload := make([]byte, geo.SectorSize+100)
	for i := range payload {
		payload[i] = byte(i % 251)
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
}

func TestWriteBeyondMaxSectorsPerFileFails(t *testing.T) {
	v := newTestVolume(t)
	if err := v.FileCreate("/huge"); err != nil {
		t.Fatalf("FileCreate: %v", err)
	}
	fd, err := v.FileOpen("/huge")
	if err != nil {
		t.Fatalf("FileOpen: %v", err)
	}

	geo := v.Geometry()
	payload := make([]byte, geo.SectorSize*(geo.MaxSectorsPerFile+1))
	n, err := v.FileWrite(fd, payload)
	if !errors.Is(err, minifs.ErrFileTooBig) {
		t.Fatalf("FileWrite beyond capacity = (%d, %v), want ErrFileTooBig", n, err)
	}
	if n != -1 {
		t.Fatalf("FileWrite on a hard failure returned %d, want -1", n)
	}

	// The bytes that did fit before hitting the limit must still be on disk.
	if err := v.FileSeek(fd, 0); err != nil {
		t.Fatalf("FileSeek: %v", err)
	}
	readBack := make([]byte, geo.SectorSize*geo.MaxSectorsPerFile)
	got, err := v.FileRead(fd, readBack)
	if err != nil {
		t.Fatalf("FileRead: %v", err)
	}
	if got != len(readBack) {
		t.Fatalf("FileRead after a too-big write = %d, want %d (partial progress should be committed)", got, len(readBack))
	}
}

func TestSeekOutOfBoundsFails(t *testing.T) {
	v := newTestVolume(t)
	if err := v.FileCreate("/s"); err != nil {
		t.Fatalf("FileCreate: %v", err)
	}
	fd, err := v.FileOpen("/s")
	if err != nil {
		t.Fatalf("FileOpen: %v", err)
	}
	if _, err := v.FileWrite(fd, []byte("abc")); err != nil {
		t.Fatalf("FileWrite: %v", err)
	}
	if err := v.FileSeek(fd, -1); !errors.Is(err, minifs.ErrSeekOutOfBounds) {
		t.Fatalf("FileSeek(-1) = %v, want ErrSeekOutOfBounds", err)
	}
	if err := v.FileSeek(fd, 4); !errors.Is(err, minifs.ErrSeekOutOfBounds) {
		t.Fatalf("FileSeek(past end) = %v, want ErrSeekOutOfBounds", err)
	}
	if err := v.FileSeek(fd, 3); err != nil {
		t.Fatalf("FileSeek(at end) = %v, want nil", err)
	}
}

func TestOpenNonexistentFileFails(t *testing.T) {
	v := newTestVolume(t)
	if _, err := v.FileOpen("/ghost"); !errors.Is(err, minifs.ErrNoSuchFile) {
		t.Fatalf("FileOpen(/ghost) = %v, want ErrNoSuchFile", err)
	}
}

func TestOpenDirectoryAsFileFails(t *testing.T) {
	v := newTestVolume(t)
	if err := v.DirCreate("/d"); err != nil {
		t.Fatalf("DirCreate: %v", err)
	}
	if _, err := v.FileOpen("/d"); !errors.Is(err, minifs.ErrNoSuchFile) {
		t.Fatalf("FileOpen(directory) = %v, want ErrNoSuchFile", err)
	}
}

func TestTooManyOpenFiles(t *testing.T) {
	v := newTestVolume(t)
	geo := v.Geometry()
	for i := 0; i < geo.MaxOpenFiles; i++ {
		name := "/o" + string(rune('a'+i))
		if err := v.FileCreate(name); err != nil {
			t.Fatalf("FileCreate(%s): %v", name, err)
		}
		if _, err := v.FileOpen(name); err != nil {
			t.Fatalf("FileOpen(%s): %v", name, err)
		}
	}
	if err := v.FileCreate("/one-more"); err != nil {
		t.Fatalf("FileCreate(/one-more): %v", err)
	}
	if _, err := v.FileOpen("/one-more"); !errors.Is(err, minifs.ErrTooManyOpenFiles) {
		t.Fatalf("FileOpen beyond MaxOpenFiles = %v, want ErrTooManyOpenFiles", err)
	}
}

func TestBadFdOperationsFail(t *testing.T) {
	v := newTestVolume(t)
	if _, err := v.FileRead(99, make([]byte, 1)); !errors.Is(err, minifs.ErrBadFd) {
		t.Fatalf("FileRead(bad fd) = %v, want ErrBadFd", err)
	}
	if _, err := v.FileWrite(99, []byte("x")); !errors.Is(err, minifs.ErrBadFd) {
		t.Fatalf("FileWrite(bad fd) = %v, want ErrBadFd", err)
	}
	if err := v.FileSeek(99, 0); !errors.Is(err, minifs.ErrBadFd) {
		t.Fatalf("FileSeek(bad fd) = %v, want ErrBadFd", err)
	}
	if err := v.FileClose(99); !errors.Is(err, minifs.ErrBadFd) {
		t.Fatalf("FileClose(bad fd) = %v, want ErrBadFd", err)
	}
}
