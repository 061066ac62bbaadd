//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package blockdev

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile flushes f's data to stable storage via fdatasync.
func syncFile(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
