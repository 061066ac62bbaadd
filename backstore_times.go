package minifs

import (
	"fmt"

	times "gopkg.in/djherbis/times.v1"
)

// BackstoreTimes reports the host file system's access/modify/birth times
// for the backstore file itself, not for anything inside the volume — the
// spec's Non-goals exclude timestamps on minifs inodes, and that stands.
// This is a diagnostic over the host file, useful for an embedder deciding
// whether a volume needs re-syncing.
func (v *Volume) BackstoreTimes() (times.Timespec, error) {
	t, err := times.Stat(v.backstorePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneral, err)
	}
	return t, nil
}
