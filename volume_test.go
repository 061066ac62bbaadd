package minifs_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proyashpodder/minifs"
)

// testGeometry is small enough to keep tests fast while still exercising
// every derived layout computation: one inode table sector, one bitmap
// sector each, and a handful of data sectors.
var testGeometry = minifs.Geometry{
	SectorSize:        512,
	TotalSectors:      32,
	MaxFiles:          8,
	MaxSectorsPerFile: 4,
	MaxName:           16,
	MaxPath:           64,
	MaxOpenFiles:      4,
	Compress:          minifs.CompressNone,
}

func newTestVolume(t *testing.T) *minifs.Volume {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	v, err := minifs.Boot(path, testGeometry)
	require.NoError(t, err, "Boot")
	return v
}

func TestBootFormatsFreshImage(t *testing.T) {
	v := newTestVolume(t)
	if v.DirSize("/") != 0 {
		t.Errorf("DirSize(/) on a freshly formatted image = %d, want 0", v.DirSize("/"))
	}
	if v.Geometry() != testGeometry {
		t.Errorf("Geometry() = %+v, want %+v", v.Geometry(), testGeometry)
	}
}

func TestBootReopensExistingImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.img")
	v1, err := minifs.Boot(path, testGeometry)
	require.NoError(t, err, "Boot (first)")
	require.NoError(t, v1.FileCreate("/hello"))
	require.NoError(t, v1.Sync())
	firstID := v1.ID()

	v2, err := minifs.Boot(path, testGeometry)
	require.NoError(t, err, "Boot (second)")
	if v2.ID() != firstID {
		t.Errorf("ID() after reopen = %v, want %v", v2.ID(), firstID)
	}
	if v2.DirSize("/") == 0 {
		t.Errorf("DirSize(/) after reopen should reflect the persisted file, got 0")
	}
}

func TestBootRejectsWrongSizeBackstore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.img")
	small := minifs.Geometry{
		SectorSize:        512,
		TotalSectors:      8,
		MaxFiles:          4,
		MaxSectorsPerFile: 2,
		MaxName:           16,
		MaxPath:           64,
		MaxOpenFiles:      2,
	}
	if err := small.Validate(); err != nil {
		t.Fatalf("small geometry should validate on its own: %v", err)
	}
	if _, err := minifs.Boot(path, small); err != nil {
		t.Fatalf("Boot (format small): %v", err)
	}

	if _, err := minifs.Boot(path, testGeometry); err == nil {
		t.Fatal("Boot with a mismatched geometry over an existing image should fail")
	}
}

func TestBootRejectsInvalidGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.img")
	bad := testGeometry
	bad.SectorSize = 500
	if _, err := minifs.Boot(path, bad); err == nil {
		t.Fatal("Boot with an invalid geometry should fail validation before touching the backstore")
	}
}

func TestSyncPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.img")
	v, err := minifs.Boot(path, testGeometry)
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if err := v.DirCreate("/d"); err != nil {
		t.Fatalf("DirCreate: %v", err)
	}
	if err := v.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	v2, err := minifs.Boot(path, testGeometry)
	if err != nil {
		t.Fatalf("Boot (reopen): %v", err)
	}
	if v2.DirSize("/") != v.DirSize("/") {
		t.Errorf("DirSize(/) after reopen = %d, want %d", v2.DirSize("/"), v.DirSize("/"))
	}
}
