package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeapAreaRequestAndRelease(t *testing.T) {
	area := NewHeapArea("scratch", 64)
	region, err := area.Request(16, 32)
	assert.NoError(t, err)
	assert.Equal(t, uint64(32), region.Size())
	assert.Equal(t, uint64(16), region.Offset())

	copy(region.Start(), "hello")
	assert.Equal(t, byte('h'), area.Bytes()[16])

	assert.NoError(t, region.Sync())
	area.Release(region)
	assert.NoError(t, area.Close())
}

func TestRequestBeyondEOFFails(t *testing.T) {
	area := NewHeapArea("scratch", 16)
	_, err := area.Request(8, 16)
	if assert.Error(t, err) {
		assert.Equal(t, ErrIORead, err.(*LinkError).Kind)
	}
}

func TestOverlappingViewsSeeEachOther(t *testing.T) {
	area := NewHeapArea("scratch", 32)
	r1, err := area.Request(0, 16)
	assert.NoError(t, err)
	r2, err := area.Request(8, 16)
	assert.NoError(t, err)

	r1.Start()[8] = 0x7f
	assert.NoError(t, r1.Sync())
	assert.Equal(t, byte(0x7f), r2.Start()[0])

	area.Release(r1)
	area.Release(r2)
}

func TestFileAreaRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	area, err := CreateFileArea(path, 128, 0o644)
	assert.NoError(t, err)

	region, err := area.Request(0, 128)
	assert.NoError(t, err)
	copy(region.Start(), "linked bytes")
	assert.NoError(t, region.Sync())
	area.Release(region)
	assert.NoError(t, area.Close())

	got, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Len(t, got, 128)
	assert.Equal(t, "linked bytes", string(got[:12]))

	// Reopen through the read path.
	in, err := OpenFileArea(path)
	assert.NoError(t, err)
	assert.Equal(t, uint64(128), in.Size())
	assert.Equal(t, "linked bytes", string(in.Bytes()[:12]))
	assert.NoError(t, in.Close())
}

func TestOpenMissingFileFails(t *testing.T) {
	_, err := OpenFileArea(filepath.Join(t.TempDir(), "nope"))
	if assert.Error(t, err) {
		assert.Equal(t, ErrIORead, err.(*LinkError).Kind)
	}
}

func TestCloseWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	area, err := CreateFileArea(path, 16, 0o644)
	assert.NoError(t, err)

	region, err := area.Request(0, 16)
	assert.NoError(t, err)

	// Close with a live view: the unmap is deferred.
	assert.NoError(t, area.Close())
	region.Start()[0] = 1
	area.Release(region)

	got, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, byte(1), got[0])
}
