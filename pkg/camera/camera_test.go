package camera

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearStaging(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"image_1.jpg", "image_2.jpg", "leftover.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("stale"), 0o644))
	}
	// Non-image files survive a clear.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	removed, err := ClearStaging(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes.txt", entries[0].Name())
}

func TestClearStagingEmptyDir(t *testing.T) {
	removed, err := ClearStaging(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestFrameNameSortsInCaptureOrder(t *testing.T) {
	names := []string{FrameName(3), FrameName(1), FrameName(2)}
	sort.Strings(names)

	assert.Equal(t, []string{"image_1.jpg", "image_2.jpg", "image_3.jpg"}, names)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("images")

	assert.Equal(t, []int{0, 1}, cfg.DeviceIDs)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, 10, cfg.WarmupReads)
	assert.Equal(t, 5, cfg.ReadsPerShot)
	assert.InDelta(t, 1.3, cfg.Alpha, 1e-6)
	assert.InDelta(t, 20, cfg.Beta, 1e-6)
	assert.Equal(t, "images", cfg.StagingDir)
}
