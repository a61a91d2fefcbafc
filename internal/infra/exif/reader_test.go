package exif

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeOriginalRejectsNonExifFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stacked.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a jpeg"), 0o644))

	_, err := Reader{}.DateTimeOriginal(context.Background(), path)
	assert.Error(t, err)
}

func TestDateTimeOriginalMissingFile(t *testing.T) {
	_, err := Reader{}.DateTimeOriginal(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDateTimeOriginalHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Reader{}.DateTimeOriginal(ctx, "/does/not/matter.jpg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaderLocationDefaultsToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Reader{}.location())

	berlin := time.FixedZone("CET", 3600)
	assert.Equal(t, berlin, Reader{Location: berlin}.location())
}
