package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/domain"
	osfs "dwarfcopy/internal/infra/fs"
)

const m1ShotsInfo = `{
	"DEC": 22.0145,
	"RA": 83.6331,
	"binning": "1*1",
	"exp": "15",
	"format": "FITS",
	"gain": 80,
	"ir": "PASS",
	"shotsStacked": 10,
	"shotsTaken": 12,
	"shotsToTake": 20,
	"target": "M1"
}`

const m1SessionName = "DWARF_RAW_M1_EXP_15_GAIN_80_2024-01-18-21-04-26-954"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// m1Session lays out a small session under root and returns it as discovery
// would.
func m1Session(t *testing.T, root string) domain.SessionDirectory {
	t.Helper()
	dir := filepath.Join(root, m1SessionName)
	writeFile(t, filepath.Join(dir, domain.MetadataFileName), m1ShotsInfo)
	writeFile(t, filepath.Join(dir, "stacked-16_M1.fits"), "stacked")
	writeFile(t, filepath.Join(dir, "0001.fits"), "frame one")
	writeFile(t, filepath.Join(dir, "0002.fits"), "frame two")
	writeFile(t, filepath.Join(dir, "preview.jpg"), "jpeg")
	writeFile(t, filepath.Join(dir, "notes.txt"), "notes")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "thumbs"), 0o755))

	meta, err := domain.ParseMetadata([]byte(m1ShotsInfo))
	require.NoError(t, err)
	return domain.SessionDirectory{
		Path:      dir,
		Metadata:  meta,
		Timestamp: time.Date(2024, 1, 18, 21, 4, 26, 954*int(time.Millisecond), time.UTC),
	}
}

func sirilFormat() domain.FormatDefinition {
	return domain.FormatDefinition{
		Name:        "Siril",
		Path:        "${target}_EXP_${exp}_GAIN_${gain}_${Y}_${M}_${d}",
		Darks:       "darks",
		Flats:       "flats",
		Biases:      "biases",
		Directories: []string{"darks", "lights", "flats", "biases"},
		LinkOrCopy: []domain.CopyRule{
			{Source: "stacked-16_*.fits", Destination: "${name}"},
			{Source: "shotsInfo.json", Destination: "shotsInfo.json"},
			{Source: "*.fits", Destination: "lights/${name}"},
			{Source: "*.jpg", Destination: "${target}-${name}"},
		},
		CopyOnly: []domain.CopyRule{
			{Source: "*", Destination: "${name}"},
		},
	}
}

// recordingFS is the real filesystem with failure injection and a count of
// executed copies and links.
type recordingFS struct {
	osfs.OSFS

	// FailOn makes copies and links of files with these base names fail.
	FailOn map[string]bool
	// DryRun skips touching the disk for copies and links.
	DryRun bool

	mu     sync.Mutex
	copied map[string]int
	linked map[string]int
}

func newRecordingFS() *recordingFS {
	return &recordingFS{FailOn: map[string]bool{}, copied: map[string]int{}, linked: map[string]int{}}
}

func (r *recordingFS) CopyFile(src, dst string) (int64, error) {
	if r.FailOn[filepath.Base(src)] {
		return 0, errors.Errorf("injected failure for %s", filepath.Base(src))
	}
	r.mu.Lock()
	r.copied[src]++
	r.mu.Unlock()
	if r.DryRun {
		return 1, nil
	}
	return r.OSFS.CopyFile(src, dst)
}

func (r *recordingFS) Symlink(src, dst string) error {
	if r.FailOn[filepath.Base(src)] {
		return errors.Errorf("injected failure for %s", filepath.Base(src))
	}
	r.mu.Lock()
	r.linked[src]++
	r.mu.Unlock()
	if r.DryRun {
		return nil
	}
	return r.OSFS.Symlink(src, dst)
}

func (r *recordingFS) Copied() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.copied))
	for k, v := range r.copied {
		out[k] = v
	}
	return out
}

type fixedExif struct {
	ts  time.Time
	err error
}

func (f fixedExif) DateTimeOriginal(ctx context.Context, path string) (time.Time, error) {
	return f.ts, f.err
}
