package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
	osfs "dwarfcopy/internal/infra/fs"
	"dwarfcopy/internal/logging"
)

func TestCompileGrammar(t *testing.T) {
	re, err := CompileGrammar("PRE.FIX_<a>_<b>")
	require.NoError(t, err)

	m := re.FindStringSubmatch("PRE.FIX_one_two_three")
	require.NotNil(t, m)
	assert.Equal(t, "one", m[re.SubexpIndex("a")])
	assert.Equal(t, "two_three", m[re.SubexpIndex("b")])

	assert.Nil(t, re.FindStringSubmatch("PREXFIX_one_two"), "literal dot must be escaped")
}

func TestDiscoveryFindsSessions(t *testing.T) {
	root := t.TempDir()
	m1Session(t, root)

	// Not sessions: no metadata, bad name, a plain file, an unrelated dir.
	writeFile(t, filepath.Join(root, "DWARF_RAW_M31_EXP_15_GAIN_80_2024-01-19-20-00-00-000", "0001.fits"), "x")
	writeFile(t, filepath.Join(root, "DWARF_RAW_bogus", domain.MetadataFileName), m1ShotsInfo)
	writeFile(t, filepath.Join(root, "DWARF_RAW_file"), "x")
	writeFile(t, filepath.Join(root, "DWARF_DARK", "exp_15_gain_80_bin_1", "0001.fits"), "x")

	d := Discovery{FS: osfs.OSFS{}, Logger: logging.NewTest(t)}
	sessions, err := d.Collect(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	assert.Equal(t, m1SessionName, s.Name())
	assert.Equal(t, "M1", s.Metadata.TargetName)
	assert.Equal(t, time.Date(2024, 1, 18, 21, 4, 26, 954_000_000, time.UTC), s.Timestamp)
}

func TestDiscoverySkipsMalformedMetadata(t *testing.T) {
	root := t.TempDir()
	m1Session(t, root)
	broken := filepath.Join(root, "DWARF_RAW_M42_EXP_10_GAIN_60_2024-02-01-22-00-00-000")
	writeFile(t, filepath.Join(broken, domain.MetadataFileName), `{"target": "M42"}`)
	badDate := filepath.Join(root, "DWARF_RAW_M45_EXP_10_GAIN_60_2024-13-01-22-00-00-000")
	writeFile(t, filepath.Join(badDate, domain.MetadataFileName), m1ShotsInfo)

	var skipped []string
	d := Discovery{
		FS:     osfs.OSFS{},
		Logger: logging.NewTest(t),
		OnSkipped: func(path string, err error) {
			assert.True(t, appErrors.Is(err, appErrors.MetadataFailure))
			skipped = append(skipped, filepath.Base(path))
		},
	}

	sessions, err := d.Collect(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "M1", sessions[0].Metadata.TargetName)
	assert.ElementsMatch(t, []string{filepath.Base(broken), filepath.Base(badDate)}, skipped)
}

func TestDiscoveryUnreadableRoot(t *testing.T) {
	d := Discovery{FS: osfs.OSFS{}}
	_, err := d.Collect(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.DiscoveryFailure))
}

func TestDiscoveryStopsWhenCancelled(t *testing.T) {
	root := t.TempDir()
	m1Session(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := Discovery{FS: osfs.OSFS{}}
	_, err := d.Collect(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscoveryRescansOnEachCall(t *testing.T) {
	root := t.TempDir()
	d := Discovery{FS: osfs.OSFS{}}
	seq := d.Sessions(context.Background(), root)

	count := func() int {
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}
		return n
	}

	assert.Equal(t, 0, count())
	m1Session(t, root)
	assert.Equal(t, 1, count())
}
