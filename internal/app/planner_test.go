package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
	osfs "dwarfcopy/internal/infra/fs"
	"dwarfcopy/internal/logging"
)

func TestPlannerSirilLayout(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)
	work := filepath.Join(t.TempDir(), "work")

	planner := Planner{FS: osfs.OSFS{}, Logger: logging.NewTest(t)}
	plan, err := planner.Plan(context.Background(), sirilFormat(), session, work)
	require.NoError(t, err)

	in := func(name string) string { return filepath.Join(session.Path, name) }

	assert.Equal(t, []string{
		filepath.Join(work, "darks"),
		filepath.Join(work, "lights"),
		filepath.Join(work, "flats"),
		filepath.Join(work, "biases"),
	}, plan.Mkdirs)
	assert.Equal(t, map[string]string{
		in("stacked-16_M1.fits"): "stacked-16_M1.fits",
		in("shotsInfo.json"):     "shotsInfo.json",
		in("0001.fits"):          filepath.Join("lights", "0001.fits"),
		in("0002.fits"):          filepath.Join("lights", "0002.fits"),
		in("preview.jpg"):        "M1-preview.jpg",
	}, plan.Links)
	assert.Equal(t, map[string]string{
		in("notes.txt"): "notes.txt",
	}, plan.Copies)
	assert.Empty(t, plan.Warnings)

	for src := range plan.Links {
		_, dup := plan.Copies[src]
		assert.False(t, dup, "%s planned twice", src)
	}
}

func TestPlannerCopyOnlyBackup(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)

	format := domain.FormatDefinition{
		Name:     "Backup",
		CopyOnly: []domain.CopyRule{{Source: "*", Destination: "${name}"}},
	}
	planner := Planner{FS: osfs.OSFS{}}
	plan, err := planner.Plan(context.Background(), format, session, "/work")
	require.NoError(t, err)

	assert.Empty(t, plan.Links)
	assert.Empty(t, plan.Mkdirs)
	assert.Len(t, plan.Copies, 6, "every regular file, thumbs/ excluded")
}

func TestPlannerZeroMatchesIsNotAnError(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)

	format := domain.FormatDefinition{LinkOrCopy: []domain.CopyRule{{Source: "*.tiff", Destination: "${name}"}}}
	planner := Planner{FS: osfs.OSFS{}}
	plan, err := planner.Plan(context.Background(), format, session, "/work")
	require.NoError(t, err)
	assert.Zero(t, plan.Len())
}

func TestPlannerUnreadableSession(t *testing.T) {
	session := domain.SessionDirectory{Path: filepath.Join(t.TempDir(), "gone")}

	planner := Planner{FS: osfs.OSFS{}}
	_, err := planner.Plan(context.Background(), sirilFormat(), session, "/work")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.PlanFailure))
}

func TestPlannerSkipsEscapingDestinations(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)

	format := domain.FormatDefinition{
		Directories: []string{"../outside"},
		LinkOrCopy:  []domain.CopyRule{{Source: "*.txt", Destination: "../${name}"}},
	}
	planner := Planner{FS: osfs.OSFS{}}
	plan, err := planner.Plan(context.Background(), format, session, "/work")
	require.NoError(t, err)
	assert.Empty(t, plan.Mkdirs)
	assert.Empty(t, plan.Links)
	assert.Len(t, plan.Warnings, 2)
}

func TestPlannerWarnsOnCollidingDestinations(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)

	format := domain.FormatDefinition{
		LinkOrCopy: []domain.CopyRule{{Source: "*.fits", Destination: "lights/frame.fits"}},
		CopyOnly:   []domain.CopyRule{{Source: "*.txt", Destination: "lights/frame.fits"}},
	}
	planner := Planner{FS: osfs.OSFS{}}
	plan, err := planner.Plan(context.Background(), format, session, "/work")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{filepath.Join(session.Path, "0001.fits"): filepath.Join("lights", "frame.fits")}, plan.Links)
	assert.Empty(t, plan.Copies)
	require.Len(t, plan.Warnings, 3, "0002.fits, stacked-16_M1.fits and notes.txt lose to 0001.fits")
	for _, w := range plan.Warnings {
		assert.Contains(t, w, "collides with 0001.fits")
	}
}

func TestPlanCalibrationWarnsOnCollidingDestinations(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)
	darks := filepath.Join(root, "darks")
	writeFile(t, filepath.Join(darks, "0001.fits"), "d1")
	writeFile(t, filepath.Join(darks, "dark_0002.fits"), "d2")

	format := domain.FormatDefinition{
		Darks:      "lights",
		LinkOrCopy: []domain.CopyRule{{Source: "*.fits", Destination: "lights/${name}"}},
	}
	planner := Planner{FS: osfs.OSFS{}}
	plan, err := planner.Plan(context.Background(), format, session, "/work")
	require.NoError(t, err)
	require.NoError(t, planner.PlanCalibration(context.Background(), &plan, format, session, "/work", domain.Calibration{Darks: darks}))

	owner, ok := plan.Claimant(filepath.Join("lights", "0001.fits"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(session.Path, "0001.fits"), owner)
	assert.Contains(t, plan.Links, filepath.Join(darks, "dark_0002.fits"))
	assert.NotContains(t, plan.Links, filepath.Join(darks, "0001.fits"))
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "collides with 0001.fits")
}

func TestPlanCalibration(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)
	darks := filepath.Join(root, "DWARF_DARK", "exp_15_gain_80_bin_1")
	writeFile(t, filepath.Join(darks, "dark_0001.fits"), "d1")
	writeFile(t, filepath.Join(darks, "dark_0002.fits"), "d2")
	require.NoError(t, os.MkdirAll(filepath.Join(darks, "nested"), 0o755))
	work := "/work"

	planner := Planner{FS: osfs.OSFS{}}
	plan, err := planner.Plan(context.Background(), sirilFormat(), session, work)
	require.NoError(t, err)
	mkdirs := len(plan.Mkdirs)

	err = planner.PlanCalibration(context.Background(), &plan, sirilFormat(), session, work, domain.Calibration{Darks: darks})
	require.NoError(t, err)

	assert.Len(t, plan.Mkdirs, mkdirs, "darks directory is already planned")
	assert.Equal(t, filepath.Join("darks", "dark_0001.fits"), plan.Links[filepath.Join(darks, "dark_0001.fits")])
	assert.Equal(t, filepath.Join("darks", "dark_0002.fits"), plan.Links[filepath.Join(darks, "dark_0002.fits")])
	assert.NotContains(t, plan.Links, filepath.Join(darks, "nested"))
}

func TestPlanCalibrationOutsideSessionWarns(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)
	darks := filepath.Join(root, "darks")
	writeFile(t, filepath.Join(darks, "dark_0001.fits"), "d1")

	format := domain.FormatDefinition{Darks: "../DWARF_DARK_EXP_${exp}_GAIN_${gain}_*"}
	plan := domain.NewTransferPlan()

	planner := Planner{FS: osfs.OSFS{}}
	err := planner.PlanCalibration(context.Background(), &plan, format, session, "/work", domain.Calibration{Darks: darks})
	require.NoError(t, err)
	assert.Zero(t, plan.Len())
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "darks")
}

func TestPlanCalibrationFormatWithoutCategory(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)
	darks := filepath.Join(root, "darks")
	writeFile(t, filepath.Join(darks, "dark_0001.fits"), "d1")

	format := domain.FormatDefinition{Name: "Backup", CopyOnly: []domain.CopyRule{{Source: "*", Destination: "${name}"}}}
	plan := domain.NewTransferPlan()

	planner := Planner{FS: osfs.OSFS{}, Logger: logging.NewTest(t)}
	err := planner.PlanCalibration(context.Background(), &plan, format, session, "/work", domain.Calibration{Darks: darks, Flats: darks, Biases: darks})
	require.NoError(t, err)
	assert.Zero(t, plan.Len())
	assert.Empty(t, plan.Warnings)
}

func TestPlanCalibrationUnreadableDirectory(t *testing.T) {
	root := t.TempDir()
	session := m1Session(t, root)
	plan := domain.NewTransferPlan()

	planner := Planner{FS: osfs.OSFS{}}
	err := planner.PlanCalibration(context.Background(), &plan, sirilFormat(), session, "/work", domain.Calibration{Flats: filepath.Join(root, "nope")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.PlanFailure))
}
