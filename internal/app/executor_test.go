package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwarfcopy/internal/domain"
	osfs "dwarfcopy/internal/infra/fs"
)

func TestParseLinkType(t *testing.T) {
	for in, want := range map[string]LinkType{"": LinkSymbolic, "symlink": LinkSymbolic, "hardlink": LinkHard} {
		got, err := ParseLinkType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLinkType("reflink")
	assert.Error(t, err)
}

func TestExecutorHardLink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "0001.fits")
	dst := filepath.Join(dir, "dst", "0001.fits")
	writeFile(t, src, "frame")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	exec := Executor{FS: osfs.OSFS{}, LinkType: LinkHard}
	n, err := exec.Execute(domain.LinkCommand(src, dst, filepath.Dir(src), filepath.Dir(dst)))
	require.NoError(t, err)
	assert.Zero(t, n)

	srcInfo, err := os.Stat(src)
	require.NoError(t, err)
	dstInfo, err := os.Lstat(dst)
	require.NoError(t, err)
	assert.True(t, os.SameFile(srcInfo, dstInfo))
}

func TestExecutorCopyReportsBytes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	dst := filepath.Join(dir, "out", "notes.txt")
	writeFile(t, src, "notes")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	n, err := (&Executor{FS: osfs.OSFS{}}).Execute(domain.CopyCommand(src, dst, dir, filepath.Dir(dst)))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestExecutorRejectsQuit(t *testing.T) {
	_, err := (&Executor{FS: osfs.OSFS{}}).Execute(domain.QuitCommand)
	assert.Error(t, err)

	_, err = (&Executor{}).Execute(domain.QuitCommand)
	assert.Error(t, err)
}
