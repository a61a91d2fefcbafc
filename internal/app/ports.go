package app

import (
	"context"
	"io/fs"
	"time"
)

// FileSystem is the capability set the engine needs from a source or target.
// Paths are native absolute paths; Glob patterns are slash-separated and
// relative to root, and may climb out of it with leading "../" segments.
type FileSystem interface {
	ReadDir(path string) ([]fs.DirEntry, error)
	Stat(path string) (fs.FileInfo, error)
	Exists(path string) (bool, error)
	ReadFile(path string) ([]byte, error)
	Glob(root, pattern string) ([]string, error)
	MkdirAll(path string, perm fs.FileMode) error
	Mkdir(path string, perm fs.FileMode) error
	CopyFile(src, dst string) (int64, error)
	Link(src, dst string) error
	Symlink(src, dst string) error
	Rename(oldpath, newpath string) error
	RemoveAll(path string) error
}

type ExifReader interface {
	DateTimeOriginal(ctx context.Context, path string) (time.Time, error)
}
