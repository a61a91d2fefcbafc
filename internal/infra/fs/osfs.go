package fs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

type OSFS struct{}

func (OSFS) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (OSFS) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Glob matches pattern against root using doublestar semantics and returns
// absolute native paths in lexical order. Leading "../" segments move the
// search base up from root. A missing base directory yields no matches.
func (OSFS) Glob(root, pattern string) ([]string, error) {
	base, rel := splitBase(root, filepath.ToSlash(pattern))
	if rel == "" {
		return nil, nil
	}
	if !doublestar.ValidatePattern(rel) {
		return nil, errors.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	matches, err := doublestar.Glob(os.DirFS(base), rel)
	if err != nil {
		return nil, errors.Errorf("glob %q in %s: %w", rel, base, err)
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(base, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}

func splitBase(root, pattern string) (string, string) {
	base := filepath.Clean(root)
	rel := strings.TrimPrefix(pattern, "./")
	if strings.HasPrefix(rel, "/") {
		base = string(filepath.Separator)
		rel = strings.TrimLeft(rel, "/")
	}
	for {
		switch {
		case rel == "..":
			return filepath.Dir(base), "."
		case strings.HasPrefix(rel, "../"):
			base = filepath.Dir(base)
			rel = rel[len("../"):]
		case strings.HasPrefix(rel, "./"):
			rel = rel[len("./"):]
		default:
			return base, strings.TrimSuffix(rel, "/")
		}
	}
}

func (OSFS) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFS) Mkdir(path string, perm fs.FileMode) error {
	return os.Mkdir(path, perm)
}

// CopyFile duplicates src onto dst, keeping src's permission bits, and
// returns the number of bytes written.
func (OSFS) CopyFile(src, dst string) (int64, error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(dstFile, srcFile)
	if err != nil {
		dstFile.Close()
		return written, err
	}
	if err := dstFile.Close(); err != nil {
		return written, err
	}
	return written, os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func (OSFS) Link(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Link(src, dst)
}

// Symlink creates dst pointing at the absolute form of src.
func (OSFS) Symlink(src, dst string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Symlink(abs, dst)
}

func (OSFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (OSFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
