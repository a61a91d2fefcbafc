package domain

import (
	"path/filepath"
	"strings"
	"sync"
)

// ResolveDestination appends the format's rendered path template to the
// target root. Segments are kept as written: ".." is not resolved and only
// separators doubled at the seam or trailing are dropped. Nothing is
// created on disk.
func ResolveDestination(session SessionDirectory, target TargetLocation, format FormatDefinition) string {
	sep := string(filepath.Separator)
	rel := strings.Trim(filepath.FromSlash(session.Render(format.Path, "")), sep)
	root := strings.TrimRight(target.Path, sep)
	switch {
	case rel == "":
		return target.Path
	case root == "" && strings.HasPrefix(target.Path, sep):
		return sep + rel
	case root == "":
		return rel
	}
	return root + sep + rel
}

// ParentOf returns path without its last element, leaving ".." segments
// untouched so the parent of a resolved destination stays where it was
// written.
func ParentOf(path string) string {
	sep := string(filepath.Separator)
	trimmed := strings.TrimRight(path, sep)
	i := strings.LastIndex(trimmed, sep)
	switch {
	case i < 0:
		return "."
	case i == 0:
		return sep
	}
	return trimmed[:i]
}

// DestinationDirectory binds a session to a target and format.
type DestinationDirectory struct {
	Session SessionDirectory
	Target  TargetLocation
	Format  FormatDefinition

	path func() string
}

func NewDestinationDirectory(session SessionDirectory, target TargetLocation, format FormatDefinition) *DestinationDirectory {
	d := &DestinationDirectory{Session: session, Target: target, Format: format}
	d.path = sync.OnceValue(func() string {
		return ResolveDestination(d.Session, d.Target, d.Format)
	})
	return d
}

// Path is the resolved destination, computed on first use.
func (d *DestinationDirectory) Path() string {
	if d.path == nil {
		return ResolveDestination(d.Session, d.Target, d.Format)
	}
	return d.path()
}
