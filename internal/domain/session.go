package domain

import (
	"path/filepath"
	"time"
)

// SessionDirectory is one capture session found on a source.
type SessionDirectory struct {
	Path      string
	Metadata  CaptureMetadata
	Timestamp time.Time
}

// Name is the directory's base name.
func (s SessionDirectory) Name() string {
	return filepath.Base(s.Path)
}

// Render resolves template against the session's metadata and timestamp.
func (s SessionDirectory) Render(template, name string) string {
	return Render(template, Vocabulary(s.Metadata, s.Timestamp, name))
}
