package app

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
	"dwarfcopy/internal/logging"
)

// StackedPreviewGlob matches the stacked JPEG previews inside a session.
const StackedPreviewGlob = "stacked*.jpg"

// CategorySummary lists the calibration directories found for one category.
type CategorySummary struct {
	Best       string
	Candidates []string
}

// SessionSummary is what a user needs to pick a session and its calibration.
type SessionSummary struct {
	Session     domain.SessionDirectory
	Destination string
	Exists      bool
	Calibration map[domain.Category]CategorySummary
	StackedAt   time.Time
}

// AutoCalibration picks the best candidate of every category.
func (s SessionSummary) AutoCalibration() domain.Calibration {
	var cal domain.Calibration
	for cat, sum := range s.Calibration {
		cal.Set(cat, sum.Best)
	}
	return cal
}

type Summarizer struct {
	FS     FileSystem
	Exif   ExifReader
	Logger logging.Logger
}

// Summarize resolves the destination and calibration candidates for session.
// The stacked preview's capture time is best effort and left zero when it
// cannot be read.
func (s *Summarizer) Summarize(ctx context.Context, session domain.SessionDirectory, source domain.SourceLocation, target domain.TargetLocation, format domain.FormatDefinition) (SessionSummary, error) {
	sum := SessionSummary{
		Session:     session,
		Destination: domain.ResolveDestination(session, target, format),
		Calibration: map[domain.Category]CategorySummary{},
	}

	exists, err := s.FS.Exists(sum.Destination)
	if err != nil {
		return sum, appErrors.Wrap(appErrors.PlanFailure, "check destination", sum.Destination, err)
	}
	sum.Exists = exists

	for _, cat := range domain.Categories {
		specials := Specials{FS: s.FS, SourceRoot: source.Path, Session: session, Templates: source.Templates(cat)}
		candidates, err := specials.Candidates()
		if err != nil {
			return sum, appErrors.Wrap(appErrors.PlanFailure, "find "+string(cat), source.Path, err)
		}
		best, err := specials.BestCandidate()
		if err != nil {
			return sum, appErrors.Wrap(appErrors.PlanFailure, "find "+string(cat), source.Path, err)
		}
		sum.Calibration[cat] = CategorySummary{Best: best, Candidates: candidates}
	}

	if s.Exif != nil {
		sum.StackedAt = s.stackedAt(ctx, session)
	}
	return sum, nil
}

func (s *Summarizer) stackedAt(ctx context.Context, session domain.SessionDirectory) time.Time {
	previews, err := s.FS.Glob(session.Path, StackedPreviewGlob)
	if err != nil || len(previews) == 0 {
		return time.Time{}
	}
	ts, err := s.Exif.DateTimeOriginal(ctx, previews[0])
	if err != nil {
		s.Logger.Verbosef("%v", appErrors.Wrap(appErrors.ExifFailure, "read exif", previews[0], err))
		return time.Time{}
	}
	return ts
}

// Calibration choices accepted on the command line besides a directory path.
const (
	ChoiceAuto = "auto"
	ChoiceNone = "none"
)

// ResolveCalibration turns per-category choices into directories. "auto" or
// an empty choice takes the best candidate, "none" skips the category and
// anything else is a directory, relative paths resolved against the source
// root.
func ResolveCalibration(sum SessionSummary, sourceRoot string, choices map[domain.Category]string) domain.Calibration {
	var cal domain.Calibration
	for _, cat := range domain.Categories {
		choice := strings.TrimSpace(choices[cat])
		switch choice {
		case "", ChoiceAuto:
			cal.Set(cat, sum.Calibration[cat].Best)
		case ChoiceNone:
		default:
			if !filepath.IsAbs(choice) {
				choice = filepath.Join(sourceRoot, choice)
			}
			cal.Set(cat, choice)
		}
	}
	return cal
}
