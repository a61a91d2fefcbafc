package app

import (
	"context"
	"iter"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
	"dwarfcopy/internal/logging"
)

const (
	// SessionGlob preselects candidate session directories in a source root.
	SessionGlob = "DWARF_RAW_*"
	// SessionGrammar is the naming grammar of session directories. Only the
	// date and time fields are read from it; the rest comes from shotsInfo.json.
	SessionGrammar = "DWARF_RAW_<target>_EXP_<exp>_GAIN_<gain>_<Y>-<M>-<d>-<H>-<m>-<S>-<ms>"
)

var grammarToken = regexp.MustCompile(`<([A-Za-z_][A-Za-z0-9_]*)>`)

// CompileGrammar turns a grammar such as "PREFIX_<a>_<b>" into an anchored
// regular expression with one non-greedy named group per token.
func CompileGrammar(grammar string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range grammarToken.FindAllStringSubmatchIndex(grammar, -1) {
		b.WriteString(regexp.QuoteMeta(grammar[last:loc[0]]))
		b.WriteString("(?P<")
		b.WriteString(grammar[loc[2]:loc[3]])
		b.WriteString(">.*?)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(grammar[last:]))
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, errors.Errorf("compiling grammar %q: %w", grammar, err)
	}
	return re, nil
}

var sessionPattern = func() *regexp.Regexp {
	re, err := CompileGrammar(SessionGrammar)
	if err != nil {
		panic(err)
	}
	return re
}()

// SkipFunc is told about directories that looked like sessions but were skipped.
type SkipFunc func(path string, err error)

type Discovery struct {
	FS        FileSystem
	Logger    logging.Logger
	OnSkipped SkipFunc
}

// Sessions lazily scans root for session directories in listing order. Each
// call rescans. An unreadable root yields a single DiscoveryFailure; a
// session with a broken shotsInfo.json is skipped and the scan continues.
func (d *Discovery) Sessions(ctx context.Context, root string) iter.Seq2[domain.SessionDirectory, error] {
	return func(yield func(domain.SessionDirectory, error) bool) {
		if d.FS == nil {
			yield(domain.SessionDirectory{}, errors.New("discovery requires FS"))
			return
		}

		stop := d.Logger.Measure("Scanning " + root)
		defer stop()

		entries, err := d.FS.ReadDir(root)
		if err != nil {
			yield(domain.SessionDirectory{}, appErrors.Wrap(appErrors.DiscoveryFailure, "scan", root, err))
			return
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				yield(domain.SessionDirectory{}, err)
				return
			}

			if ok, _ := doublestar.Match(SessionGlob, entry.Name()); !ok {
				continue
			}

			path := filepath.Join(root, entry.Name())
			session, ok, err := d.load(path)
			if err != nil {
				d.skip(path, err)
				continue
			}
			if !ok {
				continue
			}
			if !yield(session, nil) {
				return
			}
		}
	}
}

// Collect drains Sessions into a slice, stopping at the first error.
func (d *Discovery) Collect(ctx context.Context, root string) ([]domain.SessionDirectory, error) {
	var sessions []domain.SessionDirectory
	for session, err := range d.Sessions(ctx, root) {
		if err != nil {
			return sessions, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// load returns ok=false for paths that are silently not sessions and an
// error for paths that are sessions but cannot be read.
func (d *Discovery) load(path string) (domain.SessionDirectory, bool, error) {
	info, err := d.FS.Stat(path)
	if err != nil || !info.IsDir() {
		return domain.SessionDirectory{}, false, nil
	}

	metaPath := filepath.Join(path, domain.MetadataFileName)
	if exists, err := d.FS.Exists(metaPath); err != nil || !exists {
		return domain.SessionDirectory{}, false, nil
	}

	match := sessionPattern.FindStringSubmatch(filepath.Base(path))
	if match == nil {
		return domain.SessionDirectory{}, false, nil
	}

	ts, err := sessionTimestamp(match)
	if err != nil {
		return domain.SessionDirectory{}, false, appErrors.Wrap(appErrors.MetadataFailure, "timestamp", path, err)
	}

	data, err := d.FS.ReadFile(metaPath)
	if err != nil {
		return domain.SessionDirectory{}, false, appErrors.Wrap(appErrors.MetadataFailure, "read", metaPath, err)
	}
	meta, err := domain.ParseMetadata(data)
	if err != nil {
		return domain.SessionDirectory{}, false, appErrors.Wrap(appErrors.MetadataFailure, "parse", metaPath, err)
	}

	return domain.SessionDirectory{Path: path, Metadata: meta, Timestamp: ts}, true, nil
}

func (d *Discovery) skip(path string, err error) {
	d.Logger.Warnf("Skipping %s: %v", filepath.Base(path), err)
	if d.OnSkipped != nil {
		d.OnSkipped(path, err)
	}
}

// sessionTimestamp builds a wall-clock time from the grammar's date groups.
// Session names carry no zone, so the result is expressed in UTC.
func sessionTimestamp(match []string) (time.Time, error) {
	field := func(name string) (int, error) {
		idx := sessionPattern.SubexpIndex(name)
		if idx < 0 {
			return 0, errors.Errorf("grammar has no %q field", name)
		}
		v, err := strconv.Atoi(match[idx])
		if err != nil {
			return 0, errors.Errorf("field %s=%q: %w", name, match[idx], err)
		}
		return v, nil
	}

	var vals [7]int
	for i, name := range []string{"Y", "M", "d", "H", "m", "S", "ms"} {
		v, err := field(name)
		if err != nil {
			return time.Time{}, err
		}
		vals[i] = v
	}

	ts := time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], vals[4], vals[5], vals[6]*int(time.Millisecond), time.UTC)
	if ts.Month() != time.Month(vals[1]) || ts.Day() != vals[2] || ts.Hour() != vals[3] ||
		ts.Minute() != vals[4] || ts.Second() != vals[5] || vals[6] < 0 || vals[6] > 999 {
		return time.Time{}, errors.Errorf("invalid date %04d-%02d-%02d %02d:%02d:%02d.%03d", vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6])
	}
	return ts, nil
}
