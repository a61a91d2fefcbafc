package app

import (
	"io/fs"
	"sort"

	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/domain"
)

// Specials resolves calibration frame directories (darks, flats or biases)
// for a session from an ordered list of candidate templates. Earlier
// templates win, so manually captured frames can be preferred over the
// telescope's automatic ones.
type Specials struct {
	FS         FileSystem
	SourceRoot string
	Session    domain.SessionDirectory
	Templates  []string
}

// Masks renders every template into a glob pattern relative to SourceRoot.
func (s Specials) Masks() []string {
	masks := make([]string, 0, len(s.Templates))
	for _, tmpl := range s.Templates {
		masks = append(masks, s.Session.Render(tmpl, ""))
	}
	return masks
}

// directories returns the directories matching mask. Stray files that
// happen to match, such as a readme next to the frames, are ignored.
func (s Specials) directories(mask string) ([]string, error) {
	matches, err := s.FS.Glob(s.SourceRoot, mask)
	if err != nil {
		return nil, errors.Errorf("matching %q: %w", mask, err)
	}
	dirs := matches[:0]
	for _, m := range matches {
		info, err := s.FS.Stat(m)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.Errorf("inspecting %s: %w", m, err)
		}
		if info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	return dirs, nil
}

// Candidates returns the union of all matching directories across all
// templates, sorted.
func (s Specials) Candidates() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, mask := range s.Masks() {
		matches, err := s.directories(mask)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// BestCandidate returns the lexically first directory of the first template
// that matches a directory, or "" when none does.
func (s Specials) BestCandidate() (string, error) {
	for _, mask := range s.Masks() {
		matches, err := s.directories(mask)
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	return "", nil
}
