package app

import (
	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/domain"
)

// LinkType selects how link commands are materialized.
type LinkType string

const (
	LinkSymbolic LinkType = "symlink"
	LinkHard     LinkType = "hardlink"
)

// ParseLinkType accepts "symlink", "hardlink" and the empty string (symlink).
func ParseLinkType(s string) (LinkType, error) {
	switch LinkType(s) {
	case "", LinkSymbolic:
		return LinkSymbolic, nil
	case LinkHard:
		return LinkHard, nil
	default:
		return "", errors.Errorf("unknown link type %q", s)
	}
}

// Executor carries out one transfer command at a time.
type Executor struct {
	FS       FileSystem
	LinkType LinkType
}

// Execute performs cmd and returns the number of bytes copied. Links report
// zero bytes.
func (e *Executor) Execute(cmd domain.TransferCommand) (int64, error) {
	if e.FS == nil {
		return 0, errors.New("executor requires FS")
	}

	switch cmd.Kind {
	case domain.CommandCopy:
		n, err := e.FS.CopyFile(cmd.Source, cmd.Dest)
		if err != nil {
			return n, errors.Errorf("copy %s: %w", cmd.Source, err)
		}
		return n, nil
	case domain.CommandLink:
		var err error
		if e.LinkType == LinkHard {
			err = e.FS.Link(cmd.Source, cmd.Dest)
		} else {
			err = e.FS.Symlink(cmd.Source, cmd.Dest)
		}
		if err != nil {
			return 0, errors.Errorf("link %s: %w", cmd.Source, err)
		}
		return 0, nil
	default:
		return 0, errors.Errorf("cannot execute %s command", cmd.Kind)
	}
}
