package domain

import (
	"fmt"
	"path/filepath"
)

// CommandKind tags a TransferCommand.
type CommandKind int

const (
	CommandQuit CommandKind = iota
	CommandCopy
	CommandLink
)

func (k CommandKind) String() string {
	switch k {
	case CommandCopy:
		return "Copy"
	case CommandLink:
		return "Link"
	default:
		return "Quit"
	}
}

// TransferCommand is one unit of work for the transfer workers. SourceRoot
// and WorkingRoot are only used to describe the command.
type TransferCommand struct {
	Kind        CommandKind
	Source      string
	Dest        string
	SourceRoot  string
	WorkingRoot string
}

// QuitCommand tells a worker to stop. The zero TransferCommand is Quit.
var QuitCommand = TransferCommand{}

func CopyCommand(source, dest, sourceRoot, workingRoot string) TransferCommand {
	return TransferCommand{Kind: CommandCopy, Source: source, Dest: dest, SourceRoot: sourceRoot, WorkingRoot: workingRoot}
}

func LinkCommand(source, dest, sourceRoot, workingRoot string) TransferCommand {
	return TransferCommand{Kind: CommandLink, Source: source, Dest: dest, SourceRoot: sourceRoot, WorkingRoot: workingRoot}
}

func (c TransferCommand) IsQuit() bool {
	return c.Kind == CommandQuit
}

// Description is a short human-readable summary used for progress reporting.
func (c TransferCommand) Description() string {
	if c.IsQuit() {
		return "Finished"
	}
	return fmt.Sprintf("%s %s -> %s", c.Kind, relativeTo(c.SourceRoot, c.Source), relativeTo(c.WorkingRoot, c.Dest))
}

func relativeTo(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// Progress is emitted after each completed command.
type Progress struct {
	Worker      int
	Description string
	Bytes       int64
}
