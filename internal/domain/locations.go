package domain

// SourceLocation is a place capture sessions are read from.
type SourceLocation struct {
	Name   string
	Path   string
	Link   bool
	Darks  []string
	Flats  []string
	Biases []string
}

// TargetLocation is a place sessions are organized into.
type TargetLocation struct {
	Name   string
	Path   string
	Format string
	Link   bool
}

// CopyRule maps files matching Source (a glob relative to the session
// directory) to Destination (a template relative to the destination directory).
type CopyRule struct {
	Source      string
	Destination string
}

// FormatDefinition describes a destination layout.
type FormatDefinition struct {
	Name        string
	Description string
	Path        string
	Darks       string
	Flats       string
	Biases      string
	Directories []string
	LinkOrCopy  []CopyRule
	CopyOnly    []CopyRule
}

// Category identifies a kind of calibration frame.
type Category string

const (
	Darks  Category = "darks"
	Flats  Category = "flats"
	Biases Category = "biases"
)

// Categories lists calibration categories in display order.
var Categories = []Category{Darks, Flats, Biases}

// Templates returns the source's candidate templates for a category.
func (s SourceLocation) Templates(c Category) []string {
	switch c {
	case Darks:
		return s.Darks
	case Flats:
		return s.Flats
	case Biases:
		return s.Biases
	default:
		return nil
	}
}

// Destination returns the format's destination template for a category.
func (f FormatDefinition) Destination(c Category) string {
	switch c {
	case Darks:
		return f.Darks
	case Flats:
		return f.Flats
	case Biases:
		return f.Biases
	default:
		return ""
	}
}

// Calibration holds the calibration directories chosen for a session.
// Empty fields mean none was chosen.
type Calibration struct {
	Darks  string
	Flats  string
	Biases string
}

func (c Calibration) Get(cat Category) string {
	switch cat {
	case Darks:
		return c.Darks
	case Flats:
		return c.Flats
	case Biases:
		return c.Biases
	default:
		return ""
	}
}

func (c *Calibration) Set(cat Category, dir string) {
	switch cat {
	case Darks:
		c.Darks = dir
	case Flats:
		c.Flats = dir
	case Biases:
		c.Biases = dir
	}
}
