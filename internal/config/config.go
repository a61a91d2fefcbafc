package config

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
)

// FileBaseName is the name searched for in every config directory, with one
// of the supported extensions.
const FileBaseName = "dwarf-copy"

// EnvPrefix prefixes every environment variable the config layer reads.
const EnvPrefix = "DWARF_COPY_"

var extensions = []string{".yml", ".yaml", ".toml", ".hcl"}

type Config struct {
	General General  `yaml:"general" toml:"general"`
	Logging Logging  `yaml:"logging" toml:"logging"`
	Sources []Source `yaml:"sources" toml:"sources"`
	Targets []Target `yaml:"targets" toml:"targets"`
	Formats []Format `yaml:"formats" toml:"formats"`
}

type General struct {
	Workers  int    `yaml:"workers" toml:"workers"`
	LinkType string `yaml:"link_type" toml:"link_type"`
}

type Logging struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Source is a place sessions are read from. Darks, Flats and Biases are
// ordered candidate templates, relative to Path.
type Source struct {
	Name   string   `yaml:"name" toml:"name"`
	Path   string   `yaml:"path" toml:"path"`
	Link   bool     `yaml:"link" toml:"link"`
	Darks  []string `yaml:"darks,omitempty" toml:"darks,omitempty"`
	Flats  []string `yaml:"flats,omitempty" toml:"flats,omitempty"`
	Biases []string `yaml:"biases,omitempty" toml:"biases,omitempty"`
}

type Target struct {
	Name   string `yaml:"name" toml:"name"`
	Path   string `yaml:"path" toml:"path"`
	Format string `yaml:"format" toml:"format"`
	Link   bool   `yaml:"link" toml:"link"`
}

type Format struct {
	Name        string   `yaml:"name" toml:"name"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty"`
	Path        string   `yaml:"path" toml:"path"`
	Darks       string   `yaml:"darks,omitempty" toml:"darks,omitempty"`
	Flats       string   `yaml:"flats,omitempty" toml:"flats,omitempty"`
	Biases      string   `yaml:"biases,omitempty" toml:"biases,omitempty"`
	Directories []string `yaml:"directories,omitempty" toml:"directories,omitempty"`
	LinkOrCopy  []Rule   `yaml:"link_or_copy,omitempty" toml:"link_or_copy,omitempty"`
	CopyOnly    []Rule   `yaml:"copy_only,omitempty" toml:"copy_only,omitempty"`
}

// Rule is written as "<glob> -> <template>" in config files.
type Rule struct {
	Source      string
	Destination string
}

func ParseRule(s string) (Rule, error) {
	src, dst, ok := strings.Cut(s, "->")
	src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
	if !ok || src == "" || dst == "" {
		return Rule{}, errors.Errorf("rule %q: expected \"<glob> -> <template>\"", s)
	}
	return Rule{Source: src, Destination: dst}, nil
}

func (r Rule) String() string {
	return r.Source + " -> " + r.Destination
}

func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rule) UnmarshalText(text []byte) error {
	parsed, err := ParseRule(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Rule) MarshalYAML() (any, error) {
	return r.String(), nil
}

func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(s))
}

// Load reads the config file found by Resolve, layered over Default and
// followed by environment overrides. Lists present in the file replace the
// default lists wholesale. It returns the path it looked at and whether
// that file existed.
func Load(explicit string) (*Config, string, bool, error) {
	path, exists, err := Resolve(explicit)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, true, appErrors.Wrap(appErrors.InvalidConfig, "read config", path, err)
		}
		var file Config
		if err := decode(&file, data, path); err != nil {
			return nil, path, true, appErrors.Wrap(appErrors.InvalidConfig, "parse config", path, err)
		}
		cfg.merge(file)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, path, exists, appErrors.Wrap(appErrors.InvalidConfig, "environment", "", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, path, exists, appErrors.Wrap(appErrors.InvalidConfig, "normalize", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, exists, err
	}
	return &cfg, path, exists, nil
}

// merge overlays the values set in file. Zero scalars keep the current value.
func (c *Config) merge(file Config) {
	if file.General.Workers != 0 {
		c.General.Workers = file.General.Workers
	}
	if file.General.LinkType != "" {
		c.General.LinkType = file.General.LinkType
	}
	if file.Logging.Level != "" {
		c.Logging.Level = file.Logging.Level
	}
	if file.Logging.Format != "" {
		c.Logging.Format = file.Logging.Format
	}
	if len(file.Sources) > 0 {
		c.Sources = file.Sources
	}
	if len(file.Targets) > 0 {
		c.Targets = file.Targets
	}
	if len(file.Formats) > 0 {
		c.Formats = file.Formats
	}
}

func decode(cfg *Config, data []byte, path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return errors.Errorf("parsing YAML: %w", err)
		}
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return errors.Errorf("parsing TOML: %w", err)
		}
	case ".hcl":
		return decodeHCL(cfg, data, path)
	default:
		return errors.Errorf("unsupported config extension %q", ext)
	}
	return nil
}

// Resolve finds the config file. An explicit path or DWARF_COPY_CONFIG must
// exist. Otherwise every directory in DWARF_COPY_CONFIG_PATH and then
// ~/.config/dwarfcopy is searched; when nothing is found the default location
// is returned with exists=false.
func Resolve(explicit string) (string, bool, error) {
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv(EnvPrefix + "CONFIG"))
	}
	if explicit != "" {
		path, err := ExpandPath(explicit)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return path, false, appErrors.Wrap(appErrors.NotFound, "config", path, err)
			}
			return path, false, appErrors.Wrap(appErrors.InvalidConfig, "stat config", path, err)
		}
		return path, true, nil
	}

	dirs := filepath.SplitList(os.Getenv(EnvPrefix + "CONFIG_PATH"))
	defaultDir, err := DefaultDir()
	if err != nil {
		return "", false, err
	}
	dirs = append(dirs, defaultDir)

	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		dir, err := ExpandPath(dir)
		if err != nil {
			return "", false, err
		}
		for _, ext := range extensions {
			candidate := filepath.Join(dir, FileBaseName+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true, nil
			}
		}
	}
	return filepath.Join(defaultDir, FileBaseName+".yml"), false, nil
}

// DefaultDir is ~/.config/dwarfcopy.
func DefaultDir() (string, error) {
	return ExpandPath("~/.config/dwarfcopy")
}

func (c *Config) applyEnv() error {
	if v, ok := lookupEnv("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Errorf("%sWORKERS=%q: %w", EnvPrefix, v, err)
		}
		c.General.Workers = n
	}
	if v, ok := lookupEnv("LINK_TYPE"); ok {
		c.General.LinkType = v
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv("LOG_FORMAT"); ok {
		c.Logging.Format = v
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (c *Config) normalize() error {
	c.General.LinkType = strings.ToLower(strings.TrimSpace(c.General.LinkType))
	if c.General.LinkType == "" {
		c.General.LinkType = "symlink"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	for i := range c.Sources {
		p, err := ExpandPath(c.Sources[i].Path)
		if err != nil {
			return err
		}
		c.Sources[i].Path = p
	}
	for i := range c.Targets {
		p, err := ExpandPath(c.Targets[i].Path)
		if err != nil {
			return err
		}
		c.Targets[i].Path = p
	}
	return nil
}

// ExpandPath resolves a leading "~" and makes the path absolute.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", errors.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// Write stores c at path in the format implied by its extension. Existing
// files are left alone unless overwrite is set.
func (c *Config) Write(path string, overwrite bool) error {
	data, err := c.Encode(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("create config directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return errors.Errorf("write config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Errorf("write config: %w", err)
	}
	return f.Close()
}

// Encode renders c as YAML (".yml", ".yaml" or "") or TOML (".toml").
func (c *Config) Encode(ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case "", ".yml", ".yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return nil, errors.Errorf("encoding YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Errorf("encoding YAML: %w", err)
		}
		return buf.Bytes(), nil
	case ".toml":
		data, err := toml.Marshal(c)
		if err != nil {
			return nil, errors.Errorf("encoding TOML: %w", err)
		}
		return data, nil
	default:
		return nil, errors.Errorf("cannot write %q config files", ext)
	}
}

func (c *Config) Source(name string) (domain.SourceLocation, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s.Domain(), true
		}
	}
	return domain.SourceLocation{}, false
}

func (c *Config) Target(name string) (domain.TargetLocation, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t.Domain(), true
		}
	}
	return domain.TargetLocation{}, false
}

func (c *Config) Format(name string) (domain.FormatDefinition, bool) {
	for _, f := range c.Formats {
		if f.Name == name {
			return f.Domain(), true
		}
	}
	return domain.FormatDefinition{}, false
}

func (s Source) Domain() domain.SourceLocation {
	return domain.SourceLocation{Name: s.Name, Path: s.Path, Link: s.Link, Darks: s.Darks, Flats: s.Flats, Biases: s.Biases}
}

func (t Target) Domain() domain.TargetLocation {
	return domain.TargetLocation{Name: t.Name, Path: t.Path, Format: t.Format, Link: t.Link}
}

func (f Format) Domain() domain.FormatDefinition {
	rules := func(in []Rule) []domain.CopyRule {
		out := make([]domain.CopyRule, 0, len(in))
		for _, r := range in {
			out = append(out, domain.CopyRule{Source: r.Source, Destination: r.Destination})
		}
		return out
	}
	return domain.FormatDefinition{
		Name:        f.Name,
		Description: f.Description,
		Path:        f.Path,
		Darks:       f.Darks,
		Flats:       f.Flats,
		Biases:      f.Biases,
		Directories: f.Directories,
		LinkOrCopy:  rules(f.LinkOrCopy),
		CopyOnly:    rules(f.CopyOnly),
	}
}
