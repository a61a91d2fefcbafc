package config

import (
	"gitlab.com/tozd/go/errors"

	appErrors "dwarfcopy/internal/errors"
)

// Validate ensures the configuration is usable. Every problem but a target
// naming an unknown format is an InvalidConfig error; that one is a
// ConfigMismatch.
func (c *Config) Validate() error {
	if err := c.validateGeneral(); err != nil {
		return appErrors.Wrap(appErrors.InvalidConfig, "validate", "", err)
	}
	if err := c.validateLocations(); err != nil {
		return appErrors.Wrap(appErrors.InvalidConfig, "validate", "", err)
	}
	if err := c.validateFormats(); err != nil {
		return appErrors.Wrap(appErrors.InvalidConfig, "validate", "", err)
	}

	formats := map[string]bool{}
	for _, f := range c.Formats {
		formats[f.Name] = true
	}
	for _, t := range c.Targets {
		if !formats[t.Format] {
			return appErrors.Wrap(appErrors.ConfigMismatch, "validate", "",
				errors.Errorf("target %q uses unknown format %q", t.Name, t.Format))
		}
	}
	return nil
}

func (c *Config) validateGeneral() error {
	if c.General.Workers <= 0 {
		return errors.Errorf("general.workers must be positive, got %d", c.General.Workers)
	}
	switch c.General.LinkType {
	case "symlink", "hardlink":
	default:
		return errors.Errorf("general.link_type must be symlink or hardlink, got %q", c.General.LinkType)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateLocations() error {
	if len(c.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	if len(c.Targets) == 0 {
		return errors.New("at least one target is required")
	}

	names := map[string]bool{}
	for _, s := range c.Sources {
		if err := checkName("source", s.Name, names); err != nil {
			return err
		}
		if s.Path == "" {
			return errors.Errorf("source %q has no path", s.Name)
		}
	}

	names = map[string]bool{}
	for _, t := range c.Targets {
		if err := checkName("target", t.Name, names); err != nil {
			return err
		}
		if t.Path == "" {
			return errors.Errorf("target %q has no path", t.Name)
		}
	}
	return nil
}

func (c *Config) validateFormats() error {
	names := map[string]bool{}
	for _, f := range c.Formats {
		if err := checkName("format", f.Name, names); err != nil {
			return err
		}
		if f.Path == "" {
			return errors.Errorf("format %q has no path", f.Name)
		}
		for _, r := range append(append([]Rule{}, f.LinkOrCopy...), f.CopyOnly...) {
			if r.Source == "" || r.Destination == "" {
				return errors.Errorf("format %q has an incomplete rule %q", f.Name, r.String())
			}
		}
	}
	return nil
}

func checkName(kind, name string, seen map[string]bool) error {
	if name == "" {
		return errors.Errorf("%s without a name", kind)
	}
	if seen[name] {
		return errors.Errorf("duplicate %s %q", kind, name)
	}
	seen[name] = true
	return nil
}
