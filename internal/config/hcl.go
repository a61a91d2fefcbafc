package config

import (
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

type hclConfig struct {
	General *hclGeneral `hcl:"general,block"`
	Logging *hclLogging `hcl:"logging,block"`
	Sources []hclSource `hcl:"source,block"`
	Targets []hclTarget `hcl:"target,block"`
	Formats []hclFormat `hcl:"format,block"`
}

type hclGeneral struct {
	Workers  *int    `hcl:"workers,optional"`
	LinkType *string `hcl:"link_type,optional"`
}

type hclLogging struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type hclSource struct {
	Name   string   `hcl:"name,label"`
	Path   string   `hcl:"path"`
	Link   *bool    `hcl:"link,optional"`
	Darks  []string `hcl:"darks,optional"`
	Flats  []string `hcl:"flats,optional"`
	Biases []string `hcl:"biases,optional"`
}

type hclTarget struct {
	Name   string `hcl:"name,label"`
	Path   string `hcl:"path"`
	Format string `hcl:"format"`
	Link   *bool  `hcl:"link,optional"`
}

type hclFormat struct {
	Name        string   `hcl:"name,label"`
	Description string   `hcl:"description,optional"`
	Path        string   `hcl:"path"`
	Darks       string   `hcl:"darks,optional"`
	Flats       string   `hcl:"flats,optional"`
	Biases      string   `hcl:"biases,optional"`
	Directories []string `hcl:"directories,optional"`
	LinkOrCopy  []string `hcl:"link_or_copy,optional"`
	CopyOnly    []string `hcl:"copy_only,optional"`
}

// templateNames are exposed to HCL expressions as themselves so that
// "${exp}" inside an HCL string survives as a path template placeholder.
var templateNames = []string{"bin", "exp", "gain", "Y", "M", "d", "H", "m", "S", "ms", "target", "target_", "name"}

func hclEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(templateNames)+1)
	for _, name := range templateNames {
		vars[name] = cty.StringVal("${" + name + "}")
	}
	if home, err := os.UserHomeDir(); err == nil {
		vars["home"] = cty.StringVal(home)
	}
	return &hcl.EvalContext{Variables: vars}
}

func decodeHCL(cfg *Config, data []byte, filename string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	var raw hclConfig
	if diags := gohcl.DecodeBody(file.Body, hclEvalContext(), &raw); diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}

	if raw.General != nil {
		if raw.General.Workers != nil {
			cfg.General.Workers = *raw.General.Workers
		}
		if raw.General.LinkType != nil {
			cfg.General.LinkType = *raw.General.LinkType
		}
	}
	if raw.Logging != nil {
		if raw.Logging.Level != nil {
			cfg.Logging.Level = *raw.Logging.Level
		}
		if raw.Logging.Format != nil {
			cfg.Logging.Format = *raw.Logging.Format
		}
	}

	for _, s := range raw.Sources {
		cfg.Sources = append(cfg.Sources, Source{
			Name:   s.Name,
			Path:   s.Path,
			Link:   s.Link != nil && *s.Link,
			Darks:  s.Darks,
			Flats:  s.Flats,
			Biases: s.Biases,
		})
	}
	for _, t := range raw.Targets {
		cfg.Targets = append(cfg.Targets, Target{
			Name:   t.Name,
			Path:   t.Path,
			Format: t.Format,
			Link:   t.Link != nil && *t.Link,
		})
	}
	for _, f := range raw.Formats {
		format := Format{
			Name:        f.Name,
			Description: f.Description,
			Path:        f.Path,
			Darks:       f.Darks,
			Flats:       f.Flats,
			Biases:      f.Biases,
			Directories: f.Directories,
		}
		for _, s := range f.LinkOrCopy {
			r, err := ParseRule(s)
			if err != nil {
				return errors.Errorf("format %q: %w", f.Name, err)
			}
			format.LinkOrCopy = append(format.LinkOrCopy, r)
		}
		for _, s := range f.CopyOnly {
			r, err := ParseRule(s)
			if err != nil {
				return errors.Errorf("format %q: %w", f.Name, err)
			}
			format.CopyOnly = append(format.CopyOnly, r)
		}
		cfg.Formats = append(cfg.Formats, format)
	}
	return nil
}
