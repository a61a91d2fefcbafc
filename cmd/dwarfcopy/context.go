package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/app"
	"dwarfcopy/internal/config"
	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
	"dwarfcopy/internal/infra/exif"
	"dwarfcopy/internal/infra/fs"
	"dwarfcopy/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool
	workers    *int

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, verbose *bool, workers *int) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		workers:    workers,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		c.configPath = resolved
		c.configExists = exists
		if err != nil {
			c.configErr = err
			return
		}
		if c.workers != nil && *c.workers > 0 {
			cfg.General.Workers = *c.workers
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) isVerbose() bool {
	return c.verbose != nil && *c.verbose
}

// logger writes to w using the configured level and format.
func (c *commandContext) logger(w io.Writer) logging.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.New(w, c.isVerbose(), "info", "console")
	}
	return logging.New(w, c.isVerbose(), cfg.Logging.Level, cfg.Logging.Format)
}

// selection is the source, target and format one command works with.
type selection struct {
	source domain.SourceLocation
	target domain.TargetLocation
	format domain.FormatDefinition
}

// resolveSelection looks up the named source and target. An empty name picks
// the first configured entry.
func (c *commandContext) resolveSelection(sourceName, targetName string) (selection, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return selection{}, err
	}
	if len(cfg.Sources) == 0 || len(cfg.Targets) == 0 {
		return selection{}, appErrors.Wrap(appErrors.InvalidConfig, "select", "", errors.New("at least one source and one target must be configured"))
	}
	if sourceName == "" {
		sourceName = cfg.Sources[0].Name
	}
	if targetName == "" {
		targetName = cfg.Targets[0].Name
	}

	var sel selection
	var ok bool
	if sel.source, ok = cfg.Source(sourceName); !ok {
		return selection{}, appErrors.Wrap(appErrors.ConfigMismatch, "select", "", errors.Errorf("unknown source %q", sourceName))
	}
	if sel.target, ok = cfg.Target(targetName); !ok {
		return selection{}, appErrors.Wrap(appErrors.ConfigMismatch, "select", "", errors.Errorf("unknown target %q", targetName))
	}
	if sel.format, ok = cfg.Format(sel.target.Format); !ok {
		return selection{}, appErrors.Wrap(appErrors.ConfigMismatch, "select", "", errors.Errorf("target %q uses unknown format %q", targetName, sel.target.Format))
	}

	if _, err := (fs.OSFS{}).Stat(sel.source.Path); err != nil {
		return selection{}, appErrors.Wrap(appErrors.NotFound, "stat", sel.source.Path, err)
	}
	return sel, nil
}

// summaries discovers the sessions of sel.source and summarizes them against
// sel.target. With names set only those sessions are returned, in the order
// given; an unknown name is an error.
func summaries(ctx context.Context, sel selection, names []string, log logging.Logger) ([]app.SessionSummary, error) {
	filesystem := fs.OSFS{}
	discovery := app.Discovery{
		FS:     filesystem,
		Logger: log,
		OnSkipped: func(path string, err error) {
			log.Warnf("Skipping %s: %v", path, err)
		},
	}
	sessions, err := discovery.Collect(ctx, sel.source.Path)
	if err != nil {
		return nil, err
	}

	if len(names) > 0 {
		byName := make(map[string]domain.SessionDirectory, len(sessions))
		for _, s := range sessions {
			byName[s.Name()] = s
		}
		picked := make([]domain.SessionDirectory, 0, len(names))
		for _, name := range names {
			s, ok := byName[name]
			if !ok {
				return nil, appErrors.Wrap(appErrors.NotFound, "session", name, errors.Errorf("no session %q in %s", name, sel.source.Path))
			}
			picked = append(picked, s)
		}
		sessions = picked
	}

	summarizer := app.Summarizer{FS: filesystem, Exif: exif.Reader{}, Logger: log}
	out := make([]app.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		sum, err := summarizer.Summarize(ctx, s, sel.source, sel.target, sel.format)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// addSelectionFlags registers --source and --target.
func addSelectionFlags(cmd *cobra.Command, source, target *string) {
	cmd.Flags().StringVarP(source, "source", "s", "", "Source name (default: first configured)")
	cmd.Flags().StringVarP(target, "target", "t", "", "Target name (default: first configured)")
}
