package main

import (
	"context"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/app"
	"dwarfcopy/internal/domain"
	appErrors "dwarfcopy/internal/errors"
	"dwarfcopy/internal/infra/fs"
	"dwarfcopy/internal/logging"
	"dwarfcopy/internal/presentation"
	"dwarfcopy/internal/tui"
)

// calibrationFlags holds the --darks/--flats/--biases choices.
type calibrationFlags struct {
	darks, flats, biases string
}

func (f *calibrationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.darks, "darks", app.ChoiceAuto, "Darks: auto, none or a directory")
	cmd.Flags().StringVar(&f.flats, "flats", app.ChoiceAuto, "Flats: auto, none or a directory")
	cmd.Flags().StringVar(&f.biases, "biases", app.ChoiceAuto, "Biases: auto, none or a directory")
}

func (f calibrationFlags) choices() map[domain.Category]string {
	return map[domain.Category]string{
		domain.Darks:  f.darks,
		domain.Flats:  f.flats,
		domain.Biases: f.biases,
	}
}

func newCopyCommand(ctx *commandContext) *cobra.Command {
	var sourceName, targetName string
	var names []string
	var all, plain bool
	var choices calibrationFlags

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Transfer sessions from a source into a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(names) == 0 && !all {
				return appErrors.Wrap(appErrors.InvalidConfig, "copy", "", errors.New("select sessions with --session or --all"))
			}
			sel, err := ctx.resolveSelection(sourceName, targetName)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			linkType, err := app.ParseLinkType(cfg.General.LinkType)
			if err != nil {
				return appErrors.Wrap(appErrors.InvalidConfig, "link type", "", err)
			}

			run := copyRun{
				sel:      sel,
				names:    names,
				choices:  choices.choices(),
				workers:  cfg.General.Workers,
				linkType: linkType,
				verbose:  ctx.isVerbose(),
			}

			out := cmd.OutOrStdout()
			if !plain && isTerminal(out) {
				return run.interactive(cmd.Context())
			}
			return run.plain(cmd.Context(), out, ctx.logger(cmd.ErrOrStderr()))
		},
	}

	addSelectionFlags(cmd, &sourceName, &targetName)
	cmd.Flags().StringArrayVar(&names, "session", nil, "Session directory name (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Transfer every session on the source")
	cmd.Flags().BoolVar(&plain, "plain", false, "Plain output even on a terminal")
	choices.register(cmd)
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type copyRun struct {
	sel      selection
	names    []string
	choices  map[domain.Category]string
	workers  int
	linkType app.LinkType
	verbose  bool
}

func (r copyRun) requests(sums []app.SessionSummary) []app.TransferRequest {
	reqs := make([]app.TransferRequest, 0, len(sums))
	for _, sum := range sums {
		reqs = append(reqs, app.TransferRequest{
			Session:     sum.Session,
			Source:      r.sel.source,
			Target:      r.sel.target,
			Format:      r.sel.format,
			Calibration: app.ResolveCalibration(sum, r.sel.source.Path, r.choices),
		})
	}
	return reqs
}

func (r copyRun) transferrer(log logging.Logger) *app.Transferrer {
	return &app.Transferrer{
		FS:       fs.OSFS{},
		Workers:  r.workers,
		LinkType: r.linkType,
		Logger:   log,
	}
}

func (r copyRun) plain(ctx context.Context, out io.Writer, log logging.Logger) error {
	sums, err := summaries(ctx, r.sel, r.names, log)
	if err != nil {
		return err
	}
	printer := presentation.Printer{Writer: out, Verbose: r.verbose}
	if len(sums) == 0 {
		printer.PrintSessions(nil)
		return nil
	}

	tr := r.transferrer(log)
	if r.verbose {
		var mu sync.Mutex
		tr.OnProgress = func(p domain.Progress) {
			mu.Lock()
			defer mu.Unlock()
			printer.PrintProgress(p)
		}
	}

	results, err := tr.RunBatch(ctx, r.requests(sums))
	failed := printer.PrintResults(results)
	if err != nil {
		return err
	}
	if failed > 0 {
		return errors.Errorf("%d of %d sessions failed", failed, len(results))
	}
	return nil
}

func (r copyRun) interactive(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// The live view owns the terminal. Errors surface in its result list.
	log := logging.Nop()
	tr := r.transferrer(log)

	var program *tea.Program
	model := tui.NewModel(tui.Config{
		SourceName: r.sel.source.Name,
		SourcePath: r.sel.source.Path,
		TargetName: r.sel.target.Name,
		TargetPath: r.sel.target.Path,
		Verbose:    r.verbose,
		Cancel:     cancel,
		Execute: func(sums []app.SessionSummary) tea.Cmd {
			return func() tea.Msg {
				tr.OnPlanned = func(session string, n int) { program.Send(tui.SessionStartMsg{Session: session, Files: n}) }
				tr.OnProgress = func(p domain.Progress) { program.Send(tui.ProgressMsg{Progress: p}) }
				tr.OnResult = func(res app.TransferResult) { program.Send(tui.SessionDoneMsg{Result: res}) }
				if _, err := tr.RunBatch(ctx, r.requests(sums)); err != nil {
					return tui.ErrorMsg{Err: err}
				}
				return tui.BatchDoneMsg{}
			}
		},
	})
	program = tea.NewProgram(model)

	go func() {
		sums, err := summaries(ctx, r.sel, r.names, log)
		if err != nil {
			program.Send(tui.ErrorMsg{Err: err})
			return
		}
		program.Send(tui.SessionsReadyMsg{Summaries: sums})
	}()

	final, err := program.Run()
	if err != nil {
		return err
	}
	m, ok := final.(tui.Model)
	if !ok {
		return nil
	}
	switch {
	case m.Err != nil:
		return m.Err
	case m.Failed() > 0:
		return errors.Errorf("%d of %d sessions failed", m.Failed(), len(m.Results))
	case m.Quitting && ctx.Err() != nil:
		return ctx.Err()
	}
	return nil
}
