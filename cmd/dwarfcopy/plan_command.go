package main

import (
	"maps"

	"github.com/spf13/cobra"

	"dwarfcopy/internal/app"
	"dwarfcopy/internal/infra/fs"
	"dwarfcopy/internal/presentation"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var sourceName, targetName string
	var names []string
	var choices calibrationFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what copy would do without writing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := ctx.resolveSelection(sourceName, targetName)
			if err != nil {
				return err
			}
			log := ctx.logger(cmd.ErrOrStderr())
			sums, err := summaries(cmd.Context(), sel, names, log)
			if err != nil {
				return err
			}

			printer := presentation.Printer{Writer: cmd.OutOrStdout(), Verbose: ctx.isVerbose()}
			if len(sums) == 0 {
				printer.PrintSessions(nil)
				return nil
			}

			planner := app.Planner{FS: fs.OSFS{}, Logger: log}
			link := sel.source.Link && sel.target.Link
			for _, sum := range sums {
				plan, err := planner.Plan(cmd.Context(), sel.format, sum.Session, sum.Destination)
				if err != nil {
					return err
				}
				cal := app.ResolveCalibration(sum, sel.source.Path, choices.choices())
				if err := planner.PlanCalibration(cmd.Context(), &plan, sel.format, sum.Session, sum.Destination, cal); err != nil {
					return err
				}
				if !link {
					maps.Copy(plan.Copies, plan.Links)
					clear(plan.Links)
				}
				printer.PrintPlan(sum.Session, sum.Destination, plan)
			}
			return nil
		},
	}

	addSelectionFlags(cmd, &sourceName, &targetName)
	cmd.Flags().StringArrayVar(&names, "session", nil, "Session directory name (repeatable, default: all)")
	choices.register(cmd)
	return cmd
}
