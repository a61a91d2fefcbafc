package main

import (
	"github.com/spf13/cobra"

	"dwarfcopy/internal/presentation"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var sourceName, targetName string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List capture sessions on a source and where they would go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := ctx.resolveSelection(sourceName, targetName)
			if err != nil {
				return err
			}
			sums, err := summaries(cmd.Context(), sel, nil, ctx.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			presentation.Printer{Writer: cmd.OutOrStdout(), Verbose: ctx.isVerbose()}.PrintSessions(sums)
			return nil
		},
	}

	addSelectionFlags(cmd, &sourceName, &targetName)
	return cmd
}
