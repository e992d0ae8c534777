package main

import (
	"github.com/spf13/cobra"

	"hearingcap/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the hearing workflow daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				Pipeline:  ctx.pipelineOpts,
				Preflight: ctx.preflight,
			})
		},
	}
}
