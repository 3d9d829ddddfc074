package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/erkineren/repository-relay/internal/logger"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a single poll cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.poller.RunCycle(ctx)
			if err != nil {
				return err
			}

			logger.Info().
				Bool("skipped", res.Skipped).
				Int("repos", res.Repos).
				Int("targets", res.Targets).
				Int("notifications", len(res.Notifications)).
				Int("errors", res.Errors).
				Msg("check finished")
			return nil
		},
	}
}
