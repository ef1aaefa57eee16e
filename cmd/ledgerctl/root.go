package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"civicledger/internal/app"
	"civicledger/internal/platform/config"
	"civicledger/internal/platform/logger"
)

// session carries the engine built for one invocation.
type session struct {
	app *app.App
}

func newRootCmd() *cobra.Command {
	s := &session{}
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Submit, process and reconcile citizen service requests",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(envFiles...); err != nil {
				return fmt.Errorf("load env files: %w", err)
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			// the periodic worker is a server concern
			cfg.Sync.Interval = 0
			log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			s.app, err = app.Build(cmd.Context(), cfg, log)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if s.app != nil {
				s.app.Close()
			}
		},
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "Env files to load before reading configuration")

	cmd.AddCommand(
		newSubmitCmd(s),
		newSubmitCallCmd(s),
		newAcceptCmd(s),
		newStatusCmd(s),
		newCallStatusCmd(s),
		newSyncCmd(s),
		newListCmd(s),
		newStatsCmd(s),
		newDepartmentsCmd(s),
		newIdentityCmd(s),
	)
	return cmd
}
