package main

import (
	"github.com/spf13/cobra"

	"civicledger/internal/requests/models"
)

// refreshFirst loads the ledger into the view; a fresh process starts empty
// and transitions only act on records the view knows about.
func refreshFirst(cmd *cobra.Command, s *session) error {
	_, err := s.app.Engine.Refresh(cmd.Context())
	return err
}

func newAcceptCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <id>",
		Short: "Assign a request to the calling department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := refreshFirst(cmd, s); err != nil {
				return err
			}
			res, err := s.app.Engine.Accept(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newStatusCmd(s *session) *cobra.Command {
	var remarks string
	cmd := &cobra.Command{
		Use:   "status <id> <pending|processing|completed|rejected>",
		Short: "Update the status of an assigned request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := refreshFirst(cmd, s); err != nil {
				return err
			}
			res, err := s.app.Engine.UpdateStatus(cmd.Context(), args[0], models.Status(args[1]), remarks)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&remarks, "remarks", "", "Remarks stored with the request")
	return cmd
}

func newCallStatusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "call-status <id> <pending|contacted|completed>",
		Short: "Update the status of an assigned call request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := refreshFirst(cmd, s); err != nil {
				return err
			}
			res, err := s.app.Engine.UpdateCallStatus(cmd.Context(), args[0], models.Status(args[1]))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}
