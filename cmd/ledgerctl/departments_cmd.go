package main

import (
	"github.com/spf13/cobra"
)

func newDepartmentsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "departments",
		Short: "Manage department wallets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <address>",
			Short: "Register a department wallet (admin only)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				tx, err := s.app.Engine.RegisterDepartment(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]string{"address": args[0], "tx_hash": tx})
			},
		},
		&cobra.Command{
			Use:   "check <address>",
			Short: "Report whether an address is a department",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ok, err := s.app.Engine.IsDepartment(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"address": args[0], "is_department": ok})
			},
		},
		&cobra.Command{
			Use:   "ensure",
			Short: "Register the admin wallet as a department if it is not one",
			RunE: func(cmd *cobra.Command, args []string) error {
				registered, err := s.app.Engine.EnsureDepartment(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"registered": registered})
			},
		},
	)
	return cmd
}

func newIdentityCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Show the wallet the engine acts as",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := s.app.Engine.Identity(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"identity":      snap,
				"online":        snap.Online(),
				"wrong_network": snap.WrongNetwork(),
			})
		},
	}
}
