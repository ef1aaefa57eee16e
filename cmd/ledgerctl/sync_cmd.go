package main

import (
	"github.com/spf13/cobra"

	"civicledger/internal/requests/models"
	"civicledger/internal/requests/queries"
)

func newSyncCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Rebuild the local view from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := s.app.Engine.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newListCmd(s *session) *cobra.Command {
	var (
		wallet string
		status string
		calls  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests after a sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := refreshFirst(cmd, s); err != nil {
				return err
			}
			v, err := s.app.Engine.View(cmd.Context())
			if err != nil {
				return err
			}
			if calls {
				out := queries.AllCallRequests(v)
				if wallet != "" {
					out = queries.CallRequestsByWallet(v, wallet)
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if wallet != "" {
				v = models.View{Requests: queries.RequestsByWallet(v, wallet)}
			}
			if status != "" {
				v = models.View{Requests: queries.RequestsByStatus(v, models.Status(status))}
			}
			return writeJSON(cmd.OutOrStdout(), queries.AllRequests(v))
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "Only records owned by this wallet")
	cmd.Flags().StringVar(&status, "status", "", "Only requests in this status")
	cmd.Flags().BoolVar(&calls, "calls", false, "List call requests instead of requests")
	return cmd
}

func newStatsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count requests by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := refreshFirst(cmd, s); err != nil {
				return err
			}
			v, err := s.app.Engine.View(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"stats":       queries.ComputeStats(v),
				"wallets":     queries.UniqueWallets(v),
				"departments": queries.AdminWallets(v),
			})
		},
	}
}
