package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"civicledger/internal/requests/service"
)

func newSubmitCmd(s *session) *cobra.Command {
	var (
		serviceID string
		name      string
		category  string
		fields    map[string]string
		files     []string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a service request to the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.SubmitInput{
				ServiceID:    serviceID,
				ServiceName:  name,
				CategoryName: category,
				FormFields:   fields,
			}
			for _, path := range files {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read attachment: %w", err)
				}
				in.Attachments = append(in.Attachments, service.Attachment{Name: filepath.Base(path), Content: content})
			}
			res, err := s.app.Engine.Submit(cmd.Context(), in)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), submitOutput(res))
		},
	}
	cmd.Flags().StringVar(&serviceID, "service-id", "", "Catalogue id of the service")
	cmd.Flags().StringVar(&name, "service", "", "Service name (required)")
	cmd.Flags().StringVar(&category, "category", "", "Category name (required)")
	cmd.Flags().StringToStringVar(&fields, "field", nil, "Form field as key=value, repeatable")
	cmd.Flags().StringSliceVar(&files, "file", nil, "Attachment path, repeatable")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newSubmitCallCmd(s *session) *cobra.Command {
	var (
		serviceID string
		name      string
		category  string
		item      string
		fields    map[string]string
	)
	cmd := &cobra.Command{
		Use:   "submit-call",
		Short: "Request a call back for a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := s.app.Engine.SubmitCall(cmd.Context(), service.SubmitCallInput{
				ServiceID:    serviceID,
				ServiceName:  name,
				CategoryName: category,
				SelectedItem: item,
				FormFields:   fields,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), submitOutput(res))
		},
	}
	cmd.Flags().StringVar(&serviceID, "service-id", "", "Catalogue id of the service")
	cmd.Flags().StringVar(&name, "service", "", "Service name (required)")
	cmd.Flags().StringVar(&category, "category", "", "Category name (required)")
	cmd.Flags().StringVar(&item, "item", "", "Selected sub-item")
	cmd.Flags().StringToStringVar(&fields, "field", nil, "Form field as key=value, repeatable")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

type submitResult struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	TxHash          string `json:"tx_hash,omitempty"`
	EnrichmentError string `json:"enrichment_error,omitempty"`
}

func submitOutput(res *service.SubmitResult) submitResult {
	out := submitResult{ID: res.ID, Mode: string(res.Mode), TxHash: res.TxHash}
	if res.EnrichmentErr != nil {
		out.EnrichmentError = strings.TrimSpace(res.EnrichmentErr.Error())
	}
	return out
}
