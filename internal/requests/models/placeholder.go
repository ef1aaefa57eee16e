package models

import (
	"strings"

	"civicledger/internal/ledger"
)

// Placeholder enrichment for records first seen on the ledger.
const (
	PlaceholderFullName      = "Unknown (Blockchain Sync)"
	PlaceholderPreferredTime = "Anytime"
)

// ServiceSlug derives a service id from its display name.
func ServiceSlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func department(rec ledger.Record) string {
	if rec.Assigned() {
		return rec.Department
	}
	return ""
}

// RequestFromLedger builds an online request carrying placeholder enrichment.
func RequestFromLedger(rec ledger.Record, category string) Request {
	return Request{
		ID:            LedgerID(KindRequest, rec.ID),
		WalletAddress: rec.Owner,
		ServiceID:     ServiceSlug(rec.Name),
		ServiceName:   rec.Name,
		CategoryName:  category,
		UploadedFiles: []UploadedFile{},
		FormFields:    map[string]string{"fullName": PlaceholderFullName, "phone": "", "address": ""},
		Status:        FromLedger(KindRequest, rec.Status),
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		Department:    department(rec),
		RequestType:   RequestTypeOnline,
		SelectedItem:  rec.Name,
	}
}

// CallFromLedger builds a call request carrying placeholder enrichment.
func CallFromLedger(rec ledger.Record, category string) CallRequest {
	return CallRequest{
		ID:            LedgerID(KindCall, rec.ID),
		WalletAddress: rec.Owner,
		ServiceID:     ServiceSlug(rec.Name),
		ServiceName:   rec.Name,
		CategoryName:  category,
		SelectedItem:  rec.Name,
		FormFields:    map[string]string{"fullName": PlaceholderFullName, "phone": "", "preferredTime": PlaceholderPreferredTime},
		Status:        FromLedger(KindCall, rec.Status),
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		Department:    department(rec),
	}
}
