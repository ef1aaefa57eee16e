// Package merge combines the ledger's view of requests with the locally held
// enrichment. It is pure: no I/O, no clock, no shared state.
package merge

import (
	"sort"
	"strings"
	"time"

	"civicledger/internal/requests/models"
)

// Fresh is what a full ledger read produced, already mapped to local types.
type Fresh struct {
	Requests     []models.Request
	CallRequests []models.CallRequest
}

// Merge folds fresh ledger data into current and returns a new view.
//
// For ids present in both, status, timestamps, owner, department and names
// come from the ledger while form data, files, remarks and submission metadata
// come from the current copy. Local-only ids and ledger-backed ids missing from
// fresh are kept unchanged. Ledger-only ids are added as given. The result is
// ordered by creation time, newest first, ties broken by id.
func Merge(current models.View, fresh Fresh, syncedAt time.Time) models.View {
	out := models.View{
		Requests:     mergeRequests(current.Requests, fresh.Requests),
		CallRequests: mergeCalls(current.CallRequests, fresh.CallRequests),
		SyncedAt:     syncedAt,
	}
	return out
}

func mergeRequests(current, fresh []models.Request) []models.Request {
	prior := make(map[string]models.Request, len(current))
	for _, r := range current {
		prior[r.ID] = r
	}

	seen := make(map[string]bool, len(fresh))
	out := make([]models.Request, 0, len(current)+len(fresh))
	for _, f := range fresh {
		seen[f.ID] = true
		merged := f.Clone()
		if p, ok := prior[f.ID]; ok {
			merged = carryRequest(merged, p)
		}
		out = append(out, merged)
	}
	for _, r := range current {
		if !seen[r.ID] {
			out = append(out, r.Clone())
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func mergeCalls(current, fresh []models.CallRequest) []models.CallRequest {
	prior := make(map[string]models.CallRequest, len(current))
	for _, c := range current {
		prior[c.ID] = c
	}

	seen := make(map[string]bool, len(fresh))
	out := make([]models.CallRequest, 0, len(current)+len(fresh))
	for _, f := range fresh {
		seen[f.ID] = true
		merged := f.Clone()
		if p, ok := prior[f.ID]; ok {
			merged = carryCall(merged, p)
		}
		out = append(out, merged)
	}
	for _, c := range current {
		if !seen[c.ID] {
			out = append(out, c.Clone())
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func carryRequest(ledger, local models.Request) models.Request {
	local = local.Clone()
	ledger.FormFields = local.FormFields
	ledger.UploadedFiles = local.UploadedFiles
	ledger.AdminRemarks = local.AdminRemarks
	ledger.TxHash = local.TxHash
	ledger.EnrichmentSynced = local.EnrichmentSynced
	if local.ServiceID != "" {
		ledger.ServiceID = local.ServiceID
	}
	if local.RequestType != "" {
		ledger.RequestType = local.RequestType
	}
	if local.SelectedItem != "" {
		ledger.SelectedItem = local.SelectedItem
	}
	return ledger
}

func carryCall(ledger, local models.CallRequest) models.CallRequest {
	local = local.Clone()
	ledger.FormFields = local.FormFields
	ledger.TxHash = local.TxHash
	ledger.EnrichmentSynced = local.EnrichmentSynced
	if local.ServiceID != "" {
		ledger.ServiceID = local.ServiceID
	}
	if local.SelectedItem != "" {
		ledger.SelectedItem = local.SelectedItem
	}
	return ledger
}

func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return strings.Compare(idA, idB) < 0
}
