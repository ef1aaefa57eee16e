package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicledger/internal/ledger"
	"civicledger/internal/requests/models"
)

var (
	t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

func ledgerRecord(id uint64, status ledger.Status, dept string, created time.Time) ledger.Record {
	if dept == "" {
		dept = ledger.ZeroAddress
	}
	return ledger.Record{
		ID: id, Owner: "0xc1", Category: "Identity", Name: "Passport Renewal",
		Department: dept, Status: status, CreatedAt: created, UpdatedAt: created,
	}
}

func submitted() models.Request {
	return models.Request{
		ID:            "REQ-1",
		WalletAddress: "0xc1",
		ServiceID:     "svc-passport",
		ServiceName:   "Passport Renewal",
		CategoryName:  "Identity",
		FormFields:    map[string]string{"fullName": "Ada", "phone": "555"},
		UploadedFiles: []models.UploadedFile{{Name: "id.pdf", URL: "/uploads/a.pdf", Type: "application/pdf", Size: 12}},
		Status:        models.StatusPending,
		CreatedAt:     t0,
		UpdatedAt:     t0,
		TxHash:        "0x01",
		RequestType:   models.RequestTypeOnline,
		SelectedItem:  "Passport Renewal",

		EnrichmentSynced: true,
	}
}

func TestMerge_LedgerWinsAndEnrichmentSurvives(t *testing.T) {
	current := models.View{Requests: []models.Request{submitted()}}
	current.Requests[0].AdminRemarks = "checked"

	rec := ledgerRecord(1, ledger.StatusProcessing, "0xd1", t0)
	rec.UpdatedAt = t1
	fresh := Fresh{Requests: []models.Request{models.RequestFromLedger(rec, "Identity")}}

	got := Merge(current, fresh, t2)

	require.Len(t, got.Requests, 1)
	r := got.Requests[0]
	assert.Equal(t, models.StatusProcessing, r.Status)
	assert.Equal(t, "0xd1", r.Department)
	assert.Equal(t, t1, r.UpdatedAt)
	assert.Equal(t, submitted().FormFields, r.FormFields)
	assert.Equal(t, submitted().UploadedFiles, r.UploadedFiles)
	assert.Equal(t, "checked", r.AdminRemarks)
	assert.Equal(t, "svc-passport", r.ServiceID)
	assert.Equal(t, "0x01", r.TxHash)
	assert.True(t, r.EnrichmentSynced)
	assert.Equal(t, t2, got.SyncedAt)
}

func TestMerge_Idempotent(t *testing.T) {
	local := models.Request{ID: "LOCAL-REQ-ABCD1234", Status: models.StatusPending, CreatedAt: t1, LocalOnly: true}
	current := models.View{
		Requests:     []models.Request{submitted(), local},
		CallRequests: []models.CallRequest{{ID: "CALL-2", FormFields: map[string]string{"phone": "1"}, CreatedAt: t0}},
	}
	fresh := Fresh{
		Requests: []models.Request{
			models.RequestFromLedger(ledgerRecord(1, ledger.StatusPending, "", t0), "Identity"),
			models.RequestFromLedger(ledgerRecord(3, ledger.StatusCompleted, "0xd1", t2), "Identity"),
		},
		CallRequests: []models.CallRequest{
			models.CallFromLedger(ledgerRecord(2, ledger.StatusProcessing, "0xd1", t0), "Health"),
		},
	}

	once := Merge(current, fresh, t2)
	twice := Merge(once, fresh, t2)

	assert.Equal(t, once, twice)
}

func TestMerge_LocalOnlyPreserved(t *testing.T) {
	local := models.Request{
		ID: "LOCAL-REQ-ABCD1234", Status: models.StatusPending, CreatedAt: t2, LocalOnly: true,
		FormFields: map[string]string{"fullName": "Offline"},
	}
	current := models.View{Requests: []models.Request{local}}

	got := Merge(current, Fresh{Requests: []models.Request{
		models.RequestFromLedger(ledgerRecord(1, ledger.StatusPending, "", t0), "Identity"),
	}}, t2)

	require.Len(t, got.Requests, 2)
	assert.Equal(t, local, got.Requests[0])
	assert.Equal(t, "REQ-1", got.Requests[1].ID)
}

func TestMerge_LedgerOnlyGetsPlaceholders(t *testing.T) {
	got := Merge(models.View{}, Fresh{CallRequests: []models.CallRequest{
		models.CallFromLedger(ledgerRecord(4, ledger.StatusPending, "", t0), "Health"),
	}}, t1)

	require.Len(t, got.CallRequests, 1)
	c := got.CallRequests[0]
	assert.Equal(t, "CALL-4", c.ID)
	assert.Equal(t, models.PlaceholderFullName, c.FormFields["fullName"])
	assert.Equal(t, models.PlaceholderPreferredTime, c.FormFields["preferredTime"])
	assert.False(t, c.EnrichmentSynced)
}

func TestMerge_KeepsLedgerBackedMissingFromFresh(t *testing.T) {
	current := models.View{Requests: []models.Request{submitted()}}

	got := Merge(current, Fresh{}, t1)

	assert.Equal(t, current.Requests, got.Requests)
}

func TestMerge_OrdersNewestFirst(t *testing.T) {
	fresh := Fresh{Requests: []models.Request{
		models.RequestFromLedger(ledgerRecord(1, ledger.StatusPending, "", t0), "A"),
		models.RequestFromLedger(ledgerRecord(2, ledger.StatusPending, "", t2), "A"),
		models.RequestFromLedger(ledgerRecord(3, ledger.StatusPending, "", t1), "A"),
		models.RequestFromLedger(ledgerRecord(4, ledger.StatusPending, "", t1), "A"),
	}}

	got := Merge(models.View{}, fresh, t2)

	ids := make([]string, 0, len(got.Requests))
	for _, r := range got.Requests {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"REQ-2", "REQ-3", "REQ-4", "REQ-1"}, ids)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	current := models.View{Requests: []models.Request{submitted()}}
	fresh := Fresh{Requests: []models.Request{
		models.RequestFromLedger(ledgerRecord(1, ledger.StatusPending, "", t0), "Identity"),
	}}

	got := Merge(current, fresh, t1)
	got.Requests[0].FormFields["fullName"] = "changed"

	assert.Equal(t, "Ada", current.Requests[0].FormFields["fullName"])
}
