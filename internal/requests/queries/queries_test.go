package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicledger/internal/requests/models"
)

func sampleView() models.View {
	return models.View{
		Requests: []models.Request{
			{ID: "REQ-3", WalletAddress: "0xABC", ServiceID: "passport", Status: models.StatusCompleted, Department: "0xD1"},
			{ID: "REQ-2", WalletAddress: "0xdef", ServiceID: "permit", Status: models.StatusProcessing, Department: "0xd1"},
			{ID: "REQ-1", WalletAddress: "0xabc", ServiceID: "passport", Status: models.StatusPending},
			{ID: "LOCAL-REQ-AAAA0000", WalletAddress: "0xabc", ServiceID: "permit", Status: models.StatusRejected, Department: "0xd2"},
		},
		CallRequests: []models.CallRequest{
			{ID: "CALL-5", WalletAddress: "0x999", Status: models.StatusContacted, Department: "0xd3"},
			{ID: "CALL-4", WalletAddress: "0xAbc", Status: models.StatusPending},
		},
	}
}

func ids(rs []models.Request) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestRequestFilters(t *testing.T) {
	v := sampleView()

	assert.Equal(t, []string{"REQ-3", "REQ-1", "LOCAL-REQ-AAAA0000"}, ids(RequestsByWallet(v, "0xabc")))
	assert.Equal(t, []string{"REQ-3", "REQ-1"}, ids(RequestsByService(v, "passport")))
	assert.Equal(t, []string{"REQ-2"}, ids(RequestsByStatus(v, models.StatusProcessing)))
	assert.Len(t, AllRequests(v), 4)
	assert.Len(t, AllCallRequests(v), 2)

	calls := CallRequestsByWallet(v, "0xABC")
	require.Len(t, calls, 1)
	assert.Equal(t, "CALL-4", calls[0].ID)

	assert.NotNil(t, RequestsByWallet(v, "0xnobody"), "empty results are non-nil for JSON")
}

func TestUniqueWallets(t *testing.T) {
	got := UniqueWallets(sampleView())

	assert.Equal(t, []WalletActivity{
		{Address: "0xABC", RequestCount: 4},
		{Address: "0xdef", RequestCount: 1},
		{Address: "0x999", RequestCount: 1},
	}, got)
}

func TestAdminWallets(t *testing.T) {
	got := AdminWallets(sampleView())

	assert.Equal(t, []DepartmentActivity{
		{Address: "0xD1", ProcessedCount: 2},
		{Address: "0xd2", ProcessedCount: 1},
	}, got, "call requests do not count toward department activity")
}

func TestComputeStats(t *testing.T) {
	assert.Equal(t, Stats{Total: 6, Pending: 2, Processing: 2, Completed: 1}, ComputeStats(sampleView()))
	assert.Equal(t, Stats{}, ComputeStats(models.View{}))
}

func TestResultsAreCopies(t *testing.T) {
	v := sampleView()
	v.Requests[0].FormFields = map[string]string{"a": "1"}

	got := AllRequests(v)
	got[0].FormFields["a"] = "2"

	assert.Equal(t, "1", v.Requests[0].FormFields["a"])
}
