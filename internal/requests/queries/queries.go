// Package queries answers read-only questions over a merged view snapshot.
// Results are copies; callers may modify them freely.
package queries

import (
	"strings"

	"civicledger/internal/requests/models"
)

// WalletActivity counts submissions of both kinds from one wallet.
type WalletActivity struct {
	Address      string `json:"address"`
	RequestCount int    `json:"request_count"`
}

// DepartmentActivity counts online requests assigned to one department.
type DepartmentActivity struct {
	Address        string `json:"address"`
	ProcessedCount int    `json:"processed_count"`
}

// Stats spans both kinds. Contacted calls count as processing; rejected
// records only count toward Total.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
}

func RequestsByWallet(v models.View, wallet string) []models.Request {
	return filterRequests(v.Requests, func(r models.Request) bool {
		return strings.EqualFold(r.WalletAddress, wallet)
	})
}

func CallRequestsByWallet(v models.View, wallet string) []models.CallRequest {
	out := []models.CallRequest{}
	for _, c := range v.CallRequests {
		if strings.EqualFold(c.WalletAddress, wallet) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func RequestsByService(v models.View, serviceID string) []models.Request {
	return filterRequests(v.Requests, func(r models.Request) bool {
		return r.ServiceID == serviceID
	})
}

func RequestsByStatus(v models.View, status models.Status) []models.Request {
	return filterRequests(v.Requests, func(r models.Request) bool {
		return r.Status == status
	})
}

func AllRequests(v models.View) []models.Request {
	return filterRequests(v.Requests, func(models.Request) bool { return true })
}

func AllCallRequests(v models.View) []models.CallRequest {
	out := make([]models.CallRequest, 0, len(v.CallRequests))
	for _, c := range v.CallRequests {
		out = append(out, c.Clone())
	}
	return out
}

// UniqueWallets lists every submitting wallet in first-seen order, requests
// before calls. Addresses are grouped case-insensitively.
func UniqueWallets(v models.View) []WalletActivity {
	index := map[string]int{}
	out := []WalletActivity{}
	add := func(addr string) {
		key := strings.ToLower(addr)
		if i, ok := index[key]; ok {
			out[i].RequestCount++
			return
		}
		index[key] = len(out)
		out = append(out, WalletActivity{Address: addr, RequestCount: 1})
	}
	for _, r := range v.Requests {
		add(r.WalletAddress)
	}
	for _, c := range v.CallRequests {
		add(c.WalletAddress)
	}
	return out
}

// AdminWallets counts online requests per assigned department.
func AdminWallets(v models.View) []DepartmentActivity {
	index := map[string]int{}
	out := []DepartmentActivity{}
	for _, r := range v.Requests {
		if r.Department == "" {
			continue
		}
		key := strings.ToLower(r.Department)
		if i, ok := index[key]; ok {
			out[i].ProcessedCount++
			continue
		}
		index[key] = len(out)
		out = append(out, DepartmentActivity{Address: r.Department, ProcessedCount: 1})
	}
	return out
}

func ComputeStats(v models.View) Stats {
	st := Stats{Total: len(v.Requests) + len(v.CallRequests)}
	for _, r := range v.Requests {
		st.count(r.Status)
	}
	for _, c := range v.CallRequests {
		st.count(c.Status)
	}
	return st
}

func (st *Stats) count(s models.Status) {
	switch s {
	case models.StatusPending:
		st.Pending++
	case models.StatusProcessing, models.StatusContacted:
		st.Processing++
	case models.StatusCompleted:
		st.Completed++
	}
}

func filterRequests(in []models.Request, keep func(models.Request) bool) []models.Request {
	out := []models.Request{}
	for _, r := range in {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
