package models

import (
	"time"
)

// Kind separates online applications from call-back requests.
type Kind string

const (
	KindRequest Kind = "request"
	KindCall    Kind = "call"
)

// Status is the local lifecycle status shared by both kinds. Each kind uses
// a subset; see Transition.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusContacted  Status = "contacted"
)

// Mode reports where a submission ended up.
type Mode string

const (
	ModeLedger    Mode = "ledger"
	ModeLocalOnly Mode = "local_only"
)

// RequestType mirrors how the citizen asked for the service.
const (
	RequestTypeOnline = "online"
	RequestTypeCall   = "call"
)

// UploadedFile describes an attachment; the bytes live in the enrichment store.
type UploadedFile struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Type string `json:"type,omitempty"`
	Size int64  `json:"size"`
}

// Request is an online application in the merged view.
type Request struct {
	ID            string            `json:"id"`
	WalletAddress string            `json:"wallet_address"`
	ServiceID     string            `json:"service_id"`
	ServiceName   string            `json:"service_name"`
	CategoryName  string            `json:"category_name"`
	UploadedFiles []UploadedFile    `json:"uploaded_files"`
	FormFields    map[string]string `json:"form_fields"`
	Status        Status            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	// Department is the accepting identity; empty while unassigned.
	Department   string `json:"department,omitempty"`
	AdminRemarks string `json:"admin_remarks,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
	RequestType  string `json:"request_type"`
	SelectedItem string `json:"selected_item,omitempty"`
	LocalOnly    bool   `json:"local_only"`
	// EnrichmentSynced is false when the off-chain save failed after a ledger write.
	EnrichmentSynced bool `json:"enrichment_synced"`
}

// CallRequest asks for a call back about a service.
type CallRequest struct {
	ID               string            `json:"id"`
	WalletAddress    string            `json:"wallet_address"`
	ServiceID        string            `json:"service_id"`
	ServiceName      string            `json:"service_name"`
	CategoryName     string            `json:"category_name"`
	SelectedItem     string            `json:"selected_item,omitempty"`
	FormFields       map[string]string `json:"form_fields"`
	Status           Status            `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Department       string            `json:"department,omitempty"`
	TxHash           string            `json:"tx_hash,omitempty"`
	LocalOnly        bool              `json:"local_only"`
	EnrichmentSynced bool              `json:"enrichment_synced"`
}

// View is the merged snapshot. It is replaced whole, never edited in place.
type View struct {
	Requests     []Request     `json:"requests"`
	CallRequests []CallRequest `json:"call_requests"`
	SyncedAt     time.Time     `json:"synced_at"`
}

// Clone returns a deep copy.
func (v View) Clone() View {
	out := View{SyncedAt: v.SyncedAt}
	if v.Requests != nil {
		out.Requests = make([]Request, len(v.Requests))
		for i, r := range v.Requests {
			out.Requests[i] = r.Clone()
		}
	}
	if v.CallRequests != nil {
		out.CallRequests = make([]CallRequest, len(v.CallRequests))
		for i, c := range v.CallRequests {
			out.CallRequests[i] = c.Clone()
		}
	}
	return out
}

// FindRequest returns the index of id, or -1.
func (v View) FindRequest(id string) int {
	for i := range v.Requests {
		if v.Requests[i].ID == id {
			return i
		}
	}
	return -1
}

func (v View) FindCallRequest(id string) int {
	for i := range v.CallRequests {
		if v.CallRequests[i].ID == id {
			return i
		}
	}
	return -1
}

func (r Request) Clone() Request {
	r.FormFields = cloneFields(r.FormFields)
	if r.UploadedFiles != nil {
		files := make([]UploadedFile, len(r.UploadedFiles))
		copy(files, r.UploadedFiles)
		r.UploadedFiles = files
	}
	return r
}

func (c CallRequest) Clone() CallRequest {
	c.FormFields = cloneFields(c.FormFields)
	return c
}

func cloneFields(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
