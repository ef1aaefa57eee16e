// Package ledger defines the contract surface the reconciliation engine
// consumes from the on-chain request log.
package ledger

import (
	"context"
	"strings"
	"time"
)

// ZeroAddress marks a request no department has accepted yet.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Status is the contract's numeric status enum.
type Status uint8

const (
	StatusPending    Status = 0
	StatusProcessing Status = 1
	StatusCompleted  Status = 2
	StatusRejected   Status = 3
)

// Record is a request as the contract stores it.
type Record struct {
	ID         uint64
	Owner      string
	Category   string
	Name       string
	Department string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Assigned reports whether a department has accepted the record.
func (r *Record) Assigned() bool {
	return r.Department != "" && !strings.EqualFold(r.Department, ZeroAddress)
}

// WriteResult describes a confirmed transaction.
type WriteResult struct {
	TxHash string
	// AssignedID is only meaningful when HasAssignedID is set; the event
	// carrying it may be missing from the receipt.
	AssignedID    uint64
	HasAssignedID bool
}

// Client is a single identity's view of the contract. Writes are signed as
// that identity and are never retried.
type Client interface {
	SubmitRequest(ctx context.Context, category, name string) (*WriteResult, error)
	AcceptRequest(ctx context.Context, id uint64) (*WriteResult, error)
	UpdateStatus(ctx context.Context, id uint64, status Status) (*WriteResult, error)
	GetRequest(ctx context.Context, id uint64) (*Record, error)
	TotalRequests(ctx context.Context) (uint64, error)
	IsDepartment(ctx context.Context, address string) (bool, error)
	AddDepartment(ctx context.Context, address string) (*WriteResult, error)
	RemoveDepartment(ctx context.Context, address string) (*WriteResult, error)
	Admin(ctx context.Context) (string, error)
}
