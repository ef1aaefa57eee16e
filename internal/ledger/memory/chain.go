// Package memory simulates the service-request contract in process. It
// enforces the same rules as the deployed contract and backs tests and
// LEDGER_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"civicledger/internal/ledger"
)

// DefaultAdmin owns a chain when no admin address is configured.
const DefaultAdmin = "0x00000000000000000000000000000000000000a1"

// Revert reasons, mirroring the deployed contract.
const (
	ReasonOnlyAdmin        = "Only admin can perform this action"
	ReasonOnlyDepartment   = "Only registered departments can perform this action"
	ReasonInvalidID        = "Invalid request ID"
	ReasonAlreadyAssigned  = "Request already assigned"
	ReasonNotAssignedDept  = "Only assigned department can update status"
	ReasonInvalidStatus    = "Invalid status"
	ReasonAlreadyDept      = "Already a department"
	ReasonNotDept          = "Not a department"
	ReasonEmptyServiceName = "Service name required"
)

// Chain is a single contract deployment shared by any number of identities.
type Chain struct {
	mu          sync.Mutex
	admin       string
	departments map[string]bool
	records     []ledger.Record
	txSeq       uint64
	now         func() time.Time
	offline     bool
	failures    map[string]error
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock overrides block timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		c.now = now
	}
}

// NewChain deploys a fresh contract owned by admin.
func NewChain(admin string, opts ...Option) *Chain {
	c := &Chain{
		admin:       admin,
		departments: make(map[string]bool),
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		failures:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientFor returns a client that signs as address.
func (c *Chain) ClientFor(address string) *Client {
	return &Client{chain: c, caller: address}
}

// SetOffline makes every call fail as unreachable.
func (c *Chain) SetOffline(offline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offline = offline
}

// FailNext makes the next call of op return err. op is the contract
// function name, e.g. "requestService".
func (c *Chain) FailNext(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = err
}

// Records returns a copy of the request log.
func (c *Chain) Records() []ledger.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ledger.Record, len(c.records))
	copy(out, c.records)
	return out
}

// begin must be called with mu held.
func (c *Chain) begin(op string) error {
	if c.offline {
		return ledger.NewError(op, ledger.ErrorUnavailable, "node unreachable", nil)
	}
	if err, ok := c.failures[op]; ok {
		delete(c.failures, op)
		return err
	}
	return nil
}

func (c *Chain) nextTx() string {
	c.txSeq++
	return fmt.Sprintf("0x%064x", c.txSeq)
}

func (c *Chain) isDepartment(addr string) bool {
	return c.departments[normalize(addr)]
}

func (c *Chain) record(op string, id uint64) (*ledger.Record, error) {
	if id == 0 || id > uint64(len(c.records)) {
		return nil, ledger.NewError(op, ledger.ErrorRejected, ReasonInvalidID, nil)
	}
	return &c.records[id-1], nil
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Client is one identity's handle on a Chain.
type Client struct {
	chain  *Chain
	caller string
}

var _ ledger.Client = (*Client)(nil)

func (cl *Client) SubmitRequest(_ context.Context, category, name string) (*ledger.WriteResult, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("requestService"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, ledger.NewError("requestService", ledger.ErrorRejected, ReasonEmptyServiceName, nil)
	}
	now := c.now()
	id := uint64(len(c.records)) + 1
	c.records = append(c.records, ledger.Record{
		ID:         id,
		Owner:      cl.caller,
		Category:   category,
		Name:       name,
		Department: ledger.ZeroAddress,
		Status:     ledger.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return &ledger.WriteResult{TxHash: c.nextTx(), AssignedID: id, HasAssignedID: true}, nil
}

func (cl *Client) AcceptRequest(_ context.Context, id uint64) (*ledger.WriteResult, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	const op = "acceptServiceRequest"
	if err := c.begin(op); err != nil {
		return nil, err
	}
	if !c.isDepartment(cl.caller) {
		return nil, ledger.NewError(op, ledger.ErrorUnauthorized, ReasonOnlyDepartment, nil)
	}
	rec, err := c.record(op, id)
	if err != nil {
		return nil, err
	}
	if rec.Assigned() || rec.Status != ledger.StatusPending {
		return nil, ledger.NewError(op, ledger.ErrorRejected, ReasonAlreadyAssigned, nil)
	}
	rec.Department = cl.caller
	rec.Status = ledger.StatusProcessing
	rec.UpdatedAt = c.now()
	return &ledger.WriteResult{TxHash: c.nextTx()}, nil
}

func (cl *Client) UpdateStatus(_ context.Context, id uint64, status ledger.Status) (*ledger.WriteResult, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	const op = "updateServiceStatus"
	if err := c.begin(op); err != nil {
		return nil, err
	}
	if status > ledger.StatusRejected {
		return nil, ledger.NewError(op, ledger.ErrorRejected, ReasonInvalidStatus, nil)
	}
	rec, err := c.record(op, id)
	if err != nil {
		return nil, err
	}
	if !rec.Assigned() || normalize(rec.Department) != normalize(cl.caller) {
		return nil, ledger.NewError(op, ledger.ErrorUnauthorized, ReasonNotAssignedDept, nil)
	}
	rec.Status = status
	rec.UpdatedAt = c.now()
	return &ledger.WriteResult{TxHash: c.nextTx()}, nil
}

func (cl *Client) GetRequest(_ context.Context, id uint64) (*ledger.Record, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	const op = "getServiceRequest"
	if err := c.begin(op); err != nil {
		return nil, err
	}
	if id == 0 || id > uint64(len(c.records)) {
		return nil, ledger.NewError(op, ledger.ErrorNotFound, ReasonInvalidID, nil)
	}
	rec := c.records[id-1]
	return &rec, nil
}

func (cl *Client) TotalRequests(_ context.Context) (uint64, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("getTotalRequests"); err != nil {
		return 0, err
	}
	return uint64(len(c.records)), nil
}

func (cl *Client) IsDepartment(_ context.Context, address string) (bool, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("departments"); err != nil {
		return false, err
	}
	return c.isDepartment(address), nil
}

func (cl *Client) AddDepartment(_ context.Context, address string) (*ledger.WriteResult, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	const op = "addDepartment"
	if err := c.begin(op); err != nil {
		return nil, err
	}
	if normalize(cl.caller) != normalize(c.admin) {
		return nil, ledger.NewError(op, ledger.ErrorUnauthorized, ReasonOnlyAdmin, nil)
	}
	if c.isDepartment(address) {
		return nil, ledger.NewError(op, ledger.ErrorRejected, ReasonAlreadyDept, nil)
	}
	c.departments[normalize(address)] = true
	return &ledger.WriteResult{TxHash: c.nextTx()}, nil
}

func (cl *Client) RemoveDepartment(_ context.Context, address string) (*ledger.WriteResult, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	const op = "removeDepartment"
	if err := c.begin(op); err != nil {
		return nil, err
	}
	if normalize(cl.caller) != normalize(c.admin) {
		return nil, ledger.NewError(op, ledger.ErrorUnauthorized, ReasonOnlyAdmin, nil)
	}
	if !c.isDepartment(address) {
		return nil, ledger.NewError(op, ledger.ErrorRejected, ReasonNotDept, nil)
	}
	delete(c.departments, normalize(address))
	return &ledger.WriteResult{TxHash: c.nextTx()}, nil
}

func (cl *Client) Admin(_ context.Context) (string, error) {
	c := cl.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("admin"); err != nil {
		return "", err
	}
	return c.admin, nil
}
