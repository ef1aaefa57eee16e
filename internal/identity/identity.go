// Package identity resolves who is calling the ledger and whether the wallet
// is usable right now.
package identity

import (
	"context"
	"strings"
	"sync/atomic"
)

// Snapshot is the caller's wallet state at one point in time.
type Snapshot struct {
	Address         string `json:"address"`
	Connected       bool   `json:"connected"`
	ChainID         uint64 `json:"chain_id"`
	ExpectedChainID uint64 `json:"expected_chain_id"`
}

// Online reports whether ledger operations can be attempted.
func (s Snapshot) Online() bool {
	return s.Connected && s.Address != "" && s.ChainID == s.ExpectedChainID
}

// WrongNetwork is a connected wallet pointed at the wrong chain.
func (s Snapshot) WrongNetwork() bool {
	return s.Connected && s.ChainID != s.ExpectedChainID
}

// SameAddress compares two wallet addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Provider yields the current identity snapshot.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Static serves a fixed snapshot that can be swapped to model a wallet
// connecting, disconnecting or switching networks.
type Static struct {
	current atomic.Pointer[Snapshot]
}

func NewStatic(s Snapshot) *Static {
	p := &Static{}
	p.Set(s)
	return p
}

// Set replaces the snapshot.
func (p *Static) Set(s Snapshot) {
	p.current.Store(&s)
}

func (p *Static) Snapshot(_ context.Context) (Snapshot, error) {
	return *p.current.Load(), nil
}
