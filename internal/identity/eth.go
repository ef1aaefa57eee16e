package identity

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ChainReader is the slice of ethclient.Client the provider needs.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// EthProvider derives the wallet address from a configured key and reads the
// chain id from the node.
type EthProvider struct {
	chain    ChainReader
	key      *ecdsa.PrivateKey
	address  string
	expected uint64
	logger   *slog.Logger
}

// Option configures an EthProvider.
type Option func(*EthProvider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *EthProvider) {
		p.logger = logger
	}
}

// NewEthProvider parses hexKey (with or without 0x). An empty key yields a
// provider that always reports a disconnected wallet.
func NewEthProvider(chain ChainReader, hexKey string, expectedChainID uint64, opts ...Option) (*EthProvider, error) {
	p := &EthProvider{
		chain:    chain,
		expected: expectedChainID,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if hexKey == "" {
		return p, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	p.key = key
	p.address = crypto.PubkeyToAddress(key.PublicKey).Hex()
	return p, nil
}

// PrivateKey is used by the ledger adapter to sign transactions.
func (p *EthProvider) PrivateKey() *ecdsa.PrivateKey {
	return p.key
}

func (p *EthProvider) Address() string {
	return p.address
}

// Snapshot never returns an error: an unreachable node is a disconnected wallet.
func (p *EthProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Address: p.address, ExpectedChainID: p.expected}
	if p.key == nil || p.chain == nil {
		return snap, nil
	}
	id, err := p.chain.ChainID(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "chain id lookup failed, treating wallet as disconnected", "error", err)
		return snap, nil
	}
	snap.Connected = true
	snap.ChainID = id.Uint64()
	return snap, nil
}
