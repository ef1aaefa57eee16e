// Package eth talks to the deployed service-request contract through
// go-ethereum's bound contract bindings.
package eth

import (
	"context"
	"crypto/ecdsa"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"civicledger/internal/ledger"
)

//go:embed service_registry.abi.json
var contractABI string

const eventServiceRequested = "ServiceRequested"

// Backend is what the adapter needs from a node; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// serviceRequest mirrors the tuple returned by getServiceRequest.
type serviceRequest struct {
	RequestId       *big.Int
	Citizen         common.Address
	ServiceCategory string
	ServiceName     string
	Department      common.Address
	Status          uint8
	CreatedAt       *big.Int
	UpdatedAt       *big.Int
}

type serviceRequested struct {
	RequestId       *big.Int
	Citizen         common.Address
	ServiceCategory string
	ServiceName     string
}

// Ledger implements ledger.Client against a live contract.
type Ledger struct {
	backend  Backend
	abi      abi.ABI
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	from     common.Address
	logger   *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

var _ ledger.Client = (*Ledger)(nil)

// ParseABI returns the embedded contract ABI.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(contractABI))
}

// New binds the contract at address. A nil key yields a read-only client
// whose writes fail as unavailable.
func New(backend Backend, address string, key *ecdsa.PrivateKey, chainID uint64, opts ...Option) (*Ledger, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	l := &Ledger{
		backend:  backend,
		abi:      parsed,
		contract: bind.NewBoundContract(common.HexToAddress(address), parsed, backend, backend, backend),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if key != nil {
		auth, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(chainID))
		if err != nil {
			return nil, fmt.Errorf("build transactor: %w", err)
		}
		l.auth = auth
		l.from = auth.From
	}
	return l, nil
}

func (l *Ledger) SubmitRequest(ctx context.Context, category, name string) (*ledger.WriteResult, error) {
	receipt, err := l.transact(ctx, "requestService", category, name)
	if err != nil {
		return nil, err
	}
	res := &ledger.WriteResult{TxHash: receipt.TxHash.Hex()}
	if id, ok := l.assignedID(receipt); ok {
		res.AssignedID = id
		res.HasAssignedID = true
	} else {
		l.logger.WarnContext(ctx, "ServiceRequested event missing from receipt", "tx_hash", res.TxHash)
	}
	return res, nil
}

func (l *Ledger) AcceptRequest(ctx context.Context, id uint64) (*ledger.WriteResult, error) {
	receipt, err := l.transact(ctx, "acceptServiceRequest", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	return &ledger.WriteResult{TxHash: receipt.TxHash.Hex()}, nil
}

func (l *Ledger) UpdateStatus(ctx context.Context, id uint64, status ledger.Status) (*ledger.WriteResult, error) {
	receipt, err := l.transact(ctx, "updateServiceStatus", new(big.Int).SetUint64(id), uint8(status))
	if err != nil {
		return nil, err
	}
	return &ledger.WriteResult{TxHash: receipt.TxHash.Hex()}, nil
}

func (l *Ledger) AddDepartment(ctx context.Context, address string) (*ledger.WriteResult, error) {
	if !common.IsHexAddress(address) {
		return nil, ledger.NewError("addDepartment", ledger.ErrorRejected, "invalid address", nil)
	}
	receipt, err := l.transact(ctx, "addDepartment", common.HexToAddress(address))
	if err != nil {
		// The contract's only revert on this path is the owner check.
		var le *ledger.Error
		if errors.As(err, &le) && le.Category == ledger.ErrorRejected {
			le.Category = ledger.ErrorUnauthorized
		}
		return nil, err
	}
	return &ledger.WriteResult{TxHash: receipt.TxHash.Hex()}, nil
}

func (l *Ledger) RemoveDepartment(ctx context.Context, address string) (*ledger.WriteResult, error) {
	if !common.IsHexAddress(address) {
		return nil, ledger.NewError("removeDepartment", ledger.ErrorRejected, "invalid address", nil)
	}
	receipt, err := l.transact(ctx, "removeDepartment", common.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	return &ledger.WriteResult{TxHash: receipt.TxHash.Hex()}, nil
}

func (l *Ledger) GetRequest(ctx context.Context, id uint64) (*ledger.Record, error) {
	const op = "getServiceRequest"
	var out []interface{}
	if err := l.contract.Call(l.callOpts(ctx), &out, op, new(big.Int).SetUint64(id)); err != nil {
		le := classify(op, err)
		if le.Category == ledger.ErrorRejected {
			le.Category = ledger.ErrorNotFound
		}
		return nil, le
	}
	if len(out) == 0 {
		return nil, ledger.NewError(op, ledger.ErrorNotFound, "empty result", nil)
	}
	return decodeRecord(op, out[0])
}

func (l *Ledger) TotalRequests(ctx context.Context) (uint64, error) {
	const op = "getTotalRequests"
	var out []interface{}
	if err := l.contract.Call(l.callOpts(ctx), &out, op); err != nil {
		return 0, classify(op, err)
	}
	total := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return total.Uint64(), nil
}

func (l *Ledger) IsDepartment(ctx context.Context, address string) (bool, error) {
	const op = "departments"
	if !common.IsHexAddress(address) {
		return false, nil
	}
	var out []interface{}
	if err := l.contract.Call(l.callOpts(ctx), &out, op, common.HexToAddress(address)); err != nil {
		return false, classify(op, err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (l *Ledger) Admin(ctx context.Context) (string, error) {
	const op = "admin"
	var out []interface{}
	if err := l.contract.Call(l.callOpts(ctx), &out, op); err != nil {
		return "", classify(op, err)
	}
	return abi.ConvertType(out[0], new(common.Address)).(*common.Address).Hex(), nil
}

func (l *Ledger) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: l.from}
}

// transact sends one transaction and waits for its receipt. There is no retry.
func (l *Ledger) transact(ctx context.Context, op string, args ...interface{}) (*types.Receipt, error) {
	if l.auth == nil {
		return nil, ledger.NewError(op, ledger.ErrorUnavailable, "no wallet key configured", nil)
	}
	opts := *l.auth
	opts.Context = ctx
	tx, err := l.contract.Transact(&opts, op, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	start := time.Now()
	receipt, err := bind.WaitMined(ctx, l.backend, tx)
	if err != nil {
		return nil, ledger.NewError(op, ledger.ErrorUnavailable, "waiting for receipt", err)
	}
	l.logger.DebugContext(ctx, "transaction mined",
		"op", op,
		"tx_hash", tx.Hash().Hex(),
		"block", receipt.BlockNumber,
		"wait_ms", time.Since(start).Milliseconds(),
	)
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, ledger.NewError(op, ledger.ErrorRejected, "transaction failed", nil)
	}
	return receipt, nil
}

func (l *Ledger) assignedID(receipt *types.Receipt) (uint64, bool) {
	return parseAssignedID(l.contract, l.abi, receipt.Logs)
}

func parseAssignedID(contract *bind.BoundContract, parsed abi.ABI, logs []*types.Log) (uint64, bool) {
	eventID := parsed.Events[eventServiceRequested].ID
	for _, lg := range logs {
		if lg == nil || len(lg.Topics) == 0 || lg.Topics[0] != eventID {
			continue
		}
		var ev serviceRequested
		if err := contract.UnpackLog(&ev, eventServiceRequested, *lg); err != nil {
			continue
		}
		if ev.RequestId != nil {
			return ev.RequestId.Uint64(), true
		}
	}
	return 0, false
}

func decodeRecord(op string, raw interface{}) (*ledger.Record, error) {
	sr := *abi.ConvertType(raw, new(serviceRequest)).(*serviceRequest)
	if sr.RequestId == nil || sr.RequestId.Sign() == 0 {
		return nil, ledger.NewError(op, ledger.ErrorNotFound, "request does not exist", nil)
	}
	return &ledger.Record{
		ID:         sr.RequestId.Uint64(),
		Owner:      sr.Citizen.Hex(),
		Category:   sr.ServiceCategory,
		Name:       sr.ServiceName,
		Department: sr.Department.Hex(),
		Status:     ledger.Status(sr.Status),
		CreatedAt:  unixTime(sr.CreatedAt),
		UpdatedAt:  unixTime(sr.UpdatedAt),
	}, nil
}

func unixTime(v *big.Int) time.Time {
	if v == nil {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
