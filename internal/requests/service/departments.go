package service

import (
	"context"

	"civicledger/internal/identity"
	"civicledger/internal/requests/metrics"
	"civicledger/pkg/platform/audit"
	dErrors "civicledger/pkg/domain-errors"
)

// RegisterDepartment grants department rights to address. Only the contract
// admin may do this; the ledger enforces it.
func (s *Service) RegisterDepartment(ctx context.Context, address string) (txHash string, err error) {
	ctx, span := s.startSpan(ctx, "RegisterDepartment")
	defer func() { finishSpan(span, err) }()

	address = trimmed(address)
	if address == "" {
		return "", dErrors.New(dErrors.CodeValidation, "address is required")
	}
	snap := s.Identity(ctx)
	if !snap.Online() {
		return "", offline()
	}
	wr, err := s.ledger.AddDepartment(ctx, address)
	if err != nil {
		s.metrics.ObserveLedgerWrite("add_department", metrics.OutcomeFailure)
		s.logger.WarnContext(ctx, "department registration failed", "address", address, "error", err)
		return "", translateLedgerError(err)
	}
	s.metrics.ObserveLedgerWrite("add_department", metrics.OutcomeSuccess)
	s.emit(ctx, audit.EventDepartmentRegistered, address, snap.Address, wr.TxHash, "", "")
	s.logger.InfoContext(ctx, "department registered", "address", address, "tx_hash", wr.TxHash)
	return wr.TxHash, nil
}

// IsDepartment reports whether address may accept requests.
func (s *Service) IsDepartment(ctx context.Context, address string) (bool, error) {
	ok, err := s.ledger.IsDepartment(ctx, trimmed(address))
	if err != nil {
		return false, translateLedgerError(err)
	}
	return ok, nil
}

// EnsureDepartment registers the caller as a department when it is the
// contract admin and not yet registered. It reports whether a write happened.
func (s *Service) EnsureDepartment(ctx context.Context) (registered bool, err error) {
	ctx, span := s.startSpan(ctx, "EnsureDepartment")
	defer func() { finishSpan(span, err) }()

	snap := s.Identity(ctx)
	if !snap.Online() {
		return false, nil
	}
	admin, err := s.ledger.Admin(ctx)
	if err != nil {
		return false, translateLedgerError(err)
	}
	if !identity.SameAddress(admin, snap.Address) {
		return false, nil
	}
	isDept, err := s.ledger.IsDepartment(ctx, snap.Address)
	if err != nil {
		return false, translateLedgerError(err)
	}
	if isDept {
		return false, nil
	}
	if _, err := s.RegisterDepartment(ctx, snap.Address); err != nil {
		return false, err
	}
	return true, nil
}
