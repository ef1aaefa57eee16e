package service

import (
	"civicledger/internal/ledger"
	dErrors "civicledger/pkg/domain-errors"
)

// Messages for failures the engine detects before touching the ledger.
const (
	MessageOffline          = "wallet is offline or on the wrong network"
	MessageNotAssignedDept  = "only the assigned department can update this request"
	MessageRecordNotInView  = "request not found; run a sync first"
	MessageIDUndetermined   = "transaction confirmed but the request id could not be determined; run a sync"
	MessageViewUpdateFailed = "request confirmed on the ledger but the local view could not be updated; run a sync"
)

// translateLedgerError maps a ledger failure to a domain error. The
// contract's reason is surfaced verbatim.
func translateLedgerError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	reason := ledger.ReasonOf(err)
	switch ledger.CategoryOf(err) {
	case ledger.ErrorRejected:
		return dErrors.Wrap(err, dErrors.CodeLedgerRejected, reason)
	case ledger.ErrorUnauthorized:
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, reason)
	case ledger.ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, reason)
	case ledger.ErrorWrongNetwork, ledger.ErrorUnavailable:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, reason)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger call failed")
	}
}

func offline() error {
	return dErrors.New(dErrors.CodeUnavailable, MessageOffline)
}
