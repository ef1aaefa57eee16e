package service

import (
	"context"
	"fmt"

	"civicledger/internal/identity"
	"civicledger/internal/requests/metrics"
	"civicledger/internal/requests/models"
	"civicledger/pkg/platform/audit"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/requestcontext"
)

// TransitionResult is the state of a record after accept or a status update.
type TransitionResult struct {
	ID         string        `json:"id"`
	Status     models.Status `json:"status"`
	Department string        `json:"department,omitempty"`
	TxHash     string        `json:"tx_hash,omitempty"`
	LocalOnly  bool          `json:"local_only"`
}

// recordState is the part of a view record a transition reads and writes.
type recordState struct {
	status     models.Status
	department string
}

// Accept assigns a pending record to the caller. Ledger-backed records are
// accepted on chain first and the ledger decides whether the caller may take
// it; local-only records follow the local transition rules.
func (s *Service) Accept(ctx context.Context, id string) (res *TransitionResult, err error) {
	ctx, span := s.startSpan(ctx, "Accept")
	defer func() { finishSpan(span, err) }()

	parsed, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}
	current, err := s.lookup(ctx, parsed.Kind, id)
	if err != nil {
		return nil, err
	}
	snap := s.Identity(ctx)
	to := models.AcceptedStatus(parsed.Kind)

	if parsed.Local {
		if err := models.Transition(parsed.Kind, current.status, to, models.ActionAccept); err != nil {
			return nil, err
		}
		if err := s.applyTransition(ctx, parsed.Kind, id, to, snap.Address, nil); err != nil {
			return nil, err
		}
		s.emit(ctx, audit.EventRequestAccepted, id, snap.Address, "", string(to), "local_only")
		return &TransitionResult{ID: id, Status: to, Department: snap.Address, LocalOnly: true}, nil
	}

	if !snap.Online() {
		return nil, offline()
	}
	wr, err := s.ledger.AcceptRequest(ctx, parsed.Seq)
	if err != nil {
		s.metrics.ObserveLedgerWrite("accept", metrics.OutcomeFailure)
		s.logger.WarnContext(ctx, "ledger accept failed", "id", id, "error", err)
		return nil, translateLedgerError(err)
	}
	s.metrics.ObserveLedgerWrite("accept", metrics.OutcomeSuccess)

	if err := s.applyTransition(ctx, parsed.Kind, id, to, snap.Address, nil); err != nil {
		s.logger.ErrorContext(ctx, "view update failed after ledger accept", "id", id, "tx_hash", wr.TxHash, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, MessageViewUpdateFailed)
	}
	s.emit(ctx, audit.EventRequestAccepted, id, snap.Address, wr.TxHash, string(to), "")
	s.logger.InfoContext(ctx, "request accepted", "id", id, "department", snap.Address, "tx_hash", wr.TxHash)
	return &TransitionResult{ID: id, Status: to, Department: snap.Address, TxHash: wr.TxHash}, nil
}

// UpdateStatus advances an online application and records admin remarks.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.Status, remarks string) (res *TransitionResult, err error) {
	ctx, span := s.startSpan(ctx, "UpdateStatus")
	defer func() { finishSpan(span, err) }()
	return s.updateStatus(ctx, models.KindRequest, id, status, &remarks)
}

// UpdateCallStatus advances a call request.
func (s *Service) UpdateCallStatus(ctx context.Context, id string, status models.Status) (res *TransitionResult, err error) {
	ctx, span := s.startSpan(ctx, "UpdateCallStatus")
	defer func() { finishSpan(span, err) }()
	return s.updateStatus(ctx, models.KindCall, id, status, nil)
}

// updateStatus re-reads the ledger record and refuses to write unless the
// caller is its assigned department.
func (s *Service) updateStatus(ctx context.Context, kind models.Kind, id string, to models.Status, remarks *string) (*TransitionResult, error) {
	parsed, err := models.ParseID(id)
	if err != nil {
		return nil, err
	}
	if parsed.Kind != kind {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s is not a %s id", id, kind))
	}
	ledgerStatus, err := models.ToLedger(kind, to)
	if err != nil {
		return nil, err
	}
	current, err := s.lookup(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	snap := s.Identity(ctx)

	if parsed.Local {
		if err := models.Transition(kind, current.status, to, models.ActionUpdate); err != nil {
			return nil, err
		}
		if err := s.applyTransition(ctx, kind, id, to, current.department, remarks); err != nil {
			return nil, err
		}
		s.emit(ctx, audit.EventRequestStatusUpdated, id, snap.Address, "", string(to), "local_only")
		return &TransitionResult{ID: id, Status: to, Department: current.department, LocalOnly: true}, nil
	}

	if !snap.Online() {
		return nil, offline()
	}
	rec, err := s.ledger.GetRequest(ctx, parsed.Seq)
	if err != nil {
		return nil, translateLedgerError(err)
	}
	if !rec.Assigned() || !identity.SameAddress(rec.Department, snap.Address) {
		s.emit(ctx, audit.EventStatusUpdateDenied, id, snap.Address, "", string(to), MessageNotAssignedDept)
		s.logger.WarnContext(ctx, "status update denied", "id", id, "caller", snap.Address, "department", rec.Department)
		return nil, dErrors.New(dErrors.CodeForbidden, MessageNotAssignedDept)
	}
	if err := models.Transition(kind, models.FromLedger(kind, rec.Status), to, models.ActionUpdate); err != nil {
		return nil, err
	}

	wr, err := s.ledger.UpdateStatus(ctx, parsed.Seq, ledgerStatus)
	if err != nil {
		s.metrics.ObserveLedgerWrite("update_status", metrics.OutcomeFailure)
		s.logger.WarnContext(ctx, "ledger status update failed", "id", id, "error", err)
		return nil, translateLedgerError(err)
	}
	s.metrics.ObserveLedgerWrite("update_status", metrics.OutcomeSuccess)

	if err := s.applyTransition(ctx, kind, id, to, rec.Department, remarks); err != nil {
		s.logger.ErrorContext(ctx, "view update failed after ledger status update", "id", id, "tx_hash", wr.TxHash, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, MessageViewUpdateFailed)
	}
	s.emit(ctx, audit.EventRequestStatusUpdated, id, snap.Address, wr.TxHash, string(to), "")
	s.logger.InfoContext(ctx, "request status updated", "id", id, "status", to, "tx_hash", wr.TxHash)
	return &TransitionResult{ID: id, Status: to, Department: rec.Department, TxHash: wr.TxHash}, nil
}

func (s *Service) lookup(ctx context.Context, kind models.Kind, id string) (recordState, error) {
	v, err := s.views.Load(ctx)
	if err != nil {
		return recordState{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load view")
	}
	if kind == models.KindCall {
		if i := v.FindCallRequest(id); i >= 0 {
			return recordState{status: v.CallRequests[i].Status, department: v.CallRequests[i].Department}, nil
		}
	} else if i := v.FindRequest(id); i >= 0 {
		return recordState{status: v.Requests[i].Status, department: v.Requests[i].Department}, nil
	}
	return recordState{}, dErrors.New(dErrors.CodeNotFound, MessageRecordNotInView)
}

// applyTransition replaces the record in the view. remarks is nil for calls;
// empty remarks leave the stored ones in place.
func (s *Service) applyTransition(ctx context.Context, kind models.Kind, id string, to models.Status, department string, remarks *string) error {
	now := requestcontext.Now(ctx)
	_, err := s.views.Update(ctx, func(v models.View) (models.View, error) {
		if kind == models.KindCall {
			i := v.FindCallRequest(id)
			if i < 0 {
				return v, dErrors.New(dErrors.CodeNotFound, MessageRecordNotInView)
			}
			c := v.CallRequests[i].Clone()
			c.Status, c.Department, c.UpdatedAt = to, department, now
			v.CallRequests[i] = c
			return v, nil
		}
		i := v.FindRequest(id)
		if i < 0 {
			return v, dErrors.New(dErrors.CodeNotFound, MessageRecordNotInView)
		}
		r := v.Requests[i].Clone()
		r.Status, r.Department, r.UpdatedAt = to, department, now
		if remarks != nil && *remarks != "" {
			r.AdminRemarks = *remarks
		}
		v.Requests[i] = r
		return v, nil
	})
	return err
}
