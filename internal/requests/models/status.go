package models

import (
	"fmt"

	"civicledger/internal/ledger"
	dErrors "civicledger/pkg/domain-errors"
)

// Action is the operation driving a transition.
type Action string

const (
	ActionAccept Action = "accept"
	ActionUpdate Action = "update"
)

var requestFromLedger = map[ledger.Status]Status{
	ledger.StatusPending:    StatusPending,
	ledger.StatusProcessing: StatusProcessing,
	ledger.StatusCompleted:  StatusCompleted,
	ledger.StatusRejected:   StatusRejected,
}

// Ledger status 3 maps back to pending for calls. This conflates a rejected
// call with a fresh one and is kept only because existing data relies on it.
var callFromLedger = map[ledger.Status]Status{
	ledger.StatusPending:    StatusPending,
	ledger.StatusProcessing: StatusContacted,
	ledger.StatusCompleted:  StatusCompleted,
	ledger.StatusRejected:   StatusPending,
}

// FromLedger maps a ledger status to the local enum. Values outside the
// table map to pending.
func FromLedger(kind Kind, s ledger.Status) Status {
	table := requestFromLedger
	if kind == KindCall {
		table = callFromLedger
	}
	if st, ok := table[s]; ok {
		return st
	}
	return StatusPending
}

// IsLossyCallStatus reports the ledger value whose call mapping loses information.
func IsLossyCallStatus(s ledger.Status) bool {
	return s == ledger.StatusRejected
}

// ToLedger maps a local status to the value written on chain.
func ToLedger(kind Kind, s Status) (ledger.Status, error) {
	switch kind {
	case KindCall:
		switch s {
		case StatusPending:
			return ledger.StatusPending, nil
		case StatusContacted:
			return ledger.StatusProcessing, nil
		case StatusCompleted:
			return ledger.StatusCompleted, nil
		}
	default:
		switch s {
		case StatusPending:
			return ledger.StatusPending, nil
		case StatusProcessing:
			return ledger.StatusProcessing, nil
		case StatusCompleted:
			return ledger.StatusCompleted, nil
		case StatusRejected:
			return ledger.StatusRejected, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("status %q is not valid for %s", s, kind))
}

type edge struct {
	from, to Status
	via      Action
}

var transitions = map[Kind]map[edge]bool{
	KindRequest: {
		{StatusPending, StatusProcessing, ActionAccept}:   true,
		{StatusProcessing, StatusCompleted, ActionUpdate}: true,
		{StatusProcessing, StatusRejected, ActionUpdate}:  true,
	},
	KindCall: {
		{StatusPending, StatusContacted, ActionAccept}:   true,
		{StatusContacted, StatusCompleted, ActionUpdate}: true,
	},
}

// AcceptedStatus is where accept moves a pending record.
func AcceptedStatus(kind Kind) Status {
	if kind == KindCall {
		return StatusContacted
	}
	return StatusProcessing
}

// Transition checks that from→to is a legal step for kind via action.
func Transition(kind Kind, from, to Status, via Action) error {
	if transitions[kind][edge{from, to, via}] {
		return nil
	}
	return dErrors.New(dErrors.CodeInvariantViolation,
		fmt.Sprintf("cannot %s %s from %s to %s", via, kind, from, to))
}
