package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "civicledger/pkg/domain-errors"
)

const (
	PrefixRequest = "REQ-"
	PrefixCall    = "CALL-"
	// PrefixLocal marks ids that never reached the ledger. Ledger-derived ids
	// never start with it.
	PrefixLocal = "LOCAL-"
)

// ParsedID is a decoded composite identifier.
type ParsedID struct {
	Kind  Kind
	Seq   uint64 // ledger sequence; zero for local ids
	Local bool
}

// LedgerID builds REQ-<seq> or CALL-<seq>.
func LedgerID(kind Kind, seq uint64) string {
	return prefixFor(kind) + strconv.FormatUint(seq, 10)
}

// NewLocalID mints LOCAL-REQ-xxxxxxxx or LOCAL-CALL-xxxxxxxx.
func NewLocalID(kind Kind) string {
	return PrefixLocal + prefixFor(kind) + strings.ToUpper(uuid.NewString()[:8])
}

func prefixFor(kind Kind) string {
	if kind == KindCall {
		return PrefixCall
	}
	return PrefixRequest
}

// ParseID decodes any identifier the system issues.
func ParseID(id string) (ParsedID, error) {
	id = strings.TrimSpace(id)
	if rest, ok := strings.CutPrefix(id, PrefixLocal); ok {
		kind, suffix, ok := splitKind(rest)
		if !ok || suffix == "" {
			return ParsedID{}, invalidID(id)
		}
		return ParsedID{Kind: kind, Local: true}, nil
	}
	kind, suffix, ok := splitKind(id)
	if !ok {
		return ParsedID{}, invalidID(id)
	}
	seq, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil || seq == 0 {
		return ParsedID{}, invalidID(id)
	}
	return ParsedID{Kind: kind, Seq: seq}, nil
}

func splitKind(s string) (Kind, string, bool) {
	if rest, ok := strings.CutPrefix(s, PrefixRequest); ok {
		return KindRequest, rest, true
	}
	if rest, ok := strings.CutPrefix(s, PrefixCall); ok {
		return KindCall, rest, true
	}
	return "", "", false
}

func invalidID(id string) error {
	return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid request id %q", id))
}
