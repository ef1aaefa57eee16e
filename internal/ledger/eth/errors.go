package eth

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"civicledger/internal/ledger"
)

const revertPrefix = "execution reverted"

// classify maps a node or contract error onto the ledger taxonomy.
func classify(op string, err error) *ledger.Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ledger.NewError(op, ledger.ErrorUnavailable, "request abandoned", err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, revertPrefix):
		reason := revertReason(err)
		if isAuthorizationReason(reason) {
			return ledger.NewError(op, ledger.ErrorUnauthorized, reason, err)
		}
		return ledger.NewError(op, ledger.ErrorRejected, reason, err)
	case strings.Contains(msg, "invalid chain id"), strings.Contains(msg, "chain id mismatch"):
		return ledger.NewError(op, ledger.ErrorWrongNetwork, "wallet is on the wrong network", err)
	case strings.Contains(msg, "insufficient funds"), strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "replacement transaction underpriced"):
		return ledger.NewError(op, ledger.ErrorRejected, err.Error(), err)
	default:
		return ledger.NewError(op, ledger.ErrorUnavailable, "node unreachable", err)
	}
}

// revertReason prefers the ABI-encoded Error(string) payload and falls back
// to the node's message.
func revertReason(err error) string {
	var de rpc.DataError
	if errors.As(err, &de) {
		if data, ok := de.ErrorData().(string); ok {
			if raw, decodeErr := hexutil.Decode(data); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return reason
				}
			}
		}
	}
	msg := err.Error()
	if i := strings.Index(strings.ToLower(msg), revertPrefix); i >= 0 {
		rest := strings.TrimSpace(msg[i+len(revertPrefix):])
		rest = strings.TrimPrefix(rest, ":")
		if rest = strings.TrimSpace(rest); rest != "" {
			return rest
		}
	}
	return msg
}

func isAuthorizationReason(reason string) bool {
	r := strings.ToLower(reason)
	return strings.HasPrefix(r, "only ") || strings.Contains(r, "not authorized") || strings.Contains(r, "unauthorized")
}
