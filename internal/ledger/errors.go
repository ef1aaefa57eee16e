package ledger

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for ledger calls.
type ErrorCategory string

const (
	// ErrorRejected is a reverted or failed transaction.
	ErrorRejected ErrorCategory = "rejected"

	// ErrorUnauthorized is a privileged call made by the wrong identity.
	ErrorUnauthorized ErrorCategory = "unauthorized"

	ErrorWrongNetwork ErrorCategory = "wrong_network"

	ErrorNotFound ErrorCategory = "not_found"

	// ErrorUnavailable means the node could not be reached.
	ErrorUnavailable ErrorCategory = "unavailable"
)

// Error wraps a ledger failure. Reason carries the contract's message verbatim.
type Error struct {
	Op         string
	Category   ErrorCategory
	Reason     string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("ledger %s [%s]: %s: %v", e.Op, e.Category, e.Reason, e.Underlying)
	}
	return fmt.Sprintf("ledger %s [%s]: %s", e.Op, e.Category, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized ledger error.
func NewError(op string, category ErrorCategory, reason string, underlying error) *Error {
	return &Error{Op: op, Category: category, Reason: reason, Underlying: underlying}
}

// CategoryOf extracts the category, or "" for foreign errors.
func CategoryOf(err error) ErrorCategory {
	var le *Error
	if errors.As(err, &le) {
		return le.Category
	}
	return ""
}

// ReasonOf returns the contract's reason, falling back to err.Error().
func ReasonOf(err error) string {
	var le *Error
	if errors.As(err, &le) && le.Reason != "" {
		return le.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsNotFound reports whether err is a missing record.
func IsNotFound(err error) bool {
	return CategoryOf(err) == ErrorNotFound
}
