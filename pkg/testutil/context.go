package testutil

import (
	"net/http"
	"time"

	"civicledger/pkg/requestcontext"
)

// WithRequestID tags a request the way the RequestID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithFixedTime pins request-scoped time so timestamps in responses are predictable.
func WithFixedTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
