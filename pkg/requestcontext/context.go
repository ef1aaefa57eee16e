// Package requestcontext carries request-scoped values that services and
// stores read without importing net/http. The HTTP middleware sets them; the
// CLI and the sync worker fall back to the defaults.
//
// Tests pin the clock with WithTime so submitted and updated timestamps are
// predictable.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey struct{}
	nowKey       struct{}
)

// RequestID is the correlation id of the inbound call, or "" outside HTTP.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the instant the request started. Without one set it reads the wall
// clock in UTC.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, t)
}
