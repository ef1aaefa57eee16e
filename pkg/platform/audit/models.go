package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryLedger covers actions that produced (or attempted) an on-chain write.
	CategoryLedger EventCategory = "ledger"

	// CategoryDegraded covers actions taken without a reachable ledger.
	CategoryDegraded EventCategory = "degraded"

	// CategoryOperations covers syncs and other routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// Subject is the composite request identifier the action touched, when any.
	Subject string
	Action  string
	// ActorID is the wallet address that performed the action.
	ActorID   string
	TxHash    string
	Status    string
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	EventRequestSubmitted     AuditEvent = "request_submitted"
	EventRequestSavedLocally  AuditEvent = "request_saved_locally"
	EventRequestRejected      AuditEvent = "request_submission_failed"
	EventRequestAccepted      AuditEvent = "request_accepted"
	EventRequestStatusUpdated AuditEvent = "request_status_updated"
	EventStatusUpdateDenied   AuditEvent = "request_status_update_denied"
	EventEnrichmentFailed     AuditEvent = "enrichment_sync_failed"
	EventDepartmentRegistered AuditEvent = "department_registered"
	EventViewSynced           AuditEvent = "view_synced"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRequestSubmitted:     CategoryLedger,
	EventRequestRejected:      CategoryLedger,
	EventRequestAccepted:      CategoryLedger,
	EventRequestStatusUpdated: CategoryLedger,
	EventStatusUpdateDenied:   CategoryLedger,
	EventDepartmentRegistered: CategoryLedger,

	EventRequestSavedLocally: CategoryDegraded,

	EventEnrichmentFailed: CategoryOperations,
	EventViewSynced:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
