package audit

import "time"

// EventCategory classifies audit events by their primary purpose so sinks
// can route or retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers changes to an organization's compliance
	// standing. These are kept for reporting and review.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity (document edits, imports,
	// cache maintenance). Useful for debugging; may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Subject is the
// organization the event is about; Previous holds the prior decision for
// change events.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Subject   string        `json:"subject"`
	Action    string        `json:"action"`
	Decision  string        `json:"decision,omitempty"`
	Previous  string        `json:"previous,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventSemaforoChanged       AuditEvent = "semaforo_changed"
	EventSemaforoRefreshFailed AuditEvent = "semaforo_refresh_failed"
	EventSemaforoReconciled    AuditEvent = "semaforo_reconciled"

	EventDocumentCreated   AuditEvent = "document_created"
	EventDocumentUpdated   AuditEvent = "document_updated"
	EventDocumentDeleted   AuditEvent = "document_deleted"
	EventDocumentsImported AuditEvent = "documents_imported"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventSemaforoChanged: CategoryCompliance,

	EventSemaforoRefreshFailed: CategoryOperations,
	EventSemaforoReconciled:    CategoryOperations,
	EventDocumentCreated:       CategoryOperations,
	EventDocumentUpdated:       CategoryOperations,
	EventDocumentDeleted:       CategoryOperations,
	EventDocumentsImported:     CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
