package semaforo

import (
	"fmt"
	"time"

	id "semaforo/pkg/domain"
)

// Document is one filed herramienta as the engine sees it. The document store
// owns the record; the engine only reads these fields.
type Document struct {
	ID             id.DocumentID     `json:"id"`
	OrganizationID id.OrganizationID `json:"organization_id"`
	Category       Category          `json:"category"`
	Title          string            `json:"title,omitempty"`
	IssueDate      Date              `json:"issue_date"`
	Active         bool              `json:"active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// OrgType groups organizations in statistics (e.g. "centralizada",
// "paraestatal"). The engine treats it as an opaque label.
type OrgType string

// Organization is the subset of the organization record the engine needs.
type Organization struct {
	ID     id.OrganizationID `json:"id"`
	Name   string            `json:"name"`
	Type   OrgType           `json:"type"`
	Active bool              `json:"active"`
}

// CategoryStatus is one evaluated category inside an AggregateResult.
type CategoryStatus struct {
	Category Category `json:"category"`
	Status   Status   `json:"status"`
}

// AggregateResult is the organization-level outcome persisted as "detalles".
// PerCategory follows the order of Categories and omits the services manual
// when the organization has none.
type AggregateResult struct {
	Overall           Status           `json:"overall"`
	PerCategory       []CategoryStatus `json:"per_category"`
	HasServicesManual bool             `json:"has_services_manual"`
	Message           string           `json:"message"`
}

// StatusFor returns the evaluated status of c, if it was evaluated.
func (r AggregateResult) StatusFor(c Category) (Status, bool) {
	for _, cs := range r.PerCategory {
		if cs.Category == c {
			return cs.Status, true
		}
	}
	return "", false
}

// CachedStatus is the denormalized pair stored on the organization record.
// Both fields are always written together.
type CachedStatus struct {
	Semaforo Status          `json:"semaforo"`
	Detalles AggregateResult `json:"detalles"`
}

// InitialResult is the cache content of an organization with no documents.
func InitialResult() AggregateResult {
	return AggregateResult{
		Overall:     StatusRed,
		PerCategory: []CategoryStatus{},
		Message:     evaluatedMessage(0),
	}
}

// InitialCachedStatus is written when an organization is created.
func InitialCachedStatus() CachedStatus {
	return CachedStatus{Semaforo: StatusRed, Detalles: InitialResult()}
}

// Cached wraps r into the pair persisted by the cache writer.
func (r AggregateResult) Cached() CachedStatus {
	return CachedStatus{Semaforo: r.Overall, Detalles: r}
}

func evaluatedMessage(n int) string {
	if n == 1 {
		return "Se evaluó 1 herramienta"
	}
	return fmt.Sprintf("Se evaluaron %d herramientas", n)
}
