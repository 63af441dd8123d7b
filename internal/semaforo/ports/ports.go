// Package ports defines the collaborators the semaforo engine depends on.
// Stores return sentinel errors; services translate them to domain errors.
package ports

import (
	"context"

	"semaforo/internal/semaforo"
	id "semaforo/pkg/domain"
	"semaforo/pkg/platform/audit"
)

// AuditPublisher emits audit events for compliance-relevant changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// DocumentStore is the read side of the document repository.
type DocumentStore interface {
	// FindActiveByOrganization returns only active, non-deleted documents.
	FindActiveByOrganization(ctx context.Context, orgID id.OrganizationID) ([]semaforo.Document, error)
}

// OrganizationStore reads organization records.
type OrganizationStore interface {
	// FindByID returns sentinel.ErrNotFound for unknown organizations.
	FindByID(ctx context.Context, orgID id.OrganizationID) (*semaforo.Organization, error)

	// ListActive returns every active organization with its type.
	ListActive(ctx context.Context) ([]semaforo.Organization, error)
}

// StatusCache persists the denormalized {semaforo, detalles} pair.
type StatusCache interface {
	// Save writes both fields in a single atomic operation.
	Save(ctx context.Context, orgID id.OrganizationID, status semaforo.CachedStatus) error

	// Find returns sentinel.ErrNotFound when no value has been written.
	Find(ctx context.Context, orgID id.OrganizationID) (*semaforo.CachedStatus, error)

	// FindMany omits organizations without a cached value.
	FindMany(ctx context.Context, orgIDs []id.OrganizationID) (map[id.OrganizationID]semaforo.CachedStatus, error)
}
