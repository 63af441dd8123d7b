package organization

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"semaforo/internal/semaforo"
	id "semaforo/pkg/domain"
	"semaforo/pkg/platform/sentinel"
)

// InMemoryStore holds organizations and their cached status side by side,
// mirroring the denormalized columns of the Postgres table.
type InMemoryStore struct {
	mu     sync.RWMutex
	orgs   map[id.OrganizationID]semaforo.Organization
	status map[id.OrganizationID]semaforo.CachedStatus
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orgs:   make(map[id.OrganizationID]semaforo.Organization),
		status: make(map[id.OrganizationID]semaforo.CachedStatus),
	}
}

// Create stores org with the initial RED cache.
func (s *InMemoryStore) Create(_ context.Context, org *semaforo.Organization) error {
	if org == nil {
		return fmt.Errorf("organization is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orgs[org.ID]; exists {
		return fmt.Errorf("create organization %s: %w", org.ID, sentinel.ErrConflict)
	}
	s.orgs[org.ID] = *org
	s.status[org.ID] = semaforo.InitialCachedStatus()
	return nil
}

// SetActive toggles whether the organization takes part in listings.
func (s *InMemoryStore) SetActive(_ context.Context, orgID id.OrganizationID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[orgID]
	if !ok {
		return sentinel.ErrNotFound
	}
	org.Active = active
	s.orgs[orgID] = org
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, orgID id.OrganizationID) (*semaforo.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[orgID]
	if !ok || !org.Active {
		return nil, sentinel.ErrNotFound
	}
	return &org, nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]semaforo.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]semaforo.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		if org.Active {
			out = append(out, org)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Save replaces both cached fields under one lock.
func (s *InMemoryStore) Save(_ context.Context, orgID id.OrganizationID, status semaforo.CachedStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[orgID]; !ok {
		return sentinel.ErrNotFound
	}
	s.status[orgID] = cloneStatus(status)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, orgID id.OrganizationID) (*semaforo.CachedStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[orgID]
	if !ok || !org.Active {
		return nil, sentinel.ErrNotFound
	}
	status, ok := s.status[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneStatus(status)
	return &out, nil
}

func (s *InMemoryStore) FindMany(_ context.Context, orgIDs []id.OrganizationID) (map[id.OrganizationID]semaforo.CachedStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[id.OrganizationID]semaforo.CachedStatus, len(orgIDs))
	for _, orgID := range orgIDs {
		if status, ok := s.status[orgID]; ok {
			out[orgID] = cloneStatus(status)
		}
	}
	return out, nil
}

func cloneStatus(status semaforo.CachedStatus) semaforo.CachedStatus {
	perCategory := make([]semaforo.CategoryStatus, len(status.Detalles.PerCategory))
	copy(perCategory, status.Detalles.PerCategory)
	status.Detalles.PerCategory = perCategory
	return status
}
