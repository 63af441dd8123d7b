package document

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"semaforo/internal/semaforo"
	id "semaforo/pkg/domain"
	"semaforo/pkg/platform/sentinel"
)

// InMemoryStore keeps documents in a map. Used by tests and the CLI's
// in-process mode.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]semaforo.Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]semaforo.Document)}
}

// Create inserts doc. For singleton categories any other active document of
// the same organization and category is deactivated first.
func (s *InMemoryStore) Create(_ context.Context, doc *semaforo.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return fmt.Errorf("create document %s: %w", doc.ID, sentinel.ErrConflict)
	}
	if doc.Active && doc.Category.IsSingleton() {
		for key, existing := range s.docs {
			if existing.Active && existing.OrganizationID == doc.OrganizationID && existing.Category == doc.Category {
				existing.Active = false
				existing.UpdatedAt = doc.CreatedAt
				s.docs[key] = existing
			}
		}
	}
	s.docs[doc.ID] = *doc
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, doc *semaforo.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[doc.ID]
	if !ok || !existing.Active {
		return sentinel.ErrNotFound
	}
	s.docs[doc.ID] = *doc
	return nil
}

// SoftDelete marks the document inactive and returns its final state.
func (s *InMemoryStore) SoftDelete(_ context.Context, docID id.DocumentID, at time.Time) (*semaforo.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok || !doc.Active {
		return nil, sentinel.ErrNotFound
	}
	doc.Active = false
	doc.UpdatedAt = at
	s.docs[docID] = doc
	return &doc, nil
}

// FindByID returns active documents only.
func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*semaforo.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[docID]
	if !ok || !doc.Active {
		return nil, sentinel.ErrNotFound
	}
	return &doc, nil
}

func (s *InMemoryStore) FindActiveByOrganization(_ context.Context, orgID id.OrganizationID) ([]semaforo.Document, error) {
	return s.filterActive(func(d semaforo.Document) bool {
		return d.OrganizationID == orgID
	}), nil
}

func (s *InMemoryStore) FindActiveByOrgAndCategory(_ context.Context, orgID id.OrganizationID, category semaforo.Category) ([]semaforo.Document, error) {
	return s.filterActive(func(d semaforo.Document) bool {
		return d.OrganizationID == orgID && d.Category == category
	}), nil
}

func (s *InMemoryStore) filterActive(match func(semaforo.Document) bool) []semaforo.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]semaforo.Document, 0)
	for _, doc := range s.docs {
		if doc.Active && match(doc) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
