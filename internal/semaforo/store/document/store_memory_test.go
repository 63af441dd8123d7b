package document

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semaforo/internal/semaforo"
	id "semaforo/pkg/domain"
	"semaforo/pkg/platform/sentinel"
)

func newDoc(orgID id.OrganizationID, category semaforo.Category, issued string, createdAt time.Time) *semaforo.Document {
	return &semaforo.Document{
		ID:             id.NewDocumentID(),
		OrganizationID: orgID,
		Category:       category,
		IssueDate:      semaforo.ParseDate(issued),
		Active:         true,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestInMemoryStore_CreateSupersedesSingletons(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	orgID := id.NewOrganizationID()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := newDoc(orgID, semaforo.CategoryOrgChart, "2020-01-01", t0)
	second := newDoc(orgID, semaforo.CategoryOrgChart, "2023-01-01", t0.Add(time.Hour))
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	active, err := store.FindActiveByOrgAndCategory(ctx, orgID, semaforo.CategoryOrgChart)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	_, err = store.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_CreateKeepsMultipleManuals(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	orgID := id.NewOrganizationID()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, newDoc(orgID, semaforo.CategoryProceduresManual, "2019-01-01", t0)))
	require.NoError(t, store.Create(ctx, newDoc(orgID, semaforo.CategoryProceduresManual, "2023-01-01", t0.Add(time.Minute))))

	active, err := store.FindActiveByOrganization(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assert.True(t, active[0].CreatedAt.Before(active[1].CreatedAt))
}

func TestInMemoryStore_CreateRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	doc := newDoc(id.NewOrganizationID(), semaforo.CategoryOrgManual, "2023-01-01", time.Now())

	require.NoError(t, store.Create(ctx, doc))
	assert.ErrorIs(t, store.Create(ctx, doc), sentinel.ErrConflict)
}

func TestInMemoryStore_UpdateAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	orgID := id.NewOrganizationID()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := newDoc(orgID, semaforo.CategoryBylaws, "2019-01-01", t0)
	require.NoError(t, store.Create(ctx, doc))

	doc.IssueDate = semaforo.ParseDate("2022-05-01")
	require.NoError(t, store.Update(ctx, doc))

	got, err := store.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2022, got.IssueDate.Year)

	deleted, err := store.SoftDelete(ctx, doc.ID, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, deleted.Active)
	assert.Equal(t, orgID, deleted.OrganizationID)

	active, err := store.FindActiveByOrganization(ctx, orgID)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = store.SoftDelete(ctx, doc.ID, t0)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, doc), sentinel.ErrNotFound)
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	orgID := id.NewOrganizationID()
	doc := newDoc(orgID, semaforo.CategoryOrgManual, "2023-01-01", time.Now())
	require.NoError(t, store.Create(ctx, doc))

	docs, err := store.FindActiveByOrganization(ctx, orgID)
	require.NoError(t, err)
	docs[0].Active = false

	again, err := store.FindActiveByOrganization(ctx, orgID)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}
