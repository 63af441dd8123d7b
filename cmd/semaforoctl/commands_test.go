package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docservice "semaforo/internal/documents/service"
	"semaforo/internal/semaforo"
	"semaforo/internal/semaforo/service"
	documentstore "semaforo/internal/semaforo/store/document"
	orgstore "semaforo/internal/semaforo/store/organization"
	id "semaforo/pkg/domain"
)

func newTestCommands(t *testing.T) (*commands, *bytes.Buffer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	docs := documentstore.NewInMemoryStore()
	orgs := orgstore.NewInMemoryStore()

	engine, err := service.New(docs, orgs, orgs, service.WithLogger(logger))
	require.NoError(t, err)
	documents, err := docservice.New(docs, orgs, engine, docservice.WithLogger(logger))
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &commands{semaforo: engine, documents: documents, orgs: orgs, out: out}, out
}

func TestDispatch_Usage(t *testing.T) {
	cmds, out := newTestCommands(t)
	ctx := context.Background()

	assert.ErrorIs(t, cmds.dispatch(ctx, nil), errUsage)
	assert.ErrorIs(t, cmds.dispatch(ctx, []string{"status"}), errUsage)
	assert.ErrorIs(t, cmds.dispatch(ctx, []string{"unknown"}), errUsage)
	assert.Contains(t, out.String(), "refresh-all")
}

func TestDispatch_ImportThenStatusAndStats(t *testing.T) {
	cmds, out := newTestCommands(t)
	ctx := context.Background()

	require.NoError(t, cmds.dispatch(ctx, []string{"org-create", "Secretaría de Cultura", "centralizada"}))
	var org semaforo.Organization
	require.NoError(t, json.Unmarshal(out.Bytes(), &org))
	out.Reset()

	rows := []map[string]string{
		{"organization_id": org.ID.String(), "category": "organigrama", "issue_date": "2023-01-01"},
		{"organization_id": org.ID.String(), "category": "reglamento", "issue_date": "2023-01-01"},
		{"organization_id": org.ID.String(), "category": "manual_organizacion", "issue_date": "2023-01-01"},
		{"organization_id": org.ID.String(), "category": "manual_procedimientos", "issue_date": "2023-01-01"},
	}
	raw, err := json.Marshal(rows)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	require.NoError(t, cmds.dispatch(ctx, []string{"import", path}))
	assert.Contains(t, out.String(), `"created": 4`)
	out.Reset()

	require.NoError(t, cmds.dispatch(ctx, []string{"status", org.ID.String()}))
	var cached semaforo.CachedStatus
	require.NoError(t, json.Unmarshal(out.Bytes(), &cached))
	assert.Equal(t, semaforo.StatusGreen, cached.Semaforo)
	out.Reset()

	require.NoError(t, cmds.dispatch(ctx, []string{"stats"}))
	var stats semaforo.Statistics
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Verde)
	assert.Equal(t, 1, stats.PerType["centralizada"].Verde)
}

func TestDispatch_RefreshAll(t *testing.T) {
	cmds, out := newTestCommands(t)
	ctx := context.Background()
	require.NoError(t, cmds.dispatch(ctx, []string{"org-create", "A", "paraestatal"}))
	out.Reset()

	require.NoError(t, cmds.dispatch(ctx, []string{"refresh-all"}))
	var report service.ReconcileReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Refreshed)
}

func TestDispatch_InvalidOrganizationID(t *testing.T) {
	cmds, _ := newTestCommands(t)
	err := cmds.dispatch(context.Background(), []string{"status", "not-a-uuid"})
	assert.Error(t, err)
}

func TestDispatch_DocumentLifecycleRefreshesStatus(t *testing.T) {
	cmds, out := newTestCommands(t)
	ctx := context.Background()

	require.NoError(t, cmds.dispatch(ctx, []string{"org-create", "Instituto", "descentralizada"}))
	var org semaforo.Organization
	require.NoError(t, json.Unmarshal(out.Bytes(), &org))
	out.Reset()

	chartStatus := func() semaforo.Status {
		t.Helper()
		out.Reset()
		require.NoError(t, cmds.dispatch(ctx, []string{"status", org.ID.String()}))
		var cached semaforo.CachedStatus
		require.NoError(t, json.Unmarshal(out.Bytes(), &cached))
		status, _ := cached.Detalles.StatusFor(semaforo.CategoryOrgChart)
		return status
	}

	require.NoError(t, cmds.dispatch(ctx, []string{
		"doc-create", org.ID.String(), "organigrama", "-date", "2019-04-02", "-title", "Organigrama 2019",
	}))
	var doc semaforo.Document
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "Organigrama 2019", doc.Title)
	assert.Equal(t, semaforo.StatusYellow, chartStatus())

	out.Reset()
	require.NoError(t, cmds.dispatch(ctx, []string{"doc-update", doc.ID.String(), "-date", "2023-01-15"}))
	assert.Equal(t, semaforo.StatusGreen, chartStatus())

	out.Reset()
	require.NoError(t, cmds.dispatch(ctx, []string{"doc-delete", doc.ID.String()}))
	assert.Contains(t, out.String(), doc.ID.String())
	assert.Equal(t, semaforo.StatusRed, chartStatus())
}

func TestDispatch_DocumentCommandArguments(t *testing.T) {
	cmds, _ := newTestCommands(t)
	ctx := context.Background()

	assert.ErrorIs(t, cmds.dispatch(ctx, []string{"doc-create", "only-org"}), errUsage)
	assert.ErrorIs(t, cmds.dispatch(ctx, []string{"doc-update", id.NewDocumentID().String()}), errUsage)
	assert.ErrorIs(t, cmds.dispatch(ctx, []string{"doc-update", id.NewDocumentID().String(), "-bogus", "x"}), errUsage)
	assert.ErrorIs(t, cmds.dispatch(ctx, []string{"doc-delete"}), errUsage)
}
