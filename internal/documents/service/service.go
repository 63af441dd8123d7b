// Package service implements document mutations. Every mutation that can
// change an organization's active document set is followed by a synchronous
// cache refresh before returning.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"semaforo/internal/documents/models"
	"semaforo/internal/semaforo"
	"semaforo/internal/semaforo/observability"
	"semaforo/internal/semaforo/ports"
	id "semaforo/pkg/domain"
	dErrors "semaforo/pkg/domain-errors"
	"semaforo/pkg/platform/audit"
	"semaforo/pkg/platform/sentinel"
	"semaforo/pkg/requestcontext"
)

type DocumentStore interface {
	Create(ctx context.Context, doc *semaforo.Document) error
	Update(ctx context.Context, doc *semaforo.Document) error
	SoftDelete(ctx context.Context, docID id.DocumentID, at time.Time) (*semaforo.Document, error)
	FindByID(ctx context.Context, docID id.DocumentID) (*semaforo.Document, error)
	FindActiveByOrgAndCategory(ctx context.Context, orgID id.OrganizationID, category semaforo.Category) ([]semaforo.Document, error)
}

type OrganizationLookup interface {
	FindByID(ctx context.Context, orgID id.OrganizationID) (*semaforo.Organization, error)
}

// CacheRefresher recomputes an organization's cached status. It never fails
// from the caller's point of view.
type CacheRefresher interface {
	RefreshCache(ctx context.Context, orgID id.OrganizationID)
}

// Service orchestrates document mutations.
type Service struct {
	documents      DocumentStore
	orgs           OrganizationLookup
	refresher      CacheRefresher
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// New constructs a Service.
func New(documents DocumentStore, orgs OrganizationLookup, refresher CacheRefresher, opts ...Option) (*Service, error) {
	if documents == nil {
		return nil, errors.New("document store is required")
	}
	if orgs == nil {
		return nil, errors.New("organization lookup is required")
	}
	if refresher == nil {
		return nil, errors.New("cache refresher is required")
	}
	s := &Service{documents: documents, orgs: orgs, refresher: refresher}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create files a document. A singleton category supersedes the current
// active document of that category.
func (s *Service) Create(ctx context.Context, req models.CreateRequest) (*semaforo.Document, error) {
	doc, err := s.newDocument(ctx, req.OrganizationID, req.Category, req.Title, req.IssueDate)
	if err != nil {
		return nil, err
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, translateStoreError(err, "failed to create document")
	}
	s.refresh(ctx, doc.OrganizationID)

	s.logAudit(ctx, audit.EventDocumentCreated,
		"organization_id", doc.OrganizationID.String(),
		"document_id", doc.ID.String(),
		"category", string(doc.Category),
	)
	return doc, nil
}

// Update changes title or issue date of an active document.
func (s *Service) Update(ctx context.Context, rawID string, req models.UpdateRequest) (*semaforo.Document, error) {
	docID, err := id.ParseDocumentID(rawID)
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load document")
	}
	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
	}
	if req.IssueDate != nil {
		date, err := parseIssueDate(*req.IssueDate)
		if err != nil {
			return nil, err
		}
		doc.IssueDate = date
	}
	doc.UpdatedAt = requestcontext.Now(ctx)

	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, translateStoreError(err, "failed to update document")
	}
	s.refresh(ctx, doc.OrganizationID)

	s.logAudit(ctx, audit.EventDocumentUpdated,
		"organization_id", doc.OrganizationID.String(),
		"document_id", doc.ID.String(),
		"category", string(doc.Category),
	)
	return doc, nil
}

// Delete soft-deletes a document.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	docID, err := id.ParseDocumentID(rawID)
	if err != nil {
		return err
	}
	doc, err := s.documents.SoftDelete(ctx, docID, requestcontext.Now(ctx))
	if err != nil {
		return translateStoreError(err, "failed to delete document")
	}
	s.refresh(ctx, doc.OrganizationID)

	s.logAudit(ctx, audit.EventDocumentDeleted,
		"organization_id", doc.OrganizationID.String(),
		"document_id", doc.ID.String(),
		"category", string(doc.Category),
	)
	return nil
}

// Import upserts rows. Singleton categories match the active document of the
// category; other categories match an active document with the same title.
// Failed rows are reported and skipped. Each organization touched is
// refreshed once after the rows are applied, including when ctx is cancelled
// partway through: rows already written are never left behind a stale cache.
func (s *Service) Import(ctx context.Context, rows []models.ImportRow) (*models.ImportReport, error) {
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
	report := &models.ImportReport{Failed: []models.ImportFailure{}, Organizations: []id.OrganizationID{}}
	touched := make(map[id.OrganizationID]bool)

	var interrupted error
	for i, row := range rows {
		if interrupted = ctx.Err(); interrupted != nil {
			break
		}
		doc, created, err := s.importRow(ctx, row)
		if err != nil {
			report.Failed = append(report.Failed, models.ImportFailure{Row: i + 1, Reason: err.Error()})
			continue
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
		if !touched[doc.OrganizationID] {
			touched[doc.OrganizationID] = true
			report.Organizations = append(report.Organizations, doc.OrganizationID)
		}
	}

	for _, orgID := range report.Organizations {
		s.refresh(ctx, orgID)
	}

	s.logAudit(detachIfDone(ctx), audit.EventDocumentsImported,
		"created", report.Created,
		"updated", report.Updated,
		"failed", len(report.Failed),
		"organizations", len(report.Organizations),
	)
	return report, interrupted
}

// refresh runs the cache writer after a committed mutation. A cancelled
// request still gets its refresh; the store write already happened.
func (s *Service) refresh(ctx context.Context, orgID id.OrganizationID) {
	s.refresher.RefreshCache(detachIfDone(ctx), orgID)
}

func detachIfDone(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return context.WithoutCancel(ctx)
	}
	return ctx
}

func (s *Service) importRow(ctx context.Context, row models.ImportRow) (*semaforo.Document, bool, error) {
	doc, err := s.newDocument(ctx, row.OrganizationID, row.Category, row.Title, row.IssueDate)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.documents.FindActiveByOrgAndCategory(ctx, doc.OrganizationID, doc.Category)
	if err != nil {
		return nil, false, translateStoreError(err, "failed to load documents")
	}
	if match := matchExisting(doc, existing); match != nil {
		match.Title = doc.Title
		match.IssueDate = doc.IssueDate
		match.UpdatedAt = doc.UpdatedAt
		if err := s.documents.Update(ctx, match); err != nil {
			return nil, false, translateStoreError(err, "failed to update document")
		}
		return match, false, nil
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, false, translateStoreError(err, "failed to create document")
	}
	return doc, true, nil
}

// matchExisting picks the document an import row overwrites, if any.
func matchExisting(doc *semaforo.Document, existing []semaforo.Document) *semaforo.Document {
	if doc.Category.IsSingleton() {
		reps := semaforo.SelectRepresentatives(existing)
		return reps[doc.Category]
	}
	for i := range existing {
		if strings.EqualFold(existing[i].Title, doc.Title) {
			return &existing[i]
		}
	}
	return nil
}

func (s *Service) newDocument(ctx context.Context, rawOrgID, rawCategory, title, rawDate string) (*semaforo.Document, error) {
	orgID, err := id.ParseOrganizationID(strings.TrimSpace(rawOrgID))
	if err != nil {
		return nil, err
	}
	category, err := semaforo.ParseCategory(rawCategory)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	issueDate, err := parseIssueDate(rawDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.orgs.FindByID(ctx, orgID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}

	now := requestcontext.Now(ctx)
	return &semaforo.Document{
		ID:             id.NewDocumentID(),
		OrganizationID: orgID,
		Category:       category,
		Title:          strings.TrimSpace(title),
		IssueDate:      issueDate,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// parseIssueDate accepts an empty value as "no date" and rejects anything
// that is present but unreadable.
func parseIssueDate(raw string) (semaforo.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return semaforo.Date{}, nil
	}
	date := semaforo.ParseDate(raw)
	if !date.Valid() {
		return semaforo.Date{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid issue date %q", raw))
	}
	return date, nil
}

func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "document already exists")
	case dErrors.GetCode(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrs ...any) {
	observability.LogAudit(ctx, s.logger, s.auditPublisher, string(event), attrs...)
}
