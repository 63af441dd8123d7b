// Package service is the cache writer and read side of the semaforo engine.
//
// Writes (RefreshCache, RefreshAll) recompute an organization's status from its
// active documents and persist the {semaforo, detalles} pair. Reads
// (ReadCachedStatus, ReduceStatistics) only ever see persisted values.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"semaforo/internal/semaforo"
	"semaforo/internal/semaforo/metrics"
	"semaforo/internal/semaforo/observability"
	"semaforo/internal/semaforo/ports"
	id "semaforo/pkg/domain"
	dErrors "semaforo/pkg/domain-errors"
	"semaforo/pkg/platform/audit"
	"semaforo/pkg/platform/sentinel"
)

const (
	defaultMaxRetries    = 2
	defaultRetryInterval = 50 * time.Millisecond
	defaultConcurrency   = 4
)

// Service computes, caches and reports organization statuses.
type Service struct {
	documents      ports.DocumentStore
	orgs           ports.OrganizationStore
	cache          ports.StatusCache
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	rules          semaforo.Rules
	maxRetries     uint64
	retryInterval  time.Duration
	concurrency    int
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRules overrides the year thresholds used by the evaluator.
func WithRules(rules semaforo.Rules) Option {
	return func(s *Service) {
		s.rules = rules
	}
}

// WithRetry bounds how often a failed cache write is retried before the
// refresh is given up. maxRetries of zero disables retrying.
func WithRetry(maxRetries uint64, interval time.Duration) Option {
	return func(s *Service) {
		s.maxRetries = maxRetries
		if interval > 0 {
			s.retryInterval = interval
		}
	}
}

// WithConcurrency caps parallel refreshes in RefreshAll.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New constructs a Service.
func New(documents ports.DocumentStore, orgs ports.OrganizationStore, cache ports.StatusCache, opts ...Option) (*Service, error) {
	if documents == nil {
		return nil, errors.New("document store is required")
	}
	if orgs == nil {
		return nil, errors.New("organization store is required")
	}
	if cache == nil {
		return nil, errors.New("status cache is required")
	}
	s := &Service{
		documents:     documents,
		orgs:          orgs,
		cache:         cache,
		logger:        slog.Default(),
		rules:         semaforo.DefaultRules,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		concurrency:   defaultConcurrency,
		tracer:        otel.Tracer("semaforo/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ComputeStatus evaluates the organization's active documents without
// touching the cache. It never fails: when the documents cannot be read the
// result is the all-RED evaluation of an empty document set.
func (s *Service) ComputeStatus(ctx context.Context, orgID id.OrganizationID) semaforo.AggregateResult {
	ctx, span := s.tracer.Start(ctx, "semaforo.ComputeStatus",
		trace.WithAttributes(attribute.String("organization_id", orgID.String())))
	defer span.End()

	result, err := s.compute(ctx, orgID)
	if err != nil {
		recordSpanError(span, err)
		s.logger.WarnContext(ctx, "semaforo degraded to rojo",
			"organization_id", orgID.String(),
			"error", err,
		)
		return s.rules.Aggregate(nil)
	}
	span.SetAttributes(attribute.String("overall", string(result.Overall)))
	return result
}

func (s *Service) compute(ctx context.Context, orgID id.OrganizationID) (semaforo.AggregateResult, error) {
	docs, err := s.documents.FindActiveByOrganization(ctx, orgID)
	if err != nil {
		return semaforo.AggregateResult{}, fmt.Errorf("load active documents: %w", err)
	}
	return s.rules.Aggregate(docs), nil
}

// RefreshCache recomputes and persists the organization's status. Call it
// after every document mutation for orgID. Failures are logged and counted;
// the previous cached value stays in place.
func (s *Service) RefreshCache(ctx context.Context, orgID id.OrganizationID) {
	_ = s.refresh(ctx, orgID)
}

func (s *Service) refresh(ctx context.Context, orgID id.OrganizationID) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "semaforo.RefreshCache",
		trace.WithAttributes(attribute.String("organization_id", orgID.String())))
	defer span.End()

	previous, result, err := s.recomputeAndSave(ctx, orgID)
	if err != nil {
		recordSpanError(span, err)
		s.observeRefresh(metrics.OutcomeFailure, start)
		s.logger.ErrorContext(ctx, "semaforo refresh failed",
			"organization_id", orgID.String(),
			"error", err,
		)
		observability.LogAudit(ctx, nil, s.auditPublisher, string(audit.EventSemaforoRefreshFailed),
			"organization_id", orgID.String(),
			"error", err.Error(),
		)
		return err
	}

	s.observeRefresh(metrics.OutcomeSuccess, start)
	s.observeCategories(result)
	span.SetAttributes(attribute.String("overall", string(result.Overall)))

	if previous != "" && previous != result.Overall {
		s.incrementTransition(previous, result.Overall)
		observability.LogAudit(ctx, s.logger, s.auditPublisher, string(audit.EventSemaforoChanged),
			"organization_id", orgID.String(),
			"from", string(previous),
			"to", string(result.Overall),
		)
	}
	return nil
}

// recomputeAndSave returns the previously cached overall status ("" when it
// could not be read) and the freshly persisted result.
func (s *Service) recomputeAndSave(ctx context.Context, orgID id.OrganizationID) (semaforo.Status, semaforo.AggregateResult, error) {
	if _, err := s.orgs.FindByID(ctx, orgID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", semaforo.AggregateResult{}, fmt.Errorf("organization %s: %w", orgID, err)
		}
		return "", semaforo.AggregateResult{}, fmt.Errorf("load organization: %w", err)
	}

	result, err := s.compute(ctx, orgID)
	if err != nil {
		return "", semaforo.AggregateResult{}, err
	}

	previous := s.previousStatus(ctx, orgID)

	if err := s.save(ctx, orgID, result.Cached()); err != nil {
		return "", semaforo.AggregateResult{}, err
	}
	return previous, result, nil
}

func (s *Service) previousStatus(ctx context.Context, orgID id.OrganizationID) semaforo.Status {
	cached, err := s.cache.Find(ctx, orgID)
	switch {
	case err == nil:
		return cached.Semaforo
	case errors.Is(err, sentinel.ErrNotFound):
		return semaforo.InitialCachedStatus().Semaforo
	default:
		s.logger.DebugContext(ctx, "previous semaforo unavailable",
			"organization_id", orgID.String(),
			"error", err,
		)
		return ""
	}
}

// save retries transient write failures. A missing organization is not
// retried.
func (s *Service) save(ctx context.Context, orgID id.OrganizationID, status semaforo.CachedStatus) error {
	var permanent error
	op := func() error {
		err := s.cache.Save(ctx, orgID, status)
		if errors.Is(err, sentinel.ErrNotFound) {
			permanent = err
			return nil
		}
		return err
	}
	// WithMaxRetries treats zero as unlimited.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if s.maxRetries > 0 {
		policy = backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryInterval), s.maxRetries)
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("persist semaforo: %w", err)
	}
	if permanent != nil {
		return fmt.Errorf("persist semaforo: %w", permanent)
	}
	return nil
}

// ReadCachedStatus returns the persisted pair without recomputing. Unknown or
// inactive organizations are not_found whatever the cache backend holds; an
// active organization that was never refreshed reads as the initial RED status.
func (s *Service) ReadCachedStatus(ctx context.Context, orgID id.OrganizationID) (*semaforo.CachedStatus, error) {
	if _, err := s.orgs.FindByID(ctx, orgID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}

	cached, err := s.cache.Find(ctx, orgID)
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, sentinel.ErrNotFound):
		initial := semaforo.InitialCachedStatus()
		return &initial, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read semaforo")
	}
}

// ReduceStatistics folds the cached status of every active organization.
// Organizations without a cached value count as rojo.
func (s *Service) ReduceStatistics(ctx context.Context) (semaforo.Statistics, error) {
	orgs, err := s.orgs.ListActive(ctx)
	if err != nil {
		return semaforo.Statistics{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}
	ids := make([]id.OrganizationID, len(orgs))
	for i, org := range orgs {
		ids[i] = org.ID
	}
	cached, err := s.cache.FindMany(ctx, ids)
	if err != nil {
		return semaforo.Statistics{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read semaforos")
	}

	entries := make([]semaforo.StatisticsEntry, len(orgs))
	for i, org := range orgs {
		status := semaforo.InitialCachedStatus().Semaforo
		if c, ok := cached[org.ID]; ok {
			status = c.Semaforo
		}
		entries[i] = semaforo.StatisticsEntry{Type: org.Type, Semaforo: status}
	}
	return semaforo.ReduceStatistics(entries), nil
}

// ReconcileReport summarizes a RefreshAll run.
type ReconcileReport struct {
	Total     int                 `json:"total"`
	Refreshed int                 `json:"refreshed"`
	Failed    []id.OrganizationID `json:"failed"`
	Duration  time.Duration       `json:"duration"`
}

// RefreshAll refreshes every active organization with bounded concurrency.
// Individual failures are reported, not returned; only failing to list the
// organizations is an error.
func (s *Service) RefreshAll(ctx context.Context) (ReconcileReport, error) {
	start := time.Now()
	orgs, err := s.orgs.ListActive(ctx)
	if err != nil {
		return ReconcileReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}

	var (
		refreshed atomic.Int64
		mu        sync.Mutex
		failed    []id.OrganizationID
	)
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, org := range orgs {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				failed = append(failed, org.ID)
				mu.Unlock()
				return nil
			}
			if err := s.refresh(ctx, org.ID); err != nil {
				mu.Lock()
				failed = append(failed, org.ID)
				mu.Unlock()
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failed, func(i, j int) bool { return failed[i].String() < failed[j].String() })
	report := ReconcileReport{
		Total:     len(orgs),
		Refreshed: int(refreshed.Load()),
		Failed:    failed,
		Duration:  time.Since(start),
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, string(audit.EventSemaforoReconciled),
		"total", report.Total,
		"refreshed", report.Refreshed,
		"failed", len(report.Failed),
	)
	return report, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *Service) observeRefresh(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveRefresh(outcome, start)
}

func (s *Service) observeCategories(result semaforo.AggregateResult) {
	if s.metrics == nil {
		return
	}
	for _, cs := range result.PerCategory {
		s.metrics.IncrementCategoryEvaluation(string(cs.Category), string(cs.Status))
	}
}

func (s *Service) incrementTransition(from, to semaforo.Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementTransition(string(from), string(to))
}
