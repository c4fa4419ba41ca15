// Package helpreq owns the help-request lifecycle: creation when the
// agent escalates, resolution by a supervisor, timeout sweeps for stale
// requests, and aggregate statistics.
//
// The state machine is PENDING -> RESOLVED or PENDING -> TIMEOUT; both
// end states are terminal. Transitions are enforced by the store's
// conditional update, so concurrent resolvers (dashboard, CLI, another
// process) cannot double-apply them.
package helpreq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/frontdeskd/internal/knowledge"
	"github.com/fyrsmithlabs/frontdeskd/internal/notify"
	"github.com/fyrsmithlabs/frontdeskd/internal/prompts"
	"github.com/fyrsmithlabs/frontdeskd/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/frontdeskd/internal/helpreq"

// DefaultResolverName is stamped on resolutions when no name is given.
const DefaultResolverName = "Supervisor"

// statsWindow caps how many recent requests feed the aggregate, for
// cost control.
const statsWindow = 1000

var (
	// ErrNotFound is returned when the request ID is unknown.
	ErrNotFound = errors.New("help request not found")

	// ErrInvalidTransition is returned when the request is not PENDING.
	ErrInvalidTransition = errors.New("help request is not pending")

	// ErrValidation is returned on missing required fields.
	ErrValidation = errors.New("validation failed")
)

// Stats is the read-only aggregate over recent help requests.
type Stats struct {
	Total                int     `json:"total_requests"`
	Pending              int     `json:"pending"`
	Resolved             int     `json:"resolved"`
	Timeout              int     `json:"timeout"`
	AvgResolutionMinutes float64 `json:"avg_resolution_time_minutes"`
	ResolutionRatePct    float64 `json:"resolution_rate"`
}

// Service manages help-request state and the side effects attached to
// each transition.
type Service struct {
	store    store.Store
	index    *knowledge.Index
	notifier notify.Notifier
	logger   *zap.Logger

	tracer         trace.Tracer
	meter          metric.Meter
	createCounter  metric.Int64Counter
	resolveCounter metric.Int64Counter
	timeoutCounter metric.Int64Counter
}

// NewService creates a help-request lifecycle service.
func NewService(st store.Store, index *knowledge.Index, notifier notify.Notifier, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if index == nil {
		return nil, errors.New("knowledge index is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:    st,
		index:    index,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	s.initMetrics()

	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.createCounter, err = s.meter.Int64Counter(
		"frontdeskd.helpreq.created_total",
		metric.WithDescription("Total number of help requests created"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		s.logger.Warn("failed to create create counter", zap.Error(err))
	}

	s.resolveCounter, err = s.meter.Int64Counter(
		"frontdeskd.helpreq.resolved_total",
		metric.WithDescription("Total number of help requests resolved"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		s.logger.Warn("failed to create resolve counter", zap.Error(err))
	}

	s.timeoutCounter, err = s.meter.Int64Counter(
		"frontdeskd.helpreq.timed_out_total",
		metric.WithDescription("Total number of help requests timed out"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		s.logger.Warn("failed to create timeout counter", zap.Error(err))
	}
}

// Create persists a new PENDING request, then alerts a supervisor.
// Persistence strictly precedes notification so an alerted supervisor
// can always find the record. Notification failure is logged and
// swallowed; the request stands.
func (s *Service) Create(ctx context.Context, callerID, callerContact, question, convContext string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "helpreq.create")
	defer span.End()

	if strings.TrimSpace(callerID) == "" || strings.TrimSpace(callerContact) == "" || strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("caller id, contact, and question are required: %w", ErrValidation)
	}

	req := &store.HelpRequest{
		CallerID:      callerID,
		CallerContact: callerContact,
		Question:      question,
		Context:       convContext,
		Status:        store.StatusPending,
	}

	id, err := s.store.CreateHelpRequest(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to create help request: %w", err)
	}

	if err := s.notifier.NotifySupervisor(ctx, prompts.EscalationAlert(question, callerContact), id); err != nil {
		s.logger.Warn("supervisor notification failed",
			zap.String("request_id", id),
			zap.Error(err),
		)
	}

	if s.createCounter != nil {
		s.createCounter.Add(ctx, 1)
	}

	s.logger.Info("help request created",
		zap.String("request_id", id),
		zap.String("caller", callerContact),
		zap.String("question", question),
	)

	span.SetAttributes(attribute.String("request_id", id))
	return id, nil
}

// Resolve transitions a PENDING request to RESOLVED, learns the answer
// into the knowledge index, and sends the caller a follow-up.
//
// Returns (false, ErrNotFound) for unknown IDs and
// (false, ErrInvalidTransition) for requests already resolved or timed
// out; a second call on the same ID never learns or notifies twice.
func (s *Service) Resolve(ctx context.Context, id, answer, resolver string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "helpreq.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", id))

	if strings.TrimSpace(answer) == "" {
		return false, fmt.Errorf("answer is required: %w", ErrValidation)
	}
	if resolver == "" {
		resolver = DefaultResolverName
	}

	req, err := s.store.GetHelpRequest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("resolve on unknown help request", zap.String("request_id", id))
		return false, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to load help request: %w", err)
	}

	ok, err := s.store.UpdateHelpRequestResolved(ctx, id, answer, resolver)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to resolve help request: %w", err)
	}
	if !ok {
		s.logger.Warn("resolve on non-pending help request",
			zap.String("request_id", id),
			zap.String("status", string(req.Status)),
		)
		return false, ErrInvalidTransition
	}

	// The transition is authoritative from here on; learning and
	// notification failures are logged, never rolled back.
	if _, err := s.index.Learn(ctx, req.Question, answer, id); err != nil {
		s.logger.Error("failed to learn resolved answer",
			zap.String("request_id", id),
			zap.Error(err),
		)
	}

	if err := s.notifier.NotifyCaller(ctx, req.CallerContact, prompts.FollowUp(req.Question, answer)); err != nil {
		s.logger.Warn("caller follow-up failed",
			zap.String("request_id", id),
			zap.String("contact", req.CallerContact),
			zap.Error(err),
		)
	}

	if s.resolveCounter != nil {
		s.resolveCounter.Add(ctx, 1)
	}

	s.logger.Info("help request resolved",
		zap.String("request_id", id),
		zap.String("resolver", resolver),
	)
	return true, nil
}

// TimeoutStale transitions every PENDING request older than maxAge to
// TIMEOUT. Pure sweep: no notifications, idempotent, returns the number
// of requests timed out.
func (s *Service) TimeoutStale(ctx context.Context, maxAge time.Duration) (int, error) {
	ctx, span := s.tracer.Start(ctx, "helpreq.timeout_stale")
	defer span.End()

	pending, err := s.store.ListPending(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to list pending requests: %w", err)
	}

	now := time.Now().UTC()
	count := 0
	for _, req := range pending {
		if now.Sub(req.CreatedAt) <= maxAge {
			continue
		}
		ok, err := s.store.UpdateHelpRequestTimeout(ctx, req.ID)
		if err != nil {
			s.logger.Error("failed to time out help request",
				zap.String("request_id", req.ID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			count++
			s.logger.Info("help request timed out",
				zap.String("request_id", req.ID),
				zap.Duration("age", now.Sub(req.CreatedAt)),
			)
		}
	}

	if count > 0 && s.timeoutCounter != nil {
		s.timeoutCounter.Add(ctx, int64(count))
	}

	span.SetAttributes(attribute.Int("timed_out", count))
	return count, nil
}

// Pending returns all PENDING requests, newest first.
func (s *Service) Pending(ctx context.Context) ([]*store.HelpRequest, error) {
	return s.store.ListPending(ctx)
}

// Recent returns up to limit requests, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*store.HelpRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListRecent(ctx, limit)
}

// Stats aggregates the most recent requests.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := s.tracer.Start(ctx, "helpreq.stats")
	defer span.End()

	requests, err := s.store.ListRecent(ctx, statsWindow)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list requests for stats: %w", err)
	}

	stats := &Stats{Total: len(requests)}
	var resolutionMinutes float64
	for _, req := range requests {
		switch req.Status {
		case store.StatusPending:
			stats.Pending++
		case store.StatusResolved:
			stats.Resolved++
			if req.ResolvedAt != nil {
				resolutionMinutes += req.ResolvedAt.Sub(req.CreatedAt).Minutes()
			}
		case store.StatusTimeout:
			stats.Timeout++
		}
	}

	if stats.Resolved > 0 {
		stats.AvgResolutionMinutes = round1(resolutionMinutes / float64(stats.Resolved))
	}
	if stats.Total > 0 {
		stats.ResolutionRatePct = round1(float64(stats.Resolved) / float64(stats.Total) * 100)
	}

	return stats, nil
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
