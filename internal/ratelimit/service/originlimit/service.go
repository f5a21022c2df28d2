package originlimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"famledger/internal/platform/middleware/requesttime"
	"famledger/internal/ratelimit/config"
	"famledger/internal/ratelimit/metrics"
	"famledger/internal/ratelimit/models"
	dErrors "famledger/pkg/domain-errors"
)

// Store is the slice of the attempt ledger the per-origin limiter uses.
type Store interface {
	RecordOriginRequest(ctx context.Context, origin, path string) error
	CountOriginRequestsSince(ctx context.Context, origin string, since time.Time) (int, error)
}

// Service enforces a per-origin request budget over a sliding window.
// Distinct origins are tracked fully independently; there is no global budget.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  *config.OriginLimitConfig
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithConfig(cfg *config.OriginLimitConfig) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("attempt ledger store is required")
	}

	defaultCfg := config.DefaultConfig().OriginLimit
	svc := &Service{
		store:  store,
		config: &defaultCfg,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Record appends the current request to the ledger. It is called before Check
// so the request that tips the count over the budget denies itself, not the
// one after it.
func (s *Service) Record(ctx context.Context, origin, path string) error {
	if err := s.store.RecordOriginRequest(ctx, origin, path); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record origin request")
	}
	return nil
}

// Check evaluates whether origin has exceeded its request budget.
func (s *Service) Check(ctx context.Context, origin string) (*models.Decision, error) {
	now := requesttime.Now(ctx)
	since := now.Add(-s.config.Window)

	requests, err := s.store.CountOriginRequestsSince(ctx, origin, since)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count origin requests")
	}
	if requests >= s.config.MaxRequests {
		s.metrics.IncrementOriginDenials()
		if s.logger != nil {
			s.logger.InfoContext(ctx, "request denied by origin budget",
				"origin", origin,
				"requests", requests,
				"log_type", "audit",
			)
		}
		return &models.Decision{Allowed: false, RetryAfter: s.config.Window}, nil
	}
	return &models.Decision{Allowed: true}, nil
}

// IsRateLimited reports whether origin has used up its budget for the current
// window. The current request is recorded before the check, so with a budget
// of 100 the 99th request passes and the 100th is denied.
func (s *Service) IsRateLimited(ctx context.Context, origin string) (bool, error) {
	decision, err := s.Check(ctx, origin)
	if err != nil {
		return false, err
	}
	return !decision.Allowed, nil
}
