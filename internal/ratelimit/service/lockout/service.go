package lockout

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

// Store is the slice of the attempt ledger the lockout evaluator reads.
type Store interface {
	CountFailuresSince(ctx context.Context, identity string, since time.Time) (int, error)
	LastFailureAt(ctx context.Context, identity string) (*time.Time, error)
}

// Service derives lockout state on demand from the attempt ledger. Nothing is
// materialized: failureCount is re-counted over a window ending at "now", and
// the cooldown is anchored to the most recent failure, so any new failure
// while locked extends the effective unlock time.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  *config.LockoutConfig
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

func WithConfig(cfg *config.LockoutConfig) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("attempt ledger store is required")
	}

	defaultCfg := config.DefaultConfig().Lockout
	svc := &Service{
		store:  store,
		config: &defaultCfg,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Check evaluates whether identity is currently locked out.
func (s *Service) Check(ctx context.Context, identity string) (*models.Decision, error) {
	now := requesttime.Now(ctx)
	windowStart := now.Add(-s.config.Window)

	failures, err := s.store.CountFailuresSince(ctx, identity, windowStart)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count login failures")
	}
	if failures < s.config.MaxFailures {
		return &models.Decision{Allowed: true}, nil
	}

	lastFailure, err := s.store.LastFailureAt(ctx, identity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read last login failure")
	}
	if lastFailure == nil {
		// Failures counted but no last-failure row is a ledger inconsistency.
		// Fail open to unlocked rather than lock an identity forever.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "lockout ledger inconsistency, failing open",
				"identity", identity,
				"failures", failures,
			)
		}
		return &models.Decision{Allowed: true}, nil
	}

	unlockAt := lastFailure.Add(s.config.Cooldown)
	if now.Before(unlockAt) {
		s.metrics.IncrementLockoutDenials()
		if s.logger != nil {
			s.logger.InfoContext(ctx, "login denied by lockout",
				"identity", identity,
				"failures", failures,
				"unlock_at", unlockAt,
				"log_type", "audit",
			)
		}
		return &models.Decision{Allowed: false, RetryAfter: unlockAt.Sub(now)}, nil
	}

	return &models.Decision{Allowed: true}, nil
}

// IsLocked reports whether identity is currently locked out.
func (s *Service) IsLocked(ctx context.Context, identity string) (bool, error) {
	decision, err := s.Check(ctx, identity)
	if err != nil {
		return false, err
	}
	return !decision.Allowed, nil
}
