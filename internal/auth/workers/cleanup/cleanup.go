package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"famledger/internal/platform/middleware/requesttime"
)

// CaptchaSweeper removes expired, unredeemed challenges.
type CaptchaSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// RevocationSweeper removes blacklist entries past their token expiry and
// stale cutovers.
type RevocationSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// AttemptStore exposes retention trimming for the attempt ledger.
type AttemptStore interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Result summarizes the deletions performed by a cleanup run.
type Result struct {
	DeletedCaptchas    int
	DeletedRevocations int
	DeletedAttempts    int
}

// Service periodically removes expired defense artifacts.
type Service struct {
	captchas    CaptchaSweeper
	revocations RevocationSweeper
	attempts    AttemptStore
	interval    time.Duration
	retention   time.Duration
	logger      *slog.Logger
}

// Option configures Service.
type Option func(*Service)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithAttemptRetention overrides how long attempt records are kept.
func WithAttemptRetention(retention time.Duration) Option {
	return func(s *Service) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

// WithLogger overrides the logger used for sweep errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a cleanup Service with required collaborators and options applied.
func New(captchas CaptchaSweeper, revocations RevocationSweeper, attempts AttemptStore, opts ...Option) (*Service, error) {
	if captchas == nil || revocations == nil || attempts == nil {
		return nil, fmt.Errorf("captchas, revocations, and attempts are required")
	}
	svc := &Service{
		captchas:    captchas,
		revocations: revocations,
		attempts:    attempts,
		interval:    10 * time.Minute,
		retention:   7 * 24 * time.Hour,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep across captchas, revocations, and the
// attempt ledger. Errors from one sweep do not stop the others; they are
// aggregated and returned.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	var errs []error

	deletedCaptchas, err := s.captchas.SweepExpired(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep expired captchas: %w", err))
	} else {
		res.DeletedCaptchas = deletedCaptchas
	}

	deletedRevocations, err := s.revocations.SweepExpired(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("sweep expired revocations: %w", err))
	} else {
		res.DeletedRevocations = deletedRevocations
	}

	cutoff := requesttime.Now(ctx).Add(-s.retention)
	deletedAttempts, err := s.attempts.DeleteBefore(ctx, cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("trim attempt ledger: %w", err))
	} else {
		res.DeletedAttempts = deletedAttempts
	}

	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	return res, nil
}
