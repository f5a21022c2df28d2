package attempts

import (
	"context"
	"sync"
	"time"

	"famledger/internal/platform/middleware/requesttime"
	"famledger/internal/ratelimit/models"
)

// InMemoryStore is an in-memory attempt ledger for tests and single-instance
// deployments. Records are append-only; only DeleteBefore removes rows.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.AttemptRecord
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) RecordLoginAttempt(ctx context.Context, identity, origin string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, models.AttemptRecord{
		Kind:      models.KindLogin,
		Identity:  identity,
		Origin:    origin,
		Success:   success,
		CreatedAt: requesttime.Now(ctx),
	})
	return nil
}

func (s *InMemoryStore) RecordOriginRequest(ctx context.Context, origin, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, models.AttemptRecord{
		Kind:      models.KindRequest,
		Origin:    origin,
		Path:      path,
		CreatedAt: requesttime.Now(ctx),
	})
	return nil
}

// CountFailuresSince counts failed login attempts for identity with
// CreatedAt >= since. The lower bound is inclusive.
func (s *InMemoryStore) CountFailuresSince(_ context.Context, identity string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.records {
		if r.Kind == models.KindLogin && r.Identity == identity && !r.Success && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// LastFailureAt returns the timestamp of the most recent failed login attempt
// for identity, or nil if none exists.
func (s *InMemoryStore) LastFailureAt(_ context.Context, identity string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *time.Time
	for i := range s.records {
		r := s.records[i]
		if r.Kind != models.KindLogin || r.Identity != identity || r.Success {
			continue
		}
		if last == nil || r.CreatedAt.After(*last) {
			t := r.CreatedAt
			last = &t
		}
	}
	return last, nil
}

// CountOriginRequestsSince counts origin traffic records with
// CreatedAt >= since. The lower bound is inclusive.
func (s *InMemoryStore) CountOriginRequestsSince(_ context.Context, origin string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.records {
		if r.Kind == models.KindRequest && r.Origin == origin && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// DeleteBefore removes records older than cutoff. Storage hygiene only; the
// sliding-window queries never read past their own window.
func (s *InMemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	deleted := 0
	for _, r := range s.records {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}
