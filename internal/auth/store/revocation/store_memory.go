package revocation

import (
	"context"
	"sync"
	"time"

	"famledger/internal/auth/models"
	"famledger/internal/platform/middleware/requesttime"
)

type cutoverRecord struct {
	at     time.Time
	reason string
}

// InMemoryStore holds the token blacklist and per-user cutovers in memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	tokens   map[string]models.RevokedToken // keyed by digest
	cutovers map[int64]cutoverRecord        // user id -> reject tokens issued before this
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tokens:   make(map[string]models.RevokedToken),
		cutovers: make(map[int64]cutoverRecord),
	}
}

func (s *InMemoryStore) InsertRevokedToken(_ context.Context, rec *models.RevokedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[rec.Digest] = *rec
	return nil
}

// FindRevokedToken returns the stored blacklist entry, or nil when absent.
func (s *InMemoryStore) FindRevokedToken(_ context.Context, digest string) (*models.RevokedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[digest]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// IsDigestRevoked reports whether the digest is blacklisted and the
// underlying token has not yet expired on its own.
func (s *InMemoryStore) IsDigestRevoked(ctx context.Context, digest string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[digest]
	if !ok {
		return false, nil
	}
	if requesttime.Now(ctx).After(rec.ExpiresAt) {
		return false, nil
	}
	return true, nil
}

// SetSubjectCutover records that all tokens for userID issued before cutover
// are invalid. A cutover never moves backwards.
func (s *InMemoryStore) SetSubjectCutover(_ context.Context, userID int64, cutover time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.cutovers[userID]; ok && existing.at.After(cutover) {
		return nil
	}
	s.cutovers[userID] = cutoverRecord{at: cutover, reason: reason}
	return nil
}

func (s *InMemoryStore) SubjectCutover(_ context.Context, userID int64) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.cutovers[userID]
	if !ok {
		return nil, nil
	}
	return &rec.at, nil
}

func (s *InMemoryStore) DeleteExpiredDigests(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for digest, rec := range s.tokens {
		if now.After(rec.ExpiresAt) {
			delete(s.tokens, digest)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteCutoversBefore drops cutovers old enough that no live token can
// predate them anymore.
func (s *InMemoryStore) DeleteCutoversBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for userID, rec := range s.cutovers {
		if rec.at.Before(cutoff) {
			delete(s.cutovers, userID)
			deleted++
		}
	}
	return deleted, nil
}
