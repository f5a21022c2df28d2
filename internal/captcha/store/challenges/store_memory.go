package challenges

import (
	"context"
	"sync"
	"time"

	"famledger/internal/captcha"
)

// InMemoryStore keeps challenges in a map keyed by handle. Suitable for
// tests and single-instance deployments.
type InMemoryStore struct {
	mu         sync.RWMutex
	challenges map[string]captcha.Challenge
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		challenges: make(map[string]captcha.Challenge),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, challenge *captcha.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.Handle] = *challenge
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, handle string) (*captcha.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, ok := s.challenges[handle]
	if !ok {
		return nil, nil
	}
	return &challenge, nil
}

func (s *InMemoryStore) Delete(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, handle)
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for handle, challenge := range s.challenges {
		if challenge.ExpiresAt.Before(now) {
			delete(s.challenges, handle)
			deleted++
		}
	}
	return deleted, nil
}
