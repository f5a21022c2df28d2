package user

import (
	"context"
	"sync"

	"famledger/internal/auth/models"
	"famledger/internal/platform/middleware/requesttime"
	dErrors "famledger/pkg/domain-errors"
)

// InMemoryStore keeps users in process memory for tests and demo runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[int64]*models.User
	byPhone map[string]*models.User
	nextID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[int64]*models.User),
		byPhone: make(map[string]*models.User),
		nextID:  1,
	}
}

func (s *InMemoryStore) Insert(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byPhone[u.Phone]; exists {
		return dErrors.New(dErrors.CodeConflict, "phone already registered")
	}

	now := requesttime.Now(ctx)
	u.ID = s.nextID
	s.nextID++
	u.CreatedAt = now
	u.UpdatedAt = now

	stored := *u
	s.byID[stored.ID] = &stored
	s.byPhone[stored.Phone] = &stored
	return nil
}

func (s *InMemoryStore) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byPhone[phone]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *InMemoryStore) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byPhone[phone]
	return ok, nil
}

func (s *InMemoryStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = requesttime.Now(ctx)
	return nil
}
