package lockout

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"famledger/internal/platform/middleware/requesttime"
	"famledger/internal/ratelimit/config"
	attemptsStore "famledger/internal/ratelimit/store/attempts"
)

type LockoutServiceSuite struct {
	suite.Suite
	store   *attemptsStore.InMemoryStore
	service *Service
	base    time.Time
}

func TestLockoutServiceSuite(t *testing.T) {
	suite.Run(t, new(LockoutServiceSuite))
}

func (s *LockoutServiceSuite) SetupTest() {
	cfg := config.DefaultConfig().Lockout
	s.store = attemptsStore.New()
	s.base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.service, err = New(
		s.store,
		WithLogger(logger),
		WithConfig(&cfg),
	)
	s.Require().NoError(err)
}

func (s *LockoutServiceSuite) at(offset time.Duration) context.Context {
	return requesttime.WithTime(context.Background(), s.base.Add(offset))
}

func (s *LockoutServiceSuite) recordFailures(phone string, offsets ...time.Duration) {
	for _, offset := range offsets {
		s.Require().NoError(s.store.RecordLoginAttempt(s.at(offset), phone, "10.0.0.5", false))
	}
}

func (s *LockoutServiceSuite) TestBelowThresholdStaysUnlocked() {
	s.recordFailures("13800000000", 0, time.Minute, 2*time.Minute, 3*time.Minute)

	locked, err := s.service.IsLocked(s.at(4*time.Minute), "13800000000")
	s.NoError(err)
	s.False(locked, "four failures must not lock")
}

func (s *LockoutServiceSuite) TestExactlyThresholdLocks() {
	s.recordFailures("13800000000", 0, time.Minute, 2*time.Minute, 3*time.Minute, 4*time.Minute)

	locked, err := s.service.IsLocked(s.at(4*time.Minute+30*time.Second), "13800000000")
	s.NoError(err)
	s.True(locked, "exactly five failures within the window locks")
}

func (s *LockoutServiceSuite) TestCooldownAnchoredToLastFailure() {
	// Failures at minutes 0..4; last failure at minute 4.
	s.recordFailures("13800000000", 0, time.Minute, 2*time.Minute, 3*time.Minute, 4*time.Minute)

	s.Run("still locked just before cooldown ends", func() {
		locked, err := s.service.IsLocked(s.at(34*time.Minute+54*time.Second), "13800000000")
		s.NoError(err)
		s.True(locked)
	})

	s.Run("unlocked just after cooldown ends", func() {
		locked, err := s.service.IsLocked(s.at(35*time.Minute+6*time.Second), "13800000000")
		s.NoError(err)
		s.False(locked)
	})
}

func (s *LockoutServiceSuite) TestNewFailureExtendsUnlockTime() {
	s.recordFailures("13800000000", 0, time.Minute, 2*time.Minute, 3*time.Minute, 4*time.Minute)
	// Another failure at minute 10 moves the anchor.
	s.recordFailures("13800000000", 10*time.Minute)

	locked, err := s.service.IsLocked(s.at(36*time.Minute), "13800000000")
	s.NoError(err)
	s.True(locked, "cooldown must run from the most recent failure")

	locked, err = s.service.IsLocked(s.at(40*time.Minute+6*time.Second), "13800000000")
	s.NoError(err)
	s.False(locked)
}

func (s *LockoutServiceSuite) TestFailuresOutsideWindowDoNotCount() {
	// Five failures, but the window at evaluation time only covers four.
	s.recordFailures("13800000000", 0, 10*time.Minute, 11*time.Minute, 12*time.Minute, 13*time.Minute)

	locked, err := s.service.IsLocked(s.at(16*time.Minute), "13800000000")
	s.NoError(err)
	s.False(locked, "the failure at minute 0 left the 15 minute window")
}

func (s *LockoutServiceSuite) TestWindowBoundaryIsInclusive() {
	// Failure exactly at windowStart still counts.
	s.recordFailures("13800000000", 0, time.Minute, 2*time.Minute, 3*time.Minute, 4*time.Minute)

	locked, err := s.service.IsLocked(s.at(15*time.Minute), "13800000000")
	s.NoError(err)
	s.True(locked, "a failure exactly at the window boundary is inside the window")
}

func (s *LockoutServiceSuite) TestCheckReportsRetryAfter() {
	s.recordFailures("13800000000", 0, time.Minute, 2*time.Minute, 3*time.Minute, 4*time.Minute)

	decision, err := s.service.Check(s.at(14*time.Minute), "13800000000")
	s.NoError(err)
	s.False(decision.Allowed)
	s.Equal(20*time.Minute, decision.RetryAfter)
}

func (s *LockoutServiceSuite) TestDistinctIdentitiesIndependent() {
	s.recordFailures("13800000000", 0, time.Minute, 2*time.Minute, 3*time.Minute, 4*time.Minute)

	locked, err := s.service.IsLocked(s.at(5*time.Minute), "13900000000")
	s.NoError(err)
	s.False(locked)
}
