package checker

import (
	"context"
	"fmt"

	"famledger/internal/ratelimit/models"
	dErrors "famledger/pkg/domain-errors"
)

// OriginLimiter evaluates the per-origin request budget.
type OriginLimiter interface {
	Check(ctx context.Context, origin string) (*models.Decision, error)
}

// LockoutEvaluator evaluates identity lockout state.
type LockoutEvaluator interface {
	Check(ctx context.Context, identity string) (*models.Decision, error)
}

// Checker gates the login path with both defenses. Origin throttling is
// checked before identity lockout so a flood from one origin cannot be used
// to probe the lockout state of arbitrary identities.
type Checker struct {
	origins  OriginLimiter
	lockouts LockoutEvaluator
}

func New(origins OriginLimiter, lockouts LockoutEvaluator) (*Checker, error) {
	if origins == nil || lockouts == nil {
		return nil, fmt.Errorf("origin limiter and lockout evaluator are required")
	}
	return &Checker{origins: origins, lockouts: lockouts}, nil
}

// ValidateLoginAllowed returns a coded domain error when either defense
// denies the attempt, nil when the login may proceed to captcha and
// credential checks.
func (c *Checker) ValidateLoginAllowed(ctx context.Context, identity, origin string) error {
	originDecision, err := c.origins.Check(ctx, origin)
	if err != nil {
		return err
	}
	if !originDecision.Allowed {
		return dErrors.New(dErrors.CodeRateLimited, "too many requests, please try again later")
	}

	lockDecision, err := c.lockouts.Check(ctx, identity)
	if err != nil {
		return err
	}
	if !lockDecision.Allowed {
		minutes := int(lockDecision.RetryAfter.Minutes()) + 1
		return dErrors.New(dErrors.CodeLockedOut,
			fmt.Sprintf("account is locked, please try again in %d minutes", minutes))
	}

	return nil
}
