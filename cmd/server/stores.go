package main

import (
	"context"
	"time"
)

// attemptStore is the composition-root view of the attempt ledger: the union
// of what the lockout service, origin limiter, auth service, and cleanup
// worker each consume. Both the in-memory and PostgreSQL stores satisfy it.
type attemptStore interface {
	RecordLoginAttempt(ctx context.Context, identity, origin string, success bool) error
	RecordOriginRequest(ctx context.Context, origin, path string) error
	CountFailuresSince(ctx context.Context, identity string, since time.Time) (int, error)
	LastFailureAt(ctx context.Context, identity string) (*time.Time, error)
	CountOriginRequestsSince(ctx context.Context, origin string, since time.Time) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
