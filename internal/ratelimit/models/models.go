package models

import "time"

// AttemptKind distinguishes the two sub-streams sharing the attempt ledger.
type AttemptKind string

const (
	// KindLogin marks a login attempt; Identity is populated and Success is meaningful.
	KindLogin AttemptKind = "login"
	// KindRequest marks generic per-origin traffic; Identity is empty.
	KindRequest AttemptKind = "request"
)

// AttemptRecord is one immutable row in the append-only attempt ledger.
// Records are never mutated after insert; retention sweeps delete in bulk only.
type AttemptRecord struct {
	Kind      AttemptKind
	Identity  string // phone for login attempts, empty for origin traffic
	Origin    string // client network address
	Path      string // request path for origin traffic
	Success   bool   // login outcome; always false for KindRequest
	CreatedAt time.Time
}

// Decision is the outcome of a lockout or rate-limit evaluation.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // how long until the caller may retry; zero when allowed
}
