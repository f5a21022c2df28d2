package config

import "time"

// Config holds the defense policy parameters for login lockout and
// per-origin throttling.
type Config struct {
	Lockout     LockoutConfig
	OriginLimit OriginLimitConfig
}

// LockoutConfig defines the sliding-window brute-force lockout for an identity.
type LockoutConfig struct {
	MaxFailures int           // failures within Window that trigger a lockout
	Window      time.Duration // sliding window ending at "now"
	Cooldown    time.Duration // lockout duration anchored to the last failure
}

// OriginLimitConfig defines the per-origin request budget.
type OriginLimitConfig struct {
	MaxRequests int           // budget per Window per origin
	Window      time.Duration // sliding window ending at "now"
}

// DefaultConfig mirrors the production policy: 5 failures / 15 min locks an
// account for 30 min past the last failure; 100 requests / min per origin.
func DefaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxFailures: 5,
			Window:      15 * time.Minute,
			Cooldown:    30 * time.Minute,
		},
		OriginLimit: OriginLimitConfig{
			MaxRequests: 100,
			Window:      time.Minute,
		},
	}
}
