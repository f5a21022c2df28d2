package models

import "time"

// User is an account keyed by phone number. PasswordHash is a bcrypt hash
// and never leaves the store layer except for comparison.
type User struct {
	ID           int64
	Phone        string
	Nickname     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RevokedToken is a blacklist entry for one token, kept until the token
// would have expired on its own. The digest is a hex SHA-256 of the raw
// compact token, so the row is never a usable credential.
type RevokedToken struct {
	Digest    string
	UserID    int64
	Reason    string
	ExpiresAt time.Time
	RevokedAt time.Time
}
