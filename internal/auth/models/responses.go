package models

import "time"

// CaptchaResponse hands the client the handle to echo back and the rendered
// image as a base64 PNG data URI.
type CaptchaResponse struct {
	Handle string `json:"handle"`
	Image  string `json:"image"`
}

// UserView is the public projection of a user.
type UserView struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse carries the freshly minted access token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}
