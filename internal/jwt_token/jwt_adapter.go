package jwttoken

import (
	"time"

	"famledger/internal/platform/middleware"
)

// ToMiddlewareClaims converts token claims for the auth middleware. A token
// without iat gets the zero time, so any revocation cutover covers it.
func ToMiddlewareClaims(claims *AccessTokenClaims) *middleware.Claims {
	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return &middleware.Claims{
		UserID:   claims.UserID,
		Phone:    claims.Phone,
		IssuedAt: issuedAt,
	}
}

// JWTServiceAdapter narrows JWTService to the middleware's TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
