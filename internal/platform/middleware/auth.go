package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Claims represents the token claims the middleware needs for authorization.
type Claims struct {
	UserID   int64
	Phone    string
	IssuedAt time.Time
}

// TokenValidator defines the interface for validating bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RevocationChecker defines the interface for checking if tokens are revoked.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, token string, userID int64, issuedAt time.Time) (bool, error)
}

// Context keys for storing authenticated user information.
type contextKeyUserID struct{}
type contextKeyPhone struct{}
type contextKeyToken struct{}

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) int64 {
	userID, ok := ctx.Value(contextKeyUserID{}).(int64)
	if !ok {
		return 0
	}
	return userID
}

// GetPhone retrieves the authenticated phone claim from the context.
func GetPhone(ctx context.Context) string {
	phone, ok := ctx.Value(contextKeyPhone{}).(string)
	if !ok {
		return ""
	}
	return phone
}

// GetToken retrieves the raw bearer token from the context.
// Logout needs it to insert the token's digest into the revocation registry.
func GetToken(ctx context.Context) string {
	token, ok := ctx.Value(contextKeyToken{}).(string)
	if !ok {
		return ""
	}
	return token
}

// RequireAuth validates the bearer token and checks the revocation registry.
// Both checks are required: a valid signature does not imply non-revocation,
// and registry absence does not imply signature validity. Registry failures
// deny the request rather than letting a revoked token slip through.
func RequireAuth(validator TokenValidator, revocations RevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "Missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			revoked, err := revocations.IsTokenRevoked(ctx, token, claims.UserID, claims.IssuedAt)
			if err != nil {
				logger.ErrorContext(ctx, "failed to check token revocation",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			if revoked {
				logger.WarnContext(ctx, "unauthorized access - token revoked",
					"user_id", claims.UserID,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Token has been revoked")
				return
			}

			ctx = context.WithValue(ctx, contextKeyUserID{}, claims.UserID)
			ctx = context.WithValue(ctx, contextKeyPhone{}, claims.Phone)
			ctx = context.WithValue(ctx, contextKeyToken{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
