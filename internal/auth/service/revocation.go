package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"famledger/internal/auth/models"
	jwttoken "famledger/internal/jwt_token"
	"famledger/internal/platform/middleware/requesttime"
	dErrors "famledger/pkg/domain-errors"
)

// RevocationStore persists blacklist entries and per-user cutovers.
type RevocationStore interface {
	InsertRevokedToken(ctx context.Context, rec *models.RevokedToken) error
	IsDigestRevoked(ctx context.Context, digest string) (bool, error)
	SetSubjectCutover(ctx context.Context, userID int64, cutover time.Time, reason string) error
	SubjectCutover(ctx context.Context, userID int64) (*time.Time, error)
	DeleteExpiredDigests(ctx context.Context, now time.Time) (int, error)
	DeleteCutoversBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// TokenInspector reads claims out of a possibly-expired token.
type TokenInspector interface {
	ParseTokenSkipClaimsValidation(tokenString string) (*jwttoken.AccessTokenClaims, error)
}

// RevocationRegistry invalidates stateless tokens before their natural
// expiry. Individual tokens are blacklisted by digest; a whole account is
// cut over by timestamp so every earlier token dies at once.
type RevocationRegistry struct {
	store     RevocationStore
	inspector TokenInspector
	logger    *slog.Logger
	tokenTTL  time.Duration
}

type RegistryOption func(*RevocationRegistry)

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *RevocationRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRevocationRegistry(store RevocationStore, inspector TokenInspector, tokenTTL time.Duration, opts ...RegistryOption) (*RevocationRegistry, error) {
	if store == nil || inspector == nil {
		return nil, fmt.Errorf("revocation store and token inspector are required")
	}
	reg := &RevocationRegistry{
		store:     store,
		inspector: inspector,
		logger:    slog.Default(),
		tokenTTL:  tokenTTL,
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg, nil
}

// TokenDigest is the blacklist key: a hex SHA-256 of the raw compact token,
// so the store never holds a usable credential.
func TokenDigest(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// Revoke blacklists one token until its natural expiry. A token whose expiry
// cannot be read would have been rejected by validation anyway, so it is
// skipped rather than failing the logout.
func (r *RevocationRegistry) Revoke(ctx context.Context, rawToken, reason string) error {
	claims, err := r.inspector.ParseTokenSkipClaimsValidation(rawToken)
	if err != nil || claims.ExpiresAt == nil {
		r.logger.WarnContext(ctx, "skipping blacklist insert for unreadable token", "error", err)
		return nil
	}

	rec := &models.RevokedToken{
		Digest:    TokenDigest(rawToken),
		UserID:    claims.UserID,
		Reason:    reason,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: requesttime.Now(ctx),
	}
	if err := r.store.InsertRevokedToken(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to blacklist token")
	}
	return nil
}

// RevokeAllForSubject invalidates every token issued to userID before now.
// Tokens minted after this call remain valid.
func (r *RevocationRegistry) RevokeAllForSubject(ctx context.Context, userID int64, reason string) error {
	if err := r.store.SetSubjectCutover(ctx, userID, requesttime.Now(ctx), reason); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set revocation cutover")
	}
	return nil
}

// IsTokenRevoked answers the per-request blacklist and cutover checks.
// Errors propagate so the caller can fail closed.
func (r *RevocationRegistry) IsTokenRevoked(ctx context.Context, rawToken string, userID int64, issuedAt time.Time) (bool, error) {
	revoked, err := r.store.IsDigestRevoked(ctx, TokenDigest(rawToken))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token blacklist")
	}
	if revoked {
		return true, nil
	}

	cutover, err := r.store.SubjectCutover(ctx, userID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation cutover")
	}
	if cutover != nil && issuedAt.Before(*cutover) {
		return true, nil
	}
	return false, nil
}

// SweepExpired drops blacklist rows past their token expiry and cutovers old
// enough that no live token can predate them.
func (r *RevocationRegistry) SweepExpired(ctx context.Context) (int, error) {
	now := requesttime.Now(ctx)

	digests, err := r.store.DeleteExpiredDigests(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep expired blacklist entries")
	}

	cutovers, err := r.store.DeleteCutoversBefore(ctx, now.Add(-r.tokenTTL))
	if err != nil {
		return digests, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep stale cutovers")
	}
	return digests + cutovers, nil
}
