package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"famledger/internal/auth/models"
	"famledger/internal/platform/middleware/requesttime"
)

// PostgresStore persists the blacklist and cutovers in PostgreSQL so a
// restart does not resurrect revoked tokens.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertRevokedToken(ctx context.Context, rec *models.RevokedToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (digest, user_id, reason, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (digest) DO UPDATE SET
			reason     = EXCLUDED.reason,
			expires_at = EXCLUDED.expires_at,
			revoked_at = EXCLUDED.revoked_at
	`, rec.Digest, rec.UserID, rec.Reason, rec.ExpiresAt, rec.RevokedAt)
	if err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsDigestRevoked(ctx context.Context, digest string) (bool, error) {
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT expires_at FROM revoked_tokens WHERE digest = $1
	`, digest).Scan(&expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	if requesttime.Now(ctx).After(expiresAt) {
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) SetSubjectCutover(ctx context.Context, userID int64, cutover time.Time, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revocation_cutovers (user_id, cutover_at, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			cutover_at = GREATEST(revocation_cutovers.cutover_at, EXCLUDED.cutover_at),
			reason     = CASE
				WHEN EXCLUDED.cutover_at > revocation_cutovers.cutover_at THEN EXCLUDED.reason
				ELSE revocation_cutovers.reason
			END
	`, userID, cutover, reason)
	if err != nil {
		return fmt.Errorf("set subject cutover: %w", err)
	}
	return nil
}

func (s *PostgresStore) SubjectCutover(ctx context.Context, userID int64) (*time.Time, error) {
	var cutover time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT cutover_at FROM revocation_cutovers WHERE user_id = $1
	`, userID).Scan(&cutover)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("subject cutover: %w", err)
	}
	return &cutover, nil
}

func (s *PostgresStore) DeleteExpiredDigests(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked tokens: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked tokens rows affected: %w", err)
	}
	return int(deleted), nil
}

func (s *PostgresStore) DeleteCutoversBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revocation_cutovers WHERE cutover_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale cutovers: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale cutovers rows affected: %w", err)
	}
	return int(deleted), nil
}
