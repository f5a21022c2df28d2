package challenges

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"famledger/internal/captcha"
)

// PostgresStore persists challenges in PostgreSQL so a restart does not
// invalidate outstanding captchas.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, challenge *captcha.Challenge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO captcha_challenges (handle, code, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, challenge.Handle, challenge.Code, challenge.CreatedAt, challenge.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert captcha challenge: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, handle string) (*captcha.Challenge, error) {
	var challenge captcha.Challenge
	err := s.db.QueryRowContext(ctx, `
		SELECT handle, code, created_at, expires_at
		FROM captcha_challenges
		WHERE handle = $1
	`, handle).Scan(&challenge.Handle, &challenge.Code, &challenge.CreatedAt, &challenge.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find captcha challenge: %w", err)
	}
	return &challenge, nil
}

func (s *PostgresStore) Delete(ctx context.Context, handle string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM captcha_challenges WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("delete captcha challenge: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM captcha_challenges WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired captcha challenges: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired captcha challenges rows affected: %w", err)
	}
	return int(deleted), nil
}
