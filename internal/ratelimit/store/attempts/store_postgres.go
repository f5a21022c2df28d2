package attempts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"famledger/internal/platform/middleware/requesttime"
	"famledger/internal/ratelimit/models"
)

// PostgresStore persists the attempt ledger in PostgreSQL.
// This store is pure I/O; window arithmetic and thresholds belong in the services.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed attempt ledger.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) RecordLoginAttempt(ctx context.Context, identity, origin string, success bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempt_records (kind, identity, origin, path, success, created_at)
		VALUES ($1, $2, $3, '', $4, $5)
	`, models.KindLogin, identity, origin, success, requesttime.Now(ctx))
	if err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordOriginRequest(ctx context.Context, origin, path string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempt_records (kind, identity, origin, path, success, created_at)
		VALUES ($1, '', $2, $3, FALSE, $4)
	`, models.KindRequest, origin, path, requesttime.Now(ctx))
	if err != nil {
		return fmt.Errorf("record origin request: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountFailuresSince(ctx context.Context, identity string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attempt_records
		WHERE kind = $1 AND identity = $2 AND success = FALSE AND created_at >= $3
	`, models.KindLogin, identity, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failures: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) LastFailureAt(ctx context.Context, identity string) (*time.Time, error) {
	var last time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at FROM attempt_records
		WHERE kind = $1 AND identity = $2 AND success = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`, models.KindLogin, identity).Scan(&last)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("last failure at: %w", err)
	}
	return &last, nil
}

func (s *PostgresStore) CountOriginRequestsSince(ctx context.Context, origin string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attempt_records
		WHERE kind = $1 AND origin = $2 AND created_at >= $3
	`, models.KindRequest, origin, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count origin requests: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempt_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete attempt records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete attempt records rows affected: %w", err)
	}
	return int(deleted), nil
}
