package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"famledger/internal/auth/models"
	"famledger/internal/platform/middleware/requesttime"
	dErrors "famledger/pkg/domain-errors"
)

const uniqueViolation = "23505"

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, u *models.User) error {
	now := requesttime.Now(ctx)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (phone, nickname, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, u.Phone, u.Nickname, u.PasswordHash, now).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return dErrors.New(dErrors.CodeConflict, "phone already registered")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (s *PostgresStore) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.findOne(ctx, `
		SELECT id, phone, nickname, password_hash, created_at, updated_at
		FROM users WHERE phone = $1
	`, phone)
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findOne(ctx, `
		SELECT id, phone, nickname, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Phone, &u.Nickname, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE phone = $1)
	`, phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by phone: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3
	`, passwordHash, requesttime.Now(ctx), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows affected: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return nil
}
