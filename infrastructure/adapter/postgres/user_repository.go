package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/carelane/authcore/application/port/outbound"
	"github.com/carelane/authcore/domain/entity"
)

var _ outbound.UserRepository = (*UserRepositoryAdapter)(nil)

type UserRepositoryAdapter struct {
	db *sql.DB
}

func NewUserRepositoryAdapter(db *sql.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{db: db}
}

const userColumns = `id, full_name, email, password_hash, role, status, tokens_valid_from, created_at, updated_at`

func (r *UserRepositoryAdapter) scanUser(row *sql.Row) (*entity.User, error) {
	var user entity.User
	var tokensValidFrom sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&tokensValidFrom,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if tokensValidFrom.Valid {
		t := tokensValidFrom.Time
		user.TokensValidFrom = &t
	}
	return &user, nil
}

func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepositoryAdapter) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts a new user. Used by the bootstrap tooling; the HTTP surface
// never creates accounts.
func (r *UserRepositoryAdapter) Create(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (id, full_name, email, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.FullName, user.Email, user.PasswordHash, user.Role, user.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return outbound.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *UserRepositoryAdapter) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	return requireRowAffected(result)
}

func (r *UserRepositoryAdapter) SetTokensValidFrom(ctx context.Context, id string, from time.Time) error {
	query := `UPDATE users SET tokens_valid_from = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, from)
	if err != nil {
		return fmt.Errorf("failed to set token watermark: %w", err)
	}
	return requireRowAffected(result)
}

func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return outbound.ErrUserNotFound
	}
	return nil
}
