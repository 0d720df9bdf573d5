package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for
// persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, failed_attempt_count, locked_until, status, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create validates the user and persists it. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, failed_attempt_count, locked_until, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.PasswordHash, u.FailedAttemptCount, timeToNullTime(u.LockedUntil),
		string(u.Status), u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// UpdatePasswordHash replaces the stored password hash for the user.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC(),
	)
	return err
}

// RecordFailedLogin increments the failure count and arms the lock in a
// single statement so two concurrent failures cannot both read-then-write.
func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET failed_attempt_count = failed_attempt_count + 1,
		    locked_until = CASE
		        WHEN failed_attempt_count + 1 >= $2 THEN $3
		        ELSE locked_until
		    END,
		    updated_at = $4
		WHERE id = $1
		RETURNING failed_attempt_count, locked_until`,
		id, threshold, lockUntil, time.Now().UTC(),
	)
	var count int
	var locked sql.NullTime
	if err := row.Scan(&count, &locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, nil
		}
		return 0, nil, err
	}
	return count, nullTimeToPtr(locked), nil
}

// ResetFailedAttempts clears the failure count when it is non-zero.
func (r *PostgresRepository) ResetFailedAttempts(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET failed_attempt_count = 0, updated_at = $2
		WHERE id = $1 AND failed_attempt_count > 0`,
		id, time.Now().UTC(),
	)
	return err
}

// Unlock clears the lock and the failure count.
func (r *PostgresRepository) Unlock(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET failed_attempt_count = 0, locked_until = NULL, updated_at = $2
		WHERE id = $1`,
		id, time.Now().UTC(),
	)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var locked sql.NullTime
	var status string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FailedAttemptCount, &locked, &status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.LockedUntil = nullTimeToPtr(locked)
	u.Status = domain.UserStatus(status)
	return &u, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
