package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, current_refresh_jti, refresh_token_hash, device_fingerprint,
	ip_address, user_agent, created_at, last_activity_at, last_rotation_at, expires_at,
	is_active, deactivated_reason`

// Create persists the session. The session must have ID set. The
// deactivated_reason column is NOT NULL, so the reason is bound as a plain
// string; a live session stores the empty string.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, current_refresh_jti, refresh_token_hash, device_fingerprint,
			ip_address, user_agent, created_at, last_activity_at, last_rotation_at, expires_at,
			is_active, deactivated_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.UserID, s.CurrentRefreshJTI, s.RefreshTokenHash, s.DeviceFingerprint,
		s.IPAddress, s.UserAgent, s.CreatedAt, s.LastActivityAt, timeToNullTime(s.LastRotationAt),
		s.ExpiresAt, s.IsActive, string(s.DeactivatedReason),
	)
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// FindByRefreshJTI returns the session currently bound to jti, or nil.
func (r *PostgresRepository) FindByRefreshJTI(ctx context.Context, jti string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE current_refresh_jti = $1`, jti)
	return scanSession(row)
}

// Rebind moves the session to the successor refresh token. The WHERE clause
// on current_refresh_jti and is_active makes this a compare-and-swap: of two
// concurrent rotations consuming the same jti only one update matches.
func (r *PostgresRepository) Rebind(ctx context.Context, sessionID, oldJTI, newJTI, newHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET current_refresh_jti = $3, refresh_token_hash = $4,
		    last_rotation_at = $5, last_activity_at = $5
		WHERE id = $1 AND current_refresh_jti = $2 AND is_active`,
		sessionID, oldJTI, newJTI, newHash, at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Deactivate terminally ends the session. Idempotent: a second call leaves
// the original reason in place.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string, reason domain.DeactivateReason) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = FALSE, deactivated_reason = $2
		WHERE id = $1 AND is_active`,
		id, string(reason),
	)
	return err
}

// ListActive returns the user's active sessions, most recent first.
func (r *PostgresRepository) ListActive(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND is_active
		ORDER BY last_activity_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeactivateAllByUser ends every active session for the user.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID string, reason domain.DeactivateReason) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = FALSE, deactivated_reason = $2
		WHERE user_id = $1 AND is_active`,
		userID, string(reason),
	)
	return err
}

// DeactivateAllExcept ends every active session for the user other than
// keepSessionID.
func (r *PostgresRepository) DeactivateAllExcept(ctx context.Context, userID, keepSessionID string, reason domain.DeactivateReason) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = FALSE, deactivated_reason = $3
		WHERE user_id = $1 AND id <> $2 AND is_active`,
		userID, keepSessionID, string(reason),
	)
	return err
}

// SweepExpired marks active sessions past their expiry as inactive.
func (r *PostgresRepository) SweepExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = FALSE, deactivated_reason = $1
		WHERE is_active AND expires_at < NOW()`,
		string(domain.ReasonExpired),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	s, err := scanSessionRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSessionRows(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var lastRotation sql.NullTime
	var reason string
	err := row.Scan(&s.ID, &s.UserID, &s.CurrentRefreshJTI, &s.RefreshTokenHash, &s.DeviceFingerprint,
		&s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.LastActivityAt, &lastRotation, &s.ExpiresAt,
		&s.IsActive, &reason)
	if err != nil {
		return nil, err
	}
	s.LastRotationAt = nullTimeToPtr(lastRotation)
	s.DeactivatedReason = domain.DeactivateReason(reason)
	return &s, nil
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
