package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/blacklist/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a blacklist repository that uses the given
// db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// IsRevoked reports whether an unexpired entry exists for the token id.
func (r *PostgresRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM token_blacklist
			WHERE token_id = $1 AND natural_expiry_at > NOW()
		)`, tokenID).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

// Revoke upserts the entry. The ON CONFLICT arm only replaces the reason
// when the incoming one ranks higher, so the upsert is idempotent and
// escalation-only under concurrency. The CASE ranks must stay in sync with
// domain.RevokeReason.Severity.
func (r *PostgresRepository) Revoke(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO token_blacklist (token_id, user_id, token_kind, reason, revoked_at, natural_expiry_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token_id) DO UPDATE SET
			reason = CASE
				WHEN (CASE EXCLUDED.reason
					WHEN 'rotation' THEN 1 WHEN 'logout' THEN 2 WHEN 'password_change' THEN 3
					WHEN 'reuse_detected' THEN 4 WHEN 'admin_action' THEN 5 ELSE 0 END)
				   > (CASE token_blacklist.reason
					WHEN 'rotation' THEN 1 WHEN 'logout' THEN 2 WHEN 'password_change' THEN 3
					WHEN 'reuse_detected' THEN 4 WHEN 'admin_action' THEN 5 ELSE 0 END)
				THEN EXCLUDED.reason
				ELSE token_blacklist.reason
			END`,
		e.TokenID, e.UserID, e.Kind, string(e.Reason), e.RevokedAt, e.NaturalExpiryAt,
	)
	return err
}

// Get returns the entry for the token id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, tokenID string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT token_id, user_id, token_kind, reason, revoked_at, natural_expiry_at
		FROM token_blacklist WHERE token_id = $1`, tokenID)
	var e domain.Entry
	var reason string
	err := row.Scan(&e.TokenID, &e.UserID, &e.Kind, &reason, &e.RevokedAt, &e.NaturalExpiryAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.Reason = domain.RevokeReason(reason)
	return &e, nil
}

// PurgeExpired deletes entries past their natural expiry. A concurrently
// expiring entry read as "not revoked" is acceptable: the token itself is
// expired by then.
func (r *PostgresRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM token_blacklist WHERE natural_expiry_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
