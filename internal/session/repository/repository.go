package repository

import (
	"context"
	"time"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/session/domain"
)

// Repository defines persistence for sessions. Rebind is the concurrency
// primitive: it is a conditional update keyed on the jti being consumed, so
// of two racing rotations only one can win.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// FindByRefreshJTI returns the session currently bound to jti, or nil.
	FindByRefreshJTI(ctx context.Context, jti string) (*domain.Session, error)
	// Rebind atomically moves the session from oldJTI to newJTI and stamps
	// last_rotation_at. Returns false when the session is no longer bound to
	// oldJTI or no longer active (a concurrent rotation won).
	Rebind(ctx context.Context, sessionID, oldJTI, newJTI, newHash string, at time.Time) (bool, error)
	// Deactivate terminally ends the session; idempotent, and the first
	// recorded reason is kept.
	Deactivate(ctx context.Context, id string, reason domain.DeactivateReason) error
	ListActive(ctx context.Context, userID string) ([]*domain.Session, error)
	DeactivateAllByUser(ctx context.Context, userID string, reason domain.DeactivateReason) error
	DeactivateAllExcept(ctx context.Context, userID, keepSessionID string, reason domain.DeactivateReason) error
	// SweepExpired marks active sessions past their expiry as inactive.
	// Returns the number of sessions swept.
	SweepExpired(ctx context.Context) (int64, error)
}
