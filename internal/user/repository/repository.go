package repository

import (
	"context"
	"time"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/user/domain"
)

// Repository defines persistence for users. The lockout mutations are
// guarded single-statement updates so concurrent callers cannot lose counts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// RecordFailedLogin atomically increments failed_attempt_count and, when
	// the new count reaches threshold, sets locked_until to lockUntil.
	// Returns the new count and the lock expiry in effect after the update.
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error)
	// ResetFailedAttempts clears the failure count; a no-op when already zero.
	ResetFailedAttempts(ctx context.Context, id string) error
	// Unlock clears both the lock and the failure count.
	Unlock(ctx context.Context, id string) error
}
