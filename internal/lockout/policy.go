// Package lockout implements the account lockout state machine: consecutive
// failed logins lock the account for a fixed window; the lock expires on its
// own, no cleanup job required.
package lockout

import (
	"context"
	"time"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/user/domain"
)

const (
	// DefaultThreshold is the number of consecutive failures that locks the
	// account.
	DefaultThreshold = 5
	// DefaultLockDuration is how long a triggered lock lasts.
	DefaultLockDuration = 30 * time.Minute
)

// UserRepo is the minimal user repository needed by the policy. The
// mutations are atomic single-statement updates owned by the repository.
type UserRepo interface {
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error)
	ResetFailedAttempts(ctx context.Context, id string) error
	Unlock(ctx context.Context, id string) error
}

// Policy tracks consecutive failed authentication attempts per user and
// transitions accounts between unlocked and locked.
type Policy struct {
	users        UserRepo
	threshold    int
	lockDuration time.Duration
	nowF         func() time.Time
}

// NewPolicy returns a Policy over the given user repository. threshold <= 0
// and lockDuration <= 0 fall back to the defaults.
func NewPolicy(users UserRepo, threshold int, lockDuration time.Duration) *Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if lockDuration <= 0 {
		lockDuration = DefaultLockDuration
	}
	return &Policy{
		users:        users,
		threshold:    threshold,
		lockDuration: lockDuration,
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// IsLocked reports whether the account lockout is currently in effect.
// Purely time-based: once locked_until passes the account reads as unlocked.
func (p *Policy) IsLocked(u *domain.User) bool {
	return u != nil && u.IsLocked(p.nowF())
}

// RecordFailure counts one failed login. When the failure count reaches the
// threshold the account transitions to Locked(now + lockDuration). Returns
// whether the account is locked after this failure and until when.
func (p *Policy) RecordFailure(ctx context.Context, userID string) (locked bool, until *time.Time, err error) {
	now := p.nowF()
	_, lockedUntil, err := p.users.RecordFailedLogin(ctx, userID, p.threshold, now.Add(p.lockDuration))
	if err != nil {
		return false, nil, err
	}
	if lockedUntil != nil && lockedUntil.After(now) {
		return true, lockedUntil, nil
	}
	return false, nil, nil
}

// RecordSuccess resets the failure count after a successful login. It does
// not touch the lock state beyond that; an expired lock simply stops
// mattering.
func (p *Policy) RecordSuccess(ctx context.Context, userID string) error {
	return p.users.ResetFailedAttempts(ctx, userID)
}

// Unlock clears the lock and failure count. Administrative action.
func (p *Policy) Unlock(ctx context.Context, userID string) error {
	return p.users.Unlock(ctx, userID)
}
