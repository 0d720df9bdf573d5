package domain

import (
	"errors"
	"time"
)

// User is the core user entity. The lockout fields (FailedAttemptCount,
// LockedUntil) are owned by the lockout policy and mutated only through the
// repository's guarded operations.
type User struct {
	ID                 string
	Email              string
	PasswordHash       string
	FailedAttemptCount int
	LockedUntil        *time.Time // nil or past means not locked
	Status             UserStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// IsLocked reports whether the account lockout is in effect at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Validate validates the user for persistence. Returns an error describing
// the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
