package domain

import "time"

// DeactivateReason records why a session was ended. is_active=false is
// terminal; a session never reactivates.
type DeactivateReason string

const (
	ReasonLogout         DeactivateReason = "logout"
	ReasonReuseDetected  DeactivateReason = "reuse_detected"
	ReasonPasswordChange DeactivateReason = "password_change"
	ReasonExpired        DeactivateReason = "expired"
	ReasonAdminAction    DeactivateReason = "admin_action"
)

// Session represents one authenticated device/client binding. At most one
// active session references a given CurrentRefreshJTI at a time; rotation
// rebinds the session to the successor token's jti.
type Session struct {
	ID                string
	UserID            string
	CurrentRefreshJTI string
	RefreshTokenHash  string // SHA-256 of the live refresh token
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	CreatedAt         time.Time
	LastActivityAt    time.Time
	LastRotationAt    *time.Time // nil until the first rotation
	ExpiresAt         time.Time
	IsActive          bool
	DeactivatedReason DeactivateReason // empty while active
}
