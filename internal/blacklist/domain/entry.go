package domain

import "time"

// RevokeReason records why a token id was blacklisted. Reasons are ordered
// by severity so re-revoking an id can only escalate, never downgrade.
type RevokeReason string

const (
	ReasonRotation       RevokeReason = "rotation"
	ReasonLogout         RevokeReason = "logout"
	ReasonPasswordChange RevokeReason = "password_change"
	ReasonReuseDetected  RevokeReason = "reuse_detected"
	ReasonAdminAction    RevokeReason = "admin_action"
)

// Severity returns the escalation rank of the reason. Unknown reasons rank
// lowest.
func (r RevokeReason) Severity() int {
	switch r {
	case ReasonRotation:
		return 1
	case ReasonLogout:
		return 2
	case ReasonPasswordChange:
		return 3
	case ReasonReuseDetected:
		return 4
	case ReasonAdminAction:
		return 5
	default:
		return 0
	}
}

// Entry is one revoked token id. Once written it stays revoked until
// NaturalExpiryAt, after which the token would have expired on its own and
// the entry may be purged.
type Entry struct {
	TokenID         string
	UserID          string
	Kind            string // access|refresh
	Reason          RevokeReason
	RevokedAt       time.Time
	NaturalExpiryAt time.Time
}
