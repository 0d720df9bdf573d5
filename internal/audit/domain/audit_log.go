package domain

import "time"

// RiskLevel grades an audit event for downstream triage.
type RiskLevel string

const (
	RiskInfo RiskLevel = "info"
	RiskWarn RiskLevel = "warn"
	RiskHigh RiskLevel = "high"
)

// AuditLog represents one security audit event.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	RiskLevel RiskLevel
	Metadata  string
	CreatedAt time.Time
}
