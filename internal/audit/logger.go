package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/audit/domain"
	auditrepo "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/audit/repository"
)

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and never affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, ip string, risk domain.RiskLevel, metadata string)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and
// not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, ip string, risk domain.RiskLevel, metadata string) {
	if l.repo == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	if risk == "" {
		risk = domain.RiskInfo
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		RiskLevel: risk,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
