package audit

import (
	"context"
	"time"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/audit/domain"
)

// emitTimeout is the max time allowed for a single async audit write.
const emitTimeout = 5 * time.Second

// EmitAsync runs LogEvent in a goroutine so auth operations are never
// blocked on the audit sink. No ordering guarantee relative to the caller's
// response.
//
// logger may be nil; EmitAsync returns immediately without starting a
// goroutine. The goroutine uses context.Background() with its own timeout so
// request cancellation does not abort an in-flight write.
func EmitAsync(logger AuditLogger, userID, action, resource, ip string, risk domain.RiskLevel, metadata string) {
	if logger == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		logger.LogEvent(ctx, userID, action, resource, ip, risk, metadata)
	}()
}
