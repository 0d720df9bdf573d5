package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the auth outcome counters. All record methods are nil-safe
// so the service works without a configured meter provider.
type Metrics struct {
	logins        metric.Int64Counter
	rotations     metric.Int64Counter
	reuseDetected metric.Int64Counter
	lockouts      metric.Int64Counter
}

// NewMetrics registers the auth counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("authcore/auth")
	m := &Metrics{}
	var err error
	if m.logins, err = meter.Int64Counter("auth.logins",
		metric.WithDescription("Login attempts by outcome")); err != nil {
		return nil, err
	}
	if m.rotations, err = meter.Int64Counter("auth.rotations",
		metric.WithDescription("Refresh token rotations by outcome")); err != nil {
		return nil, err
	}
	if m.reuseDetected, err = meter.Int64Counter("auth.reuse_detected",
		metric.WithDescription("Refresh token reuse detections")); err != nil {
		return nil, err
	}
	if m.lockouts, err = meter.Int64Counter("auth.lockouts",
		metric.WithDescription("Account lockout transitions")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) recordLogin(ctx context.Context, outcome string) {
	if m == nil || m.logins == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) recordRotation(ctx context.Context, outcome string) {
	if m == nil || m.rotations == nil {
		return
	}
	m.rotations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) recordReuse(ctx context.Context) {
	if m == nil || m.reuseDetected == nil {
		return
	}
	m.reuseDetected.Add(ctx, 1)
}

func (m *Metrics) recordLockout(ctx context.Context) {
	if m == nil || m.lockouts == nil {
		return
	}
	m.lockouts.Add(ctx, 1)
}
