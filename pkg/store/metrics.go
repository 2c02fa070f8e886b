package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// recorderMetrics counts append outcomes. Instruments resolve against the
// globally registered meter provider; with no provider configured they are
// no-ops, so the append path carries no telemetry cost by default.
type recorderMetrics struct {
	recordedTotal metric.Int64Counter
	failuresTotal metric.Int64Counter
}

func newRecorderMetrics() *recorderMetrics {
	meter := otel.Meter("github.com/carebridge/audittrail/pkg/store")

	recorded, err := meter.Int64Counter("audit.entries.recorded",
		metric.WithDescription("Signed audit entries durably recorded"))
	if err != nil {
		recorded = nil
	}
	failures, err := meter.Int64Counter("audit.entries.failed",
		metric.WithDescription("Append attempts that failed before commit"))
	if err != nil {
		failures = nil
	}
	return &recorderMetrics{recordedTotal: recorded, failuresTotal: failures}
}

func (m *recorderMetrics) recorded(ctx context.Context) {
	if m.recordedTotal != nil {
		m.recordedTotal.Add(ctx, 1)
	}
}

func (m *recorderMetrics) recordFailure(ctx context.Context) {
	if m.failuresTotal != nil {
		m.failuresTotal.Add(ctx, 1)
	}
}
