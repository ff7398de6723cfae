package scheduler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for scheduled captures.
type Metrics struct {
	captureDuration metric.Float64Histogram
	capturesTotal   metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	captureDuration, err := meter.Float64Histogram(
		"stillcam_capture_duration_seconds",
		metric.WithDescription("Time to take one picture"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	capturesTotal, err := meter.Int64Counter(
		"stillcam_capture_total",
		metric.WithDescription("Total number of capture attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		captureDuration: captureDuration,
		capturesTotal:   capturesTotal,
	}, nil
}

func (m *Metrics) recordCapture(ctx context.Context, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.captureDuration.Record(ctx, d.Seconds(), attrs)
	m.capturesTotal.Add(ctx, 1, attrs)
}
