package live

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for live frame distribution.
type Metrics struct {
	framesServed   metric.Int64Counter
	publishes      metric.Int64Counter
	sessionsClosed metric.Int64Counter
}

func newMetrics(meter metric.Meter, d *Distributor) (*Metrics, error) {
	framesServed, err := meter.Int64Counter(
		"stillcam_live_frames_served_total",
		metric.WithDescription("Total number of frames written to stream consumers"),
	)
	if err != nil {
		return nil, err
	}

	publishes, err := meter.Int64Counter(
		"stillcam_live_publishes_total",
		metric.WithDescription("Total number of frame publish attempts"),
	)
	if err != nil {
		return nil, err
	}

	sessionsClosed, err := meter.Int64Counter(
		"stillcam_live_sessions_closed_total",
		metric.WithDescription("Total number of ended stream sessions"),
	)
	if err != nil {
		return nil, err
	}

	activeStreams, err := meter.Int64ObservableGauge(
		"stillcam_live_active_streams",
		metric.WithDescription("Number of open stream sessions"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(activeStreams, d.active.Load())
			return nil
		},
		activeStreams,
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		framesServed:   framesServed,
		publishes:      publishes,
		sessionsClosed: sessionsClosed,
	}, nil
}

func (m *Metrics) recordFrameServed() {
	if m == nil {
		return
	}
	m.framesServed.Add(context.Background(), 1)
}

func (m *Metrics) recordPublish(status string) {
	if m == nil {
		return
	}
	m.publishes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) recordSessionClosed(reason string) {
	if m == nil {
		return
	}
	m.sessionsClosed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}
