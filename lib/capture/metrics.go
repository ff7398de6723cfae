package capture

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for capture processes.
type Metrics struct {
	activeProcesses  metric.Int64ObservableGauge
	pendingProcesses metric.Int64ObservableGauge
}

func newMetrics(meter metric.Meter, q *Queue) (*Metrics, error) {
	activeProcesses, err := meter.Int64ObservableGauge(
		"stillcam_capture_processes_active",
		metric.WithDescription("Number of capture processes running"),
	)
	if err != nil {
		return nil, err
	}

	pendingProcesses, err := meter.Int64ObservableGauge(
		"stillcam_capture_processes_pending",
		metric.WithDescription("Number of captures waiting for a process slot"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(activeProcesses, int64(q.Running()))
			o.ObserveInt64(pendingProcesses, int64(q.Pending()))
			return nil
		},
		activeProcesses,
		pendingProcesses,
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		activeProcesses:  activeProcesses,
		pendingProcesses: pendingProcesses,
	}, nil
}
