package archive

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for the image archive.
type Metrics struct {
	registeredTotal metric.Int64Counter
	evictionsTotal  metric.Int64Counter
}

func newMetrics(meter metric.Meter, r *Repository) (*Metrics, error) {
	registeredTotal, err := meter.Int64Counter(
		"stillcam_archive_registered_total",
		metric.WithDescription("Total number of images added to the archive"),
	)
	if err != nil {
		return nil, err
	}

	evictionsTotal, err := meter.Int64Counter(
		"stillcam_archive_evictions_total",
		metric.WithDescription("Total number of images evicted to free disk space"),
	)
	if err != nil {
		return nil, err
	}

	imagesTotal, err := meter.Int64ObservableGauge(
		"stillcam_archive_images_total",
		metric.WithDescription("Number of images currently tracked in the archive"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(imagesTotal, int64(r.Len()))
			return nil
		},
		imagesTotal,
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		registeredTotal: registeredTotal,
		evictionsTotal:  evictionsTotal,
	}, nil
}

func (m *Metrics) recordRegistered(ctx context.Context) {
	if m == nil {
		return
	}
	m.registeredTotal.Add(ctx, 1)
}

func (m *Metrics) recordEviction(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.evictionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
