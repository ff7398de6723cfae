// Package scheduler drives a capturer at a fixed rate.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/onkernel/stillcam/lib/capture"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// PathFunc returns the destination path for a capture taken at t.
type PathFunc func(t time.Time) (string, error)

// TickerFunc returns a tick channel firing every period and a stop function.
type TickerFunc func(period time.Duration) (<-chan time.Time, func())

// Options configure the scheduler.
type Options struct {
	// Clock stamps each tick. Defaults to time.Now.
	Clock func() time.Time

	// NewTicker defaults to a time.Ticker.
	NewTicker TickerFunc

	// Tracer defaults to a noop tracer.
	Tracer trace.Tracer
}

// Scheduler runs one capture per tick. Each capture gets its own goroutine,
// so a slow capture never delays the next tick. Ticks missed while the
// ticker goroutine is busy are dropped.
type Scheduler struct {
	capturer  capture.Capturer
	pathFor   PathFunc
	clock     func() time.Time
	newTicker TickerFunc
	tracer    trace.Tracer
	log       *slog.Logger
	metrics   *Metrics

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler. It does nothing until Start.
func New(capturer capture.Capturer, pathFor PathFunc, opts Options, log *slog.Logger, meter metric.Meter) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		capturer:  capturer,
		pathFor:   pathFor,
		clock:     opts.Clock,
		newTicker: opts.NewTicker,
		tracer:    opts.Tracer,
		log:       log,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newTicker == nil {
		s.newTicker = defaultTicker
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("stillcam/scheduler")
	}

	if meter != nil {
		metrics, err := newMetrics(meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		s.metrics = metrics
	}

	return s, nil
}

func defaultTicker(period time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(period)
	return t.C, t.Stop
}

// Start captures immediately and then once every period until ctx is done
// or Stop is called. onReady runs on the capture goroutine after every
// successful capture.
func (s *Scheduler) Start(ctx context.Context, period time.Duration, onReady func(path string)) error {
	if period <= 0 {
		return ErrInvalidPeriod
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	tickCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	// Captures outlive Stop, so they keep ctx values but not its cancellation.
	captureCtx := context.WithoutCancel(ctx)
	ticks, stopTicker := s.newTicker(period)

	s.log.Info("starting capture scheduler", "period", period.String())

	go func() {
		defer close(s.done)
		defer stopTicker()

		s.tick(captureCtx, onReady)
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticks:
				s.tick(captureCtx, onReady)
			}
		}
	}()

	return nil
}

// Stop cancels future ticks. Captures already running are left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("capture scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context, onReady func(string)) {
	at := s.clock()
	s.log.Debug("about to take a new picture", "at", at)
	go s.capture(ctx, at, onReady)
}

func (s *Scheduler) capture(ctx context.Context, at time.Time, onReady func(string)) {
	ctx, span := s.tracer.Start(ctx, "capture", trace.WithAttributes(
		attribute.String("capture.at", at.Format(time.RFC3339Nano)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.metrics.recordCapture(ctx, "panic", time.Since(start))
			span.SetStatus(codes.Error, "panic")
			s.log.Error("capture panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	path, err := s.pathFor(at)
	if err != nil {
		s.metrics.recordCapture(ctx, "path_failed", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "path")
		s.log.Error("cannot determine capture path, skipping", "error", err)
		return
	}
	span.SetAttributes(attribute.String("capture.path", path))

	if err := s.capturer.CaptureImage(ctx, path); err != nil {
		s.metrics.recordCapture(ctx, "failed", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "capture")
		s.log.Warn("taking picture failed", "path", path, "error", err)
		return
	}

	s.metrics.recordCapture(ctx, "ok", time.Since(start))
	s.log.Info("taking picture was successful", "path", path, "duration_ms", time.Since(start).Milliseconds())

	if onReady != nil {
		onReady(path)
	}
}
