// Package live holds the current camera frame in memory and serves it as
// snapshots and MJPEG streams to any number of concurrent consumers.
package live

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Loader produces the bytes of a newly captured image.
type Loader func() ([]byte, error)

// Options configure a Distributor.
type Options struct {
	// PollInterval is how often a stream session checks for a newer frame.
	PollInterval time.Duration

	// StaleBudget is the number of consecutive polls without a newer frame
	// after which a stream session ends.
	StaleBudget int

	// Boundary is the multipart boundary marker.
	Boundary string

	// LoadWorkers is the number of goroutines running loaders.
	LoadWorkers int

	// LoadQueue is how many pending loaders may wait for a worker.
	LoadQueue int
}

// DefaultOptions returns the default distributor options.
func DefaultOptions() Options {
	return Options{
		PollInterval: 500 * time.Millisecond,
		StaleBudget:  50,
		Boundary:     "ipcamera",
		LoadWorkers:  1,
		LoadQueue:    8,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.StaleBudget <= 0 {
		o.StaleBudget = def.StaleBudget
	}
	if o.Boundary == "" {
		o.Boundary = def.Boundary
	}
	if o.LoadWorkers < 1 {
		o.LoadWorkers = def.LoadWorkers
	}
	if o.LoadQueue < 1 {
		o.LoadQueue = def.LoadQueue
	}
	return o
}

// Distributor owns the current frame.
//
// Goroutine topology:
//   - LoadWorkers fixed: run loaders passed to Publish
//   - 1 per stream consumer: polls the frame cell and writes to its sink
//
// Consumers never share a goroutine, so a slow sink only delays itself.
type Distributor struct {
	opts    Options
	cell    frameCell
	active  atomic.Int64
	loads   chan Loader
	log     *slog.Logger
	metrics *Metrics
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a distributor and starts its load workers.
func New(opts Options, log *slog.Logger, meter metric.Meter) (*Distributor, error) {
	if log == nil {
		log = slog.Default()
	}
	opts = opts.withDefaults()

	d := &Distributor{
		opts:  opts,
		loads: make(chan Loader, opts.LoadQueue),
		log:   log,
		now:   time.Now,
		done:  make(chan struct{}),
	}

	if meter != nil {
		metrics, err := newMetrics(meter, d)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		d.metrics = metrics
	}

	for i := 0; i < opts.LoadWorkers; i++ {
		d.wg.Add(1)
		go d.loadWorker()
	}

	return d, nil
}

// Close stops the load workers. Frames already published stay readable.
func (d *Distributor) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}

// Publish queues load to run on a load worker. On success the result
// replaces the current frame; on failure the previous frame is kept.
// Publish never blocks: it fails with ErrQueueFull if the workers are behind.
func (d *Distributor) Publish(load Loader) error {
	select {
	case <-d.done:
		return ErrClosed
	default:
	}

	select {
	case d.loads <- load:
		return nil
	case <-d.done:
		return ErrClosed
	default:
		d.metrics.recordPublish("dropped")
		d.log.Warn("cannot queue new image, load workers are behind")
		return ErrQueueFull
	}
}

// Snapshot returns a copy of the current frame bytes.
func (d *Distributor) Snapshot() []byte {
	return d.cell.snapshot().Data
}

// Current returns a copy of the current frame.
func (d *Distributor) Current() Frame {
	return d.cell.snapshot()
}

// ActiveStreams returns the number of open stream sessions.
func (d *Distributor) ActiveStreams() int {
	return int(d.active.Load())
}

// ContentType is the response content type for streams.
func (d *Distributor) ContentType() string {
	return "multipart/x-mixed-replace;boundary=" + d.opts.Boundary
}

func (d *Distributor) loadWorker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case load := <-d.loads:
			d.runLoad(load)
		}
	}
}

func (d *Distributor) runLoad(load Loader) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.recordPublish("failed")
			d.log.Error("image loader panicked, not updating", "panic", r)
		}
	}()

	data, err := load()
	if err == nil && len(data) == 0 {
		err = ErrEmptyFrame
	}
	if err != nil {
		d.metrics.recordPublish("failed")
		d.log.Error("could not load current image, not updating", "error", err)
		return
	}

	seq := d.cell.replace(data, d.now())
	d.metrics.recordPublish("ok")
	d.log.Debug("published new frame", "seq", seq, "bytes", len(data))
}
