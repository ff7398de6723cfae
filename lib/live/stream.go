package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nrednav/cuid2"
)

// flusher is implemented by sinks that buffer writes.
type flusher interface {
	Flush() error
}

// session is one consumer of the MJPEG stream.
type session struct {
	id      string
	sink    io.Writer
	lastSeq uint64
	stale   int
	log     *slog.Logger
}

// StreamTo starts a stream session on its own goroutine. The returned
// channel is closed when the session ends.
func (d *Distributor) StreamTo(ctx context.Context, sink io.Writer) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.ServeStream(ctx, sink)
	}()
	return done
}

// ServeStream runs a stream session on the calling goroutine until the
// context is done, a write fails, or no newer frame shows up within the
// staleness budget. The current frame, if any, is written immediately.
// If sink implements io.Closer it is closed when the session ends.
func (d *Distributor) ServeStream(ctx context.Context, sink io.Writer) error {
	s := &session{id: cuid2.Generate(), sink: sink}
	s.log = d.log.With("session", s.id)

	n := d.active.Add(1)
	s.log.Info("stream session started", "active_streams", n)

	err := d.runSession(ctx, s)

	reason := closeReason(err)
	if c, ok := sink.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			s.log.Debug("close stream sink", "error", cerr)
		}
	}
	n = d.active.Add(-1)
	d.metrics.recordSessionClosed(reason)
	s.log.Info("stream session ended", "reason", reason, "last_seq", s.lastSeq, "active_streams", n)

	return err
}

func (d *Distributor) runSession(ctx context.Context, s *session) error {
	if err := d.serveNewer(s); err != nil {
		return err
	}

	timer := time.NewTimer(d.opts.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		before := s.lastSeq
		if err := d.serveNewer(s); err != nil {
			return err
		}
		if s.lastSeq == before {
			s.stale++
			if s.stale >= d.opts.StaleBudget {
				return ErrStale
			}
		} else {
			s.stale = 0
		}

		timer.Reset(d.opts.PollInterval)
	}
}

// serveNewer writes the current frame if it is newer than the last one the
// session saw.
func (d *Distributor) serveNewer(s *session) error {
	f, ok := d.cell.newerThan(s.lastSeq)
	if !ok {
		return nil
	}
	if err := writeFrame(s.sink, d.opts.Boundary, f.Data); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Seq, err)
	}
	s.lastSeq = f.Seq
	d.metrics.recordFrameServed()
	return nil
}

// writeFrame writes one multipart part and flushes the sink if it can.
func writeFrame(w io.Writer, boundary string, data []byte) error {
	header := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(data))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func closeReason(err error) string {
	switch {
	case errors.Is(err, ErrStale):
		return "stale"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "write_failed"
	}
}
