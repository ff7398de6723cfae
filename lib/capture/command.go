package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/nrednav/cuid2"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/metric"
)

// Presets maps preset names to command templates. %s is replaced by the
// destination path. Add --no-banner to fswebcam to drop the timestamp banner.
var Presets = map[string]string{
	"fswebcam":        "/usr/bin/fswebcam -r 1920x1080 %s",
	"raspistill":      "raspistill -w 1200 -h 800 -q 10 -o %s",
	"raspistill-flip": "raspistill -vf -hf -w 1200 -h 800 -q 10 -o %s",
}

// ResolveCommand returns the template for a preset name, or command itself
// if it is a template containing %s.
func ResolveCommand(command string) (string, error) {
	if tmpl, ok := Presets[command]; ok {
		return tmpl, nil
	}
	if strings.Contains(command, "%s") && len(strings.Fields(command)) > 0 {
		return command, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, command)
}

// CommandOptions bound the camera processes of a CommandCapturer.
type CommandOptions struct {
	// MaxRunning is how many processes may run at once.
	MaxRunning int

	// MaxPending is how many captures may wait for a free process slot.
	// Further captures fail with ErrCaptureBacklog.
	MaxPending int

	// Timeout kills a process that runs longer. Zero means no limit.
	Timeout time.Duration
}

// DefaultCommandOptions suit a single camera taking one picture at a time.
func DefaultCommandOptions() CommandOptions {
	return CommandOptions{
		MaxRunning: 1,
		MaxPending: 1,
		Timeout:    30 * time.Second,
	}
}

// CommandCapturer runs an external camera program for every capture.
type CommandCapturer struct {
	template []string
	timeout  time.Duration
	queue    *Queue
	log      *slog.Logger
	metrics  *Metrics
}

var _ Capturer = (*CommandCapturer)(nil)

// NewCommandCapturer creates a capturer for a preset name or template.
func NewCommandCapturer(command string, opts CommandOptions, log *slog.Logger, meter metric.Meter) (*CommandCapturer, error) {
	tmpl, err := ResolveCommand(command)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	c := &CommandCapturer{
		template: strings.Fields(tmpl),
		timeout:  opts.Timeout,
		queue:    NewQueue(opts.MaxRunning, opts.MaxPending),
		log:      log,
	}

	if meter != nil {
		metrics, err := newMetrics(meter, c.queue)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		c.metrics = metrics
	}

	return c, nil
}

// Args returns the argv used to capture into path.
func (c *CommandCapturer) Args(path string) []string {
	return lo.Map(c.template, func(field string, _ int) string {
		return strings.ReplaceAll(field, "%s", path)
	})
}

// CaptureImage runs the command and waits for it to exit. It fails with
// ErrCaptureBacklog without running anything when the camera is behind.
func (c *CommandCapturer) CaptureImage(ctx context.Context, path string) error {
	id := cuid2.Generate()
	result := make(chan error, 1)

	pos, err := c.queue.Submit(id, func() {
		defer c.queue.Done(id)
		if err := ctx.Err(); err != nil {
			result <- fmt.Errorf("%w: interrupted before start: %v", ErrProcessFailed, err)
			return
		}
		result <- c.runWithTimeout(ctx, path)
	})
	if err != nil {
		c.log.Warn("camera is busy, skipping capture",
			"running", c.queue.Running(), "pending", c.queue.Pending())
		return err
	}
	if pos > 0 {
		c.log.Debug("capture waiting for camera", "capture_id", id, "position", pos)
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: interrupted: %v", ErrProcessFailed, ctx.Err())
	}
}

func (c *CommandCapturer) runWithTimeout(ctx context.Context, path string) error {
	if c.timeout <= 0 {
		return c.run(ctx, path)
	}
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.run(runCtx, path)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s timed out after %s", ErrProcessFailed, c.template[0], c.timeout)
	}
	return err
}

func (c *CommandCapturer) run(ctx context.Context, path string) error {
	args := c.Args(path)

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	c.log.Debug("running capture command", "args", args)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}

	err := cmd.Wait()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w: interrupted: %v", ErrProcessFailed, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s exited with code %d: %s",
			ErrProcessFailed, args[0], exitErr.ExitCode(), strings.TrimSpace(output.String()))
	}
	return fmt.Errorf("%w: wait %s: %v", ErrProcessFailed, args[0], err)
}
