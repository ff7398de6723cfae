package capture

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestResolveCommand(t *testing.T) {
	tests := []struct {
		command  string
		expected string
		wantErr  bool
	}{
		{"fswebcam", "/usr/bin/fswebcam -r 1920x1080 %s", false},
		{"raspistill", "raspistill -w 1200 -h 800 -q 10 -o %s", false},
		{"raspistill-flip", "raspistill -vf -hf -w 1200 -h 800 -q 10 -o %s", false},
		{"libcamera-still -o %s", "libcamera-still -o %s", false},
		{"webcam", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, err := ResolveCommand(tt.command)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCommandCapturerArgs(t *testing.T) {
	c, err := NewCommandCapturer("raspistill-flip", DefaultCommandOptions(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"raspistill", "-vf", "-hf", "-w", "1200", "-h", "800", "-q", "10", "-o", "/data/2024/01/02/03_04_05__000000006.jpg"},
		c.Args("/data/2024/01/02/03_04_05__000000006.jpg"),
	)

	c, err = NewCommandCapturer("cam   --out=%s  --fast", DefaultCommandOptions(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"cam", "--out=/tmp/x.jpg", "--fast"}, c.Args("/tmp/x.jpg"))
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestCommandCapturerSuccess(t *testing.T) {
	requireBinary(t, "touch")

	c, err := NewCommandCapturer("touch %s", DefaultCommandOptions(), nil, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "shot.jpg")
	require.NoError(t, c.CaptureImage(context.Background(), path))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCommandCapturerExitFailure(t *testing.T) {
	requireBinary(t, "false")

	c, err := NewCommandCapturer("false %s", DefaultCommandOptions(), nil, nil)
	require.NoError(t, err)

	err = c.CaptureImage(context.Background(), filepath.Join(t.TempDir(), "shot.jpg"))
	require.ErrorIs(t, err, ErrProcessFailed)
	assert.Contains(t, err.Error(), "exited with code 1")
}

func TestCommandCapturerMissingBinary(t *testing.T) {
	c, err := NewCommandCapturer("/nonexistent/camera-tool %s", DefaultCommandOptions(), nil, nil)
	require.NoError(t, err)

	err = c.CaptureImage(context.Background(), filepath.Join(t.TempDir(), "shot.jpg"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProcessFailed)
}

func TestCommandCapturerInterrupted(t *testing.T) {
	requireBinary(t, "sleep")

	// sleep adds the path operand to its duration.
	c, err := NewCommandCapturer("sleep 10 %s", DefaultCommandOptions(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = c.CaptureImage(ctx, "1")
	require.ErrorIs(t, err, ErrProcessFailed)
	assert.Contains(t, err.Error(), "interrupted")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandCapturerTimeout(t *testing.T) {
	requireBinary(t, "sleep")

	opts := DefaultCommandOptions()
	opts.Timeout = 50 * time.Millisecond
	c, err := NewCommandCapturer("sleep 10 %s", opts, nil, nil)
	require.NoError(t, err)

	start := time.Now()
	err = c.CaptureImage(context.Background(), "1")
	require.ErrorIs(t, err, ErrProcessFailed)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandCapturerBacklog(t *testing.T) {
	requireBinary(t, "sleep")

	c, err := NewCommandCapturer("sleep 10 %s", CommandOptions{MaxRunning: 1, MaxPending: 0}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.CaptureImage(ctx, "1") }()
	require.Eventually(t, func() bool { return c.queue.Running() == 1 }, time.Second, time.Millisecond)

	err = c.CaptureImage(context.Background(), "1")
	assert.ErrorIs(t, err, ErrCaptureBacklog)

	cancel()
	assert.ErrorIs(t, <-done, ErrProcessFailed)
	require.Eventually(t, func() bool { return c.queue.Running() == 0 }, 5*time.Second, time.Millisecond)
}
