package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayCapturerRoundRobin(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("bravo"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.JPG"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c.jpg"), 0755))

	c, err := NewReplayCapturer(dir, nil)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	out := t.TempDir()
	var got []string
	for i := 0; i < 5; i++ {
		path := filepath.Join(out, "shot.jpg")
		require.NoError(t, c.CaptureImage(context.Background(), path))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		got = append(got, string(data))
	}

	assert.Equal(t, []string{"alpha", "bravo", "alpha", "bravo", "alpha"}, got)
}

func TestReplayCapturerEmptyImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), nil, 0644))

	c, err := NewReplayCapturer(dir, nil)
	require.NoError(t, err)

	err = c.CaptureImage(context.Background(), filepath.Join(t.TempDir(), "shot.jpg"))
	assert.ErrorIs(t, err, ErrEmptyCapture)
}

func TestReplayCapturerNoImages(t *testing.T) {
	_, err := NewReplayCapturer(t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrNoImages)

	_, err = NewReplayCapturer(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestReplayCapturerWriteFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("alpha"), 0644))

	c, err := NewReplayCapturer(dir, nil)
	require.NoError(t, err)

	err = c.CaptureImage(context.Background(), filepath.Join(t.TempDir(), "missing", "shot.jpg"))
	assert.Error(t, err)
}

func TestCapturerFunc(t *testing.T) {
	var called string
	var c Capturer = CapturerFunc(func(_ context.Context, path string) error {
		called = path
		return nil
	})
	require.NoError(t, c.CaptureImage(context.Background(), "/x"))
	assert.Equal(t, "/x", called)
}
