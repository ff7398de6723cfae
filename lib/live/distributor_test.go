package live

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// syncBuffer is a sink safe to read while a session writes to it.
type syncBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type failingSink struct{}

func (failingSink) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

// blockingSink blocks every write until release is closed.
type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Write(p []byte) (int, error) {
	<-s.release
	return len(p), nil
}

func newTestDistributor(t *testing.T, opts Options) *Distributor {
	t.Helper()
	d, err := New(opts, nil, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func publishAndWait(t *testing.T, d *Distributor, data []byte) {
	t.Helper()
	before := d.Current().Seq
	require.NoError(t, d.Publish(func() ([]byte, error) { return data, nil }))
	require.Eventually(t, func() bool { return d.Current().Seq > before }, time.Second, time.Millisecond)
}

func part(data string) string {
	return fmt.Sprintf("--ipcamera\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n%s", len(data), data)
}

func TestSnapshotBeforePublish(t *testing.T) {
	d := newTestDistributor(t, Options{})

	assert.Empty(t, d.Snapshot())
	assert.Zero(t, d.Current().Seq)
}

func TestPublish(t *testing.T) {
	d := newTestDistributor(t, Options{})

	publishAndWait(t, d, []byte("frame-1"))
	assert.Equal(t, []byte("frame-1"), d.Snapshot())
	assert.Equal(t, uint64(1), d.Current().Seq)

	publishAndWait(t, d, []byte("frame-2"))
	assert.Equal(t, []byte("frame-2"), d.Snapshot())
	assert.Equal(t, uint64(2), d.Current().Seq)
}

func TestPublishFailureKeepsFrame(t *testing.T) {
	d := newTestDistributor(t, Options{})
	publishAndWait(t, d, []byte("good"))

	var wg sync.WaitGroup
	wg.Add(3)
	require.NoError(t, d.Publish(func() ([]byte, error) {
		defer wg.Done()
		return nil, errors.New("read failed")
	}))
	require.NoError(t, d.Publish(func() ([]byte, error) {
		defer wg.Done()
		return nil, nil
	}))
	require.NoError(t, d.Publish(func() ([]byte, error) {
		defer wg.Done()
		panic("boom")
	}))
	wg.Wait()

	// All loaders share one worker, so a final good publish orders after them.
	publishAndWait(t, d, []byte("after"))
	assert.Equal(t, uint64(2), d.Current().Seq)
	assert.Equal(t, []byte("after"), d.Snapshot())
}

func TestSnapshotIsCopy(t *testing.T) {
	d := newTestDistributor(t, Options{})
	publishAndWait(t, d, []byte("abc"))

	snap := d.Snapshot()
	snap[0] = 'z'
	assert.Equal(t, []byte("abc"), d.Snapshot())
}

func TestSnapshotNeverTorn(t *testing.T) {
	d := newTestDistributor(t, Options{LoadQueue: 64})
	publishAndWait(t, d, bytes.Repeat([]byte{'a'}, 4096))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for i := 0; ctx.Err() == nil; i++ {
			b := byte('a' + i%26)
			_ = d.Publish(func() ([]byte, error) { return bytes.Repeat([]byte{b}, 4096), nil })
			time.Sleep(100 * time.Microsecond)
		}
	}()

	var wg sync.WaitGroup
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := d.Snapshot()
				if !assert.Len(t, snap, 4096) {
					return
				}
				if !assert.Equal(t, bytes.Repeat(snap[:1], 4096), snap) {
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestPublishQueueFull(t *testing.T) {
	d := newTestDistributor(t, Options{LoadWorkers: 1, LoadQueue: 1})

	started := make(chan struct{})
	unblock := make(chan struct{})
	require.NoError(t, d.Publish(func() ([]byte, error) {
		close(started)
		<-unblock
		return []byte("slow"), nil
	}))
	<-started

	require.NoError(t, d.Publish(func() ([]byte, error) { return []byte("queued"), nil }))
	assert.ErrorIs(t, d.Publish(func() ([]byte, error) { return []byte("dropped"), nil }), ErrQueueFull)

	close(unblock)
	require.Eventually(t, func() bool { return d.Current().Seq == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []byte("queued"), d.Snapshot())
}

func TestPublishAfterClose(t *testing.T) {
	d, err := New(Options{}, nil, nil)
	require.NoError(t, err)
	d.Close()
	d.Close()

	assert.ErrorIs(t, d.Publish(func() ([]byte, error) { return []byte("x"), nil }), ErrClosed)
}

func TestContentType(t *testing.T) {
	d := newTestDistributor(t, Options{})
	assert.Equal(t, "multipart/x-mixed-replace;boundary=ipcamera", d.ContentType())
}

func TestStreamFraming(t *testing.T) {
	d := newTestDistributor(t, Options{PollInterval: time.Millisecond, StaleBudget: 1000})
	publishAndWait(t, d, []byte("first"))

	ctx, cancel := context.WithCancel(context.Background())
	sink := &syncBuffer{}
	done := d.StreamTo(ctx, sink)

	require.Eventually(t, func() bool { return sink.String() == part("first") }, time.Second, time.Millisecond,
		"current frame is served on connect")

	publishAndWait(t, d, []byte("second"))
	require.Eventually(t, func() bool { return sink.String() == part("first")+part("second") }, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.True(t, sink.isClosed())
	assert.Zero(t, d.ActiveStreams())
}

func TestStreamEndsWhenStale(t *testing.T) {
	d := newTestDistributor(t, Options{PollInterval: time.Millisecond, StaleBudget: 3})
	publishAndWait(t, d, []byte("only"))

	sink := &syncBuffer{}
	err := d.ServeStream(context.Background(), sink)

	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, part("only"), sink.String())
	assert.True(t, sink.isClosed())
	assert.Zero(t, d.ActiveStreams())
}

func TestStreamWithoutFrameEndsWhenStale(t *testing.T) {
	d := newTestDistributor(t, Options{PollInterval: time.Millisecond, StaleBudget: 2})

	sink := &syncBuffer{}
	err := d.ServeStream(context.Background(), sink)

	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, sink.String())
}

func TestStreamWriteFailure(t *testing.T) {
	d := newTestDistributor(t, Options{PollInterval: time.Millisecond, StaleBudget: 1000})
	publishAndWait(t, d, []byte("frame"))

	err := d.ServeStream(context.Background(), failingSink{})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStale)
	assert.Equal(t, "write_failed", closeReason(err))
	assert.Zero(t, d.ActiveStreams())
}

func TestSlowConsumerIsolation(t *testing.T) {
	d := newTestDistributor(t, Options{PollInterval: time.Millisecond, StaleBudget: 1000})
	publishAndWait(t, d, []byte("one"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := &blockingSink{release: make(chan struct{})}
	slowDone := d.StreamTo(ctx, slow)

	fast := &syncBuffer{}
	fastDone := d.StreamTo(ctx, fast)

	require.Eventually(t, func() bool { return d.ActiveStreams() == 2 }, time.Second, time.Millisecond)

	publishAndWait(t, d, []byte("two"))
	publishAndWait(t, d, []byte("three"))
	require.Eventually(t, func() bool {
		return bytes.HasSuffix([]byte(fast.String()), []byte("three"))
	}, time.Second, time.Millisecond, "fast consumer keeps receiving while slow one is blocked")

	cancel()
	<-fastDone
	close(slow.release)
	<-slowDone
	assert.Zero(t, d.ActiveStreams())
}

func TestFileLoader(t *testing.T) {
	path := t.TempDir() + "/frame.jpg"
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0644))

	data, err := FileLoader(path)()
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	_, err = FileLoader(path + ".missing")()
	assert.Error(t, err)
}
