package live

import (
	"sync"
	"time"
)

// Frame is a copy of the current live image.
type Frame struct {
	Data []byte

	// Seq increases by one on every successful publish. Zero means no frame
	// has been published yet.
	Seq uint64

	// UpdatedAt is when the frame was published.
	UpdatedAt time.Time
}

// frameCell holds the single current frame. Readers copy out under the lock
// and never hold it while writing to a consumer.
type frameCell struct {
	mu        sync.Mutex
	data      []byte
	seq       uint64
	updatedAt time.Time
}

// replace swaps in new bytes. The cell takes ownership of data.
func (c *frameCell) replace(data []byte, now time.Time) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.seq++
	c.updatedAt = now
	return c.seq
}

func (c *frameCell) snapshot() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// newerThan returns a copy of the frame only if its sequence is past seq.
func (c *frameCell) newerThan(seq uint64) (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq <= seq {
		return Frame{}, false
	}
	return c.copyLocked(), true
}

func (c *frameCell) copyLocked() Frame {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return Frame{Data: out, Seq: c.seq, UpdatedAt: c.updatedAt}
}
