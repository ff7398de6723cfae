package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ReplayCapturer emulates a camera by writing recorded JPEG files in
// round-robin order.
type ReplayCapturer struct {
	mu     sync.Mutex
	images [][]byte
	next   int
	log    *slog.Logger
}

var _ Capturer = (*ReplayCapturer)(nil)

// NewReplayCapturer loads every .jpg file directly inside dir, in name order.
// Unreadable files are skipped.
func NewReplayCapturer(dir string, log *slog.Logger) (*ReplayCapturer, error) {
	if log == nil {
		log = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), ".jpg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	images := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("cannot read replay image", "file", name, "error", err)
			continue
		}
		images = append(images, data)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoImages, dir)
	}

	log.Info("replaying recorded images", "dir", dir, "count", len(images))
	return &ReplayCapturer{images: images, log: log}, nil
}

// Len returns the number of images in rotation.
func (c *ReplayCapturer) Len() int {
	return len(c.images)
}

// CaptureImage writes the next image to path.
func (c *ReplayCapturer) CaptureImage(_ context.Context, path string) error {
	c.mu.Lock()
	data := c.images[c.next]
	c.next = (c.next + 1) % len(c.images)
	c.mu.Unlock()

	if len(data) == 0 {
		return ErrEmptyCapture
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write replay image: %w", err)
	}
	return nil
}
