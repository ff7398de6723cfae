// Package archive maintains the on-disk image archive under a free-space budget.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/onkernel/stillcam/lib/freespace"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/metric"
)

// DefaultExtensions are the file extensions treated as archived images.
var DefaultExtensions = []string{".jpg"}

// Config configures a Repository.
type Config struct {
	// Root is the archive directory. It must exist.
	Root string

	// Extensions recognised when scanning an existing archive, matched
	// case-insensitively. The first one is used for new captures.
	Extensions []string
}

// Repository tracks archived images oldest first and evicts the oldest ones
// whenever free space drops below the configured minimum.
type Repository struct {
	root    string
	ext     string
	exts    []string
	space   freespace.Checker
	log     *slog.Logger
	metrics *Metrics

	mu     sync.Mutex
	images []*StoredImage // ascending by creation time
}

// New creates a repository rooted at cfg.Root.
func New(cfg Config, space freespace.Checker, log *slog.Logger, meter metric.Meter) (*Repository, error) {
	if log == nil {
		log = slog.Default()
	}
	if space == nil {
		return nil, errors.New("free space checker is required")
	}

	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("stat repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, cfg.Root)
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	exts = lo.Map(exts, func(e string, _ int) string {
		e = strings.ToLower(strings.TrimSpace(e))
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		return e
	})

	r := &Repository{
		root:  cfg.Root,
		ext:   exts[0],
		exts:  lo.Uniq(exts),
		space: space,
		log:   log,
	}

	if meter != nil {
		metrics, err := newMetrics(meter, r)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		r.metrics = metrics
	}

	return r, nil
}

// Root returns the archive directory.
func (r *Repository) Root() string {
	return r.root
}

// Len returns the number of tracked images.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.images)
}

// Paths returns the tracked image paths, oldest first.
func (r *Repository) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.images, func(img *StoredImage, _ int) string { return img.path })
}

// Register records a newly written image, assumed newer than every tracked
// one, then deletes the oldest images one at a time until enough space is
// free or nothing is left. A failed delete stops eviction and is returned;
// the next Register retries.
func (r *Repository) Register(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.images = append(r.images, newStoredImage(path))
	r.metrics.recordRegistered(ctx)

	for !r.space.HasMinimumFree() && len(r.images) > 0 {
		oldest := r.images[0]
		r.images[0] = nil
		r.images = r.images[1:]

		r.log.InfoContext(ctx, "not enough space, deleting oldest image", "path", oldest.path)
		if err := oldest.delete(); err != nil {
			r.metrics.recordEviction(ctx, "failed")
			return fmt.Errorf("evict oldest image: %w", err)
		}
		r.metrics.recordEviction(ctx, "deleted")
	}

	return nil
}

// Initialize scans the archive for existing images and sorts them by creation
// time. It may only run on an empty repository. Scan and sort problems are
// logged and whatever was collected is kept.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.images) > 0 {
		return ErrAlreadyInitialized
	}

	r.log.InfoContext(ctx, "initializing image repository", "root", r.root)

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() || !r.matches(path) {
			return nil
		}
		r.images = append(r.images, newStoredImage(path))
		r.log.DebugContext(ctx, "adding existing file", "path", path)
		return nil
	})
	if err != nil {
		r.log.ErrorContext(ctx, "cannot scan existing image repository", "error", err)
	}

	r.log.InfoContext(ctx, "found existing files", "count", len(r.images))

	if err := r.sortLocked(); err != nil {
		r.log.ErrorContext(ctx, "cannot sort existing image repository", "error", err)
	}

	return nil
}

func (r *Repository) matches(path string) bool {
	return lo.Contains(r.exts, strings.ToLower(filepath.Ext(path)))
}

// sortLocked orders images by creation time. The first attribute error ends
// the comparison and is returned.
func (r *Repository) sortLocked() error {
	var sortErr error
	sort.SliceStable(r.images, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := r.images[i].before(r.images[j])
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	return sortErr
}
