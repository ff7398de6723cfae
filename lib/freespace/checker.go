// Package freespace reports whether a filesystem still has enough usable space.
package freespace

import (
	"log/slog"

	"github.com/c2h5oh/datasize"
	"golang.org/x/sys/unix"
)

// Checker reports whether at least the configured minimum of bytes is usable.
type Checker interface {
	HasMinimumFree() bool
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func() bool

func (f CheckerFunc) HasMinimumFree() bool { return f() }

// StatfsChecker queries the filesystem backing path with statfs(2).
type StatfsChecker struct {
	path    string
	minFree datasize.ByteSize
	log     *slog.Logger
	statfs  func(path string, buf *unix.Statfs_t) error
}

var _ Checker = (*StatfsChecker)(nil)

// NewStatfsChecker creates a checker for the filesystem containing path.
func NewStatfsChecker(path string, minFree datasize.ByteSize, log *slog.Logger) *StatfsChecker {
	if log == nil {
		log = slog.Default()
	}
	return &StatfsChecker{
		path:    path,
		minFree: minFree,
		log:     log,
		statfs:  unix.Statfs,
	}
}

// HasMinimumFree returns true iff usable bytes >= the minimum.
// Query failures are treated as insufficient space.
func (c *StatfsChecker) HasMinimumFree() bool {
	if c.minFree == 0 {
		return true
	}

	usable, err := c.Usable()
	if err != nil {
		c.log.Error("cannot determine free space", "path", c.path, "error", err)
		return false
	}

	c.log.Debug("space available",
		"usable_mb", usable.MBytes(),
		"required_mb", c.minFree.MBytes(),
	)
	return usable >= c.minFree
}

// Usable returns the bytes available to unprivileged users.
func (c *StatfsChecker) Usable() (datasize.ByteSize, error) {
	var st unix.Statfs_t
	if err := c.statfs(c.path, &st); err != nil {
		return 0, err
	}
	return datasize.ByteSize(uint64(st.Bavail) * uint64(st.Bsize)), nil
}
