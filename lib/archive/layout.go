package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RelativePath returns the archive-relative location for a capture taken at t:
// YYYY/MM/DD/HH_MM_SS__NNNNNNNNN<ext>.
// Captures within the same nanosecond map to the same name.
func RelativePath(t time.Time, ext string) string {
	dir := fmt.Sprintf("%04d/%02d/%02d", t.Year(), int(t.Month()), t.Day())
	name := fmt.Sprintf("%02d_%02d_%02d__%09d%s", t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), ext)
	return filepath.Join(filepath.FromSlash(dir), name)
}

// PathForCapture returns the absolute file path for a capture taken at t,
// creating the year, month and day directories if needed. An existing
// component that is not a real directory, symlinks included, is a conflict.
func (r *Repository) PathForCapture(t time.Time) (string, error) {
	rel := RelativePath(t, r.ext)

	dir := r.root
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		dir = filepath.Join(dir, part)
		if err := ensureDir(dir); err != nil {
			return "", err
		}
	}

	return filepath.Join(dir, filepath.Base(rel)), nil
}

// ensureDir creates dir unless it already is a directory.
func ensureDir(dir string) error {
	info, err := os.Lstat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrPathConflict, dir)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("stat capture directory: %w", err)
	}

	if err := os.Mkdir(dir, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// Lost a race with another capture; check what is there now.
			return ensureExisting(dir)
		}
		return fmt.Errorf("%w: %s: %v", ErrCreateDirectory, dir, err)
	}
	return nil
}

func ensureExisting(dir string) error {
	info, err := os.Lstat(dir)
	if err != nil {
		return fmt.Errorf("stat capture directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrPathConflict, dir)
	}
	return nil
}
