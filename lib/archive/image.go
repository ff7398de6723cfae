package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// StoredImage is an archived capture on disk. Its creation time is read from the
// filesystem each time it is needed.
type StoredImage struct {
	path string
}

func newStoredImage(path string) *StoredImage {
	return &StoredImage{path: path}
}

// Path returns the location of the image file.
func (i *StoredImage) Path() string {
	return i.path
}

// CreatedAt reads the creation time of the file.
func (i *StoredImage) CreatedAt() (time.Time, error) {
	return creationTime(i.path)
}

// delete removes the file. Only regular files are deleted.
func (i *StoredImage) delete() error {
	info, err := os.Lstat(i.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileMissing, i.path)
		}
		return fmt.Errorf("stat image file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, i.path)
	}

	if err := os.Remove(i.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileMissing, i.path)
		}
		return fmt.Errorf("delete image file: %w", err)
	}
	return nil
}

// before reports whether i was created before other. Ties are broken by path,
// which sorts chronologically within the archive layout.
func (i *StoredImage) before(other *StoredImage) (bool, error) {
	a, err := i.CreatedAt()
	if err != nil {
		return false, fmt.Errorf("read attributes of %s: %w", i.path, err)
	}
	b, err := other.CreatedAt()
	if err != nil {
		return false, fmt.Errorf("read attributes of %s: %w", other.path, err)
	}
	if a.Equal(b) {
		return i.path < other.path, nil
	}
	return a.Before(b), nil
}

func (i *StoredImage) String() string {
	return i.path
}
