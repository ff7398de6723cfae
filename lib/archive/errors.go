package archive

import "errors"

var (
	// ErrAlreadyInitialized is returned when Initialize runs on a non-empty repository
	ErrAlreadyInitialized = errors.New("image repository already initialized")

	// ErrNotDirectory is returned when the repository root is not a directory
	ErrNotDirectory = errors.New("not a directory")

	// ErrPathConflict is returned when a capture directory exists but is not a directory
	ErrPathConflict = errors.New("capture location is not a directory")

	// ErrCreateDirectory is returned when a capture directory cannot be created
	ErrCreateDirectory = errors.New("cannot create capture directory")

	// ErrNotRegularFile is returned when an archived entry to delete is not a regular file
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrFileMissing is returned when an archived entry to delete no longer exists
	ErrFileMissing = errors.New("file does not exist")
)
