package capture

import "errors"

var (
	// ErrProcessFailed is returned when a capture process exits non-zero or is interrupted
	ErrProcessFailed = errors.New("capture process failed")

	// ErrUnknownCommand is returned for a command that is neither a preset nor a template
	ErrUnknownCommand = errors.New("unknown capture command")

	// ErrNoImages is returned when a replay directory holds no readable JPEG files
	ErrNoImages = errors.New("no JPEG images to replay")

	// ErrCaptureBacklog is returned when too many captures already wait for the camera
	ErrCaptureBacklog = errors.New("too many captures waiting for the camera")

	// ErrEmptyCapture is returned when a capture writes no bytes
	ErrEmptyCapture = errors.New("capture wrote no bytes")
)
