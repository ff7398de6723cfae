package live

import "errors"

var (
	// ErrClosed is returned when publishing to a closed distributor
	ErrClosed = errors.New("distributor closed")

	// ErrQueueFull is returned when the frame load queue has no room
	ErrQueueFull = errors.New("frame load queue full")

	// ErrEmptyFrame is returned when a loader produces no bytes
	ErrEmptyFrame = errors.New("loader returned empty frame")

	// ErrStale is returned when a stream session sees no newer frame
	// within its staleness budget
	ErrStale = errors.New("no fresh frame within staleness budget")
)
