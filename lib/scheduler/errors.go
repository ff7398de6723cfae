package scheduler

import "errors"

var (
	// ErrAlreadyStarted is returned when Start is called twice
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrInvalidPeriod is returned for a non-positive capture period
	ErrInvalidPeriod = errors.New("capture period must be positive")
)
