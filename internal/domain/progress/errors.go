package progress

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrTimeout is returned when the history store does not answer in time.
	ErrTimeout = errors.New("progress store timeout")
	// ErrNotRecorded is returned when correcting a match that was never recorded.
	ErrNotRecorded     = errors.New("match not recorded")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNilStore        = errors.New("nil progress store")
)
