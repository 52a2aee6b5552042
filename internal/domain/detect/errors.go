package detect

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrDetectorFailure   = errors.New("detector failure")
	ErrDetectorTimeout   = errors.New("detector timed out")
	ErrDetectorPanic     = errors.New("detector panicked")
	ErrDuplicateDetector = errors.New("duplicate detector")
	ErrInvalidDetector   = errors.New("invalid detector")
)

// SkipError is returned by a detector that chose not to run, for example
// because a feature it needs is absent.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip reports that the detector did not run.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// Failure is an absorbed detector error, panic or timeout. It never aborts
// a run; the registry reports it alongside the other outcomes.
type Failure struct {
	Detector string
	PlayerID string
	Cause    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("detector %s failed for %s: %v", f.Detector, f.PlayerID, f.Cause)
}

// Unwrap exposes the cause.
func (f *Failure) Unwrap() error { return f.Cause }

// Is matches ErrDetectorFailure.
func (f *Failure) Is(target error) bool { return target == ErrDetectorFailure }
