package types

import "errors"

// ErrUnknownValue is returned when an enumeration name cannot be parsed.
var ErrUnknownValue = errors.New("unknown value")
