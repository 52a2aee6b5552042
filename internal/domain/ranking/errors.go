package ranking

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidTemplate = errors.New("invalid template")
	ErrLoadCatalog     = errors.New("load template catalog failed")
)
