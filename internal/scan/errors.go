package scan

import (
	"errors"
	"fmt"
)

// ErrInvalidParams indicates scan parameters that cannot produce a result.
var ErrInvalidParams = errors.New("scan: invalid parameters")

// PointError wraps a failure with the temperature point it interrupted.
type PointError struct {
	Index   int
	T       float64
	Wrapped error
}

func (e *PointError) Error() string {
	return fmt.Sprintf("scan: point %d (T=%.3f): %v", e.Index, e.T, e.Wrapped)
}

func (e *PointError) Unwrap() error {
	return e.Wrapped
}
