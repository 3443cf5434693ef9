package sim

import (
	"errors"
	"fmt"
)

// ErrConfiguration tags malformed or inconsistent input detected before the
// simulation starts. Errors wrapping it are fatal and surface through the
// CLI as a non-zero exit.
var ErrConfiguration = errors.New("configuration error")

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

// CapacityViolationError reports a leg oversold past its capacity. This
// must never happen; seeing one means a booking-engine bug, so callers
// treat it as fatal rather than recoverable.
type CapacityViolationError struct {
	FltNo    int
	Sold     int
	Capacity int
}

func (e *CapacityViolationError) Error() string {
	return fmt.Sprintf("capacity violation on leg %d: sold %d exceeds capacity %d", e.FltNo, e.Sold, e.Capacity)
}
