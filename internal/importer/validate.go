package importer

import (
	"errors"
	"fmt"
)

// Supported day-count window for an import.
const (
	MinDays = 7
	MaxDays = 365
)

// ErrDaysOutOfRange is returned before any network or database call
// when the requested day count is outside [MinDays, MaxDays].
var ErrDaysOutOfRange = errors.New("day count out of range")

// ValidateDays checks the requested history window.
func ValidateDays(days int) error {
	if days < MinDays || days > MaxDays {
		return fmt.Errorf("%w: got %d, want %d..%d", ErrDaysOutOfRange, days, MinDays, MaxDays)
	}
	return nil
}
