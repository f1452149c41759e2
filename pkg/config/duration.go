package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration requires d > 0. For timeouts, intervals, and
// windows where zero would mean "never".
func ValidatePositiveDuration(d time.Duration) error {
	if d > 0 {
		return nil
	}
	return fmt.Errorf("duration must be positive, got %v", d)
}

// ValidateDurationRange requires min <= d <= max, bounds inclusive.
func ValidateDurationRange(d, min, max time.Duration) error {
	switch {
	case min > max:
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	case d < min:
		return fmt.Errorf("duration %v is below minimum %v", d, min)
	case d > max:
		return fmt.Errorf("duration %v exceeds maximum %v", d, max)
	}
	return nil
}

// ValidateNonNegativeDuration requires d >= 0; zero is acceptable for
// optional delays.
func ValidateNonNegativeDuration(d time.Duration) error {
	if d >= 0 {
		return nil
	}
	return fmt.Errorf("duration must be non-negative, got %v", d)
}
