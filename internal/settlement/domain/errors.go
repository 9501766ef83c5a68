package settlement

import "errors"

var (
	// ErrInvalidTimestamp is returned when a timestamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("settlement: invalid timestamp")
	// ErrInvalidDate is returned when a settlement date cannot be parsed.
	ErrInvalidDate = errors.New("settlement: invalid date")
	// ErrPeriodOutOfRange is returned when a settlement period is outside [1, 48].
	ErrPeriodOutOfRange = errors.New("settlement: period out of range")
)
