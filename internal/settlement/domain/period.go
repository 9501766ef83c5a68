package settlement

import "time"

const (
	// PeriodsPerDay is the number of half-hour slots in a settlement day.
	PeriodsPerDay = 48
	// PeriodLength is the width of one settlement period.
	PeriodLength = 30 * time.Minute
	// DayStartHour is the local hour at which a settlement day begins.
	DayStartHour = 23
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DayStart returns the 23:00 boundary that opens the settlement day containing t.
func DayStart(t time.Time) time.Time {
	start := time.Date(t.Year(), t.Month(), t.Day(), DayStartHour, 0, 0, 0, t.Location())
	if t.Hour() < DayStartHour {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// Period maps t to its settlement period. With previous set the period before
// it is returned. Anything outside [1, 48] is pinned to 48, so the period
// before the first one of a day is the last one of the day before.
func Period(t time.Time, previous bool) int {
	minutes := int(t.Sub(DayStart(t)) / time.Minute)
	period := minutes/int(PeriodLength/time.Minute) + 1
	if previous {
		period--
	}
	if period < 1 || period > PeriodsPerDay {
		period = PeriodsPerDay
	}
	return period
}

// CurrentPeriod returns the settlement period at clock.Now().
func CurrentPeriod(clock Clock, previous bool) int {
	if clock == nil {
		clock = SystemClock{}
	}
	return Period(clock.Now(), previous)
}

// ValidPeriod reports whether period is a settlement period index.
func ValidPeriod(period int) bool {
	return period >= 1 && period <= PeriodsPerDay
}
