package application

import (
	"time"

	series "energy-tracker/internal/series/domain"
	settlement "energy-tracker/internal/settlement/domain"
)

// CarbonStep matches the generation publishing cadence.
const CarbonStep = 5 * time.Minute

// CarbonInterval is one published forecast window.
type CarbonInterval struct {
	From        time.Time
	To          time.Time
	Forecast    int64
	CarbonLevel series.CarbonLevel
}

// ExpandInterval splits [From, To) into step-wide rows that inherit the
// forecast and level. To is exclusive; an empty or inverted window yields nil.
func ExpandInterval(interval CarbonInterval, step time.Duration) []series.CarbonRow {
	if step <= 0 {
		step = CarbonStep
	}
	if !interval.To.After(interval.From) {
		return nil
	}
	rows := make([]series.CarbonRow, 0, int(interval.To.Sub(interval.From)/step)+1)
	for at := interval.From; at.Before(interval.To); at = at.Add(step) {
		rows = append(rows, series.CarbonRow{
			IntervalStart: settlement.FormatTimeKey(at),
			Forecast:      interval.Forecast,
			CarbonLevel:   interval.CarbonLevel,
		})
	}
	return rows
}
