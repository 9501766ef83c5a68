package series

import "github.com/shopspring/decimal"

// Gain/loss markers derived from the sign of a generation reading.
const (
	Gain = "+"
	Loss = "-"
)

// GainLoss returns "+" for positive generation and "-" otherwise.
func GainLoss(generation int64) string {
	if generation > 0 {
		return Gain
	}
	return Loss
}

// GenerationRow is one fuel-type generation reading.
type GenerationRow struct {
	PublishTime      string
	PublishDate      string
	FuelType         string
	GainLoss         string
	Generation       int64
	SettlementPeriod int
}

// Values returns the row in relation column order.
func (r GenerationRow) Values() []any {
	return []any{r.PublishTime, r.PublishDate, r.FuelType, r.GainLoss, r.Generation, r.SettlementPeriod}
}

// DemandRow is one rolling system demand reading.
type DemandRow struct {
	StartTime string
	Demand    int64
}

// Values returns the row in relation column order.
func (r DemandRow) Values() []any {
	return []any{r.StartTime, r.Demand}
}

// PriceRow is the system sell/buy price for a settlement period.
type PriceRow struct {
	SettlementDate   string
	SettlementPeriod int
	SellPrice        decimal.Decimal
	BuyPrice         decimal.Decimal
}

// Key returns the (date, period) conflict key.
func (r PriceRow) Key() PeriodKey {
	return PeriodKey{Date: r.SettlementDate, Period: r.SettlementPeriod}
}

// Values returns the row in relation column order.
func (r PriceRow) Values() []any {
	return []any{r.SettlementDate, r.SettlementPeriod, r.SellPrice, r.BuyPrice}
}

// CarbonRow is the carbon intensity forecast for a 5-minute interval.
type CarbonRow struct {
	IntervalStart string
	Forecast      int64
	CarbonLevel   CarbonLevel
}

// Values returns the row in relation column order.
func (r CarbonRow) Values() []any {
	return []any{r.IntervalStart, r.Forecast, string(r.CarbonLevel)}
}
