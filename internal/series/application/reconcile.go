package application

import (
	"sort"

	"github.com/shopspring/decimal"

	series "energy-tracker/internal/series/domain"
	settlement "energy-tracker/internal/settlement/domain"
)

// DefaultPriorDayPeriods are the periods the price source publishes under the
// previous calendar date.
var DefaultPriorDayPeriods = []int{1, 2}

// ReconcileReport summarizes the filler rows appended by one reconciliation.
type ReconcileReport struct {
	DemandFillers []string
	PriceFillers  []series.PeriodKey
	Skipped       bool
}

// Fillers returns the filler count for kind.
func (r ReconcileReport) Fillers(kind series.Kind) int {
	switch kind {
	case series.KindDemand:
		return len(r.DemandFillers)
	case series.KindPrice:
		return len(r.PriceFillers)
	default:
		return 0
	}
}

// Reconciler appends zero-valued rows so that every generation time key has a
// demand row and every generation period has a price row.
type Reconciler struct {
	priorDay series.KeySet[int]
}

// ReconcilerOption configures the reconciler.
type ReconcilerOption func(*Reconciler)

// WithPriorDayPeriods replaces the periods that also receive a filler dated
// the day before the generation date.
func WithPriorDayPeriods(periods ...int) ReconcilerOption {
	return func(r *Reconciler) {
		set := series.NewKeySet[int]()
		for _, p := range periods {
			if settlement.ValidPeriod(p) {
				set.Add(p)
			}
		}
		r.priorDay = set
	}
}

// NewReconciler constructs a reconciler.
func NewReconciler(opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{priorDay: series.NewKeySet(DefaultPriorDayPeriods...)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PriorDayPeriods returns the configured prior-day periods in ascending order.
func (r *Reconciler) PriorDayPeriods() []int {
	out := make([]int, 0, len(r.priorDay))
	for p := range r.priorDay {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Reconcile returns a batch whose demand and price series cover the generation
// keys. Appended rows are recorded in Batch.Fillers. Input series are never
// modified; carbon passes through. Without a generation series the batch is
// returned unchanged.
func (r *Reconciler) Reconcile(batch series.Batch) (series.Batch, ReconcileReport) {
	if batch.Generation == nil {
		return batch, ReconcileReport{Skipped: true}
	}
	var report ReconcileReport
	out := batch
	out.Demand, report.DemandFillers = r.fillDemand(batch.Generation, batch.Demand)
	out.Price, report.PriceFillers = r.fillPrice(batch.Generation, batch.Price)
	out.Fillers = series.Fillers{Demand: batch.Fillers.Demand.Clone(), Price: batch.Fillers.Price.Clone()}
	for _, key := range report.DemandFillers {
		out.Fillers.Demand.Add(key)
	}
	for _, key := range report.PriceFillers {
		out.Fillers.Price.Add(key)
	}
	return out, report
}

func (r *Reconciler) fillDemand(gen *series.GenerationSeries, demand *series.DemandSeries) (*series.DemandSeries, []string) {
	var existing []series.DemandRow
	have := series.NewKeySet[string]()
	if demand != nil {
		existing = demand.Rows
		have = demand.TimeKeys.Clone()
	}
	missing := gen.TimeKeys.Difference(have)
	if len(missing) == 0 && demand != nil {
		return demand, nil
	}

	rows := make([]series.DemandRow, len(existing), len(existing)+len(missing))
	copy(rows, existing)
	var filled []string
	for _, row := range gen.Rows {
		if !missing.Has(row.PublishTime) || have.Has(row.PublishTime) {
			continue
		}
		rows = append(rows, series.DemandRow{StartTime: row.PublishTime, Demand: 0})
		have.Add(row.PublishTime)
		filled = append(filled, row.PublishTime)
	}
	return series.NewDemandSeries(rows), filled
}

func (r *Reconciler) fillPrice(gen *series.GenerationSeries, price *series.PriceSeries) (*series.PriceSeries, []series.PeriodKey) {
	var existing []series.PriceRow
	have := series.NewKeySet[int]()
	if price != nil {
		existing = price.Rows
		have = price.Periods.Clone()
	}
	missing := gen.PeriodKeys.Difference(have)
	if len(missing) == 0 && price != nil {
		return price, nil
	}

	rows := make([]series.PriceRow, len(existing), len(existing)+2*len(missing))
	copy(rows, existing)
	var filled []series.PeriodKey
	for _, row := range gen.Rows {
		p := row.SettlementPeriod
		if !missing.Has(p) || have.Has(p) {
			continue
		}
		if r.priorDay.Has(p) {
			if yesterday, err := settlement.PreviousDate(row.PublishDate); err == nil {
				rows = append(rows, priceFiller(yesterday, p))
				filled = append(filled, series.PeriodKey{Date: yesterday, Period: p})
			}
		}
		rows = append(rows, priceFiller(row.PublishDate, p))
		filled = append(filled, series.PeriodKey{Date: row.PublishDate, Period: p})
		have.Add(p)
	}
	return series.NewPriceSeries(rows), filled
}

func priceFiller(date string, period int) series.PriceRow {
	return series.PriceRow{
		SettlementDate:   date,
		SettlementPeriod: period,
		SellPrice:        decimal.Zero,
		BuyPrice:         decimal.Zero,
	}
}
