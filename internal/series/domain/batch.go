package series

// GenerationSeries is the normalized generation series and its key sets.
type GenerationSeries struct {
	Rows       []GenerationRow
	TimeKeys   KeySet[string]
	PeriodKeys KeySet[int]
}

// NewGenerationSeries indexes rows.
func NewGenerationSeries(rows []GenerationRow) *GenerationSeries {
	s := &GenerationSeries{Rows: rows, TimeKeys: NewKeySet[string](), PeriodKeys: NewKeySet[int]()}
	for _, row := range rows {
		s.TimeKeys.Add(row.PublishTime)
		s.PeriodKeys.Add(row.SettlementPeriod)
	}
	return s
}

// DemandSeries is the normalized demand series and its time keys.
type DemandSeries struct {
	Rows     []DemandRow
	TimeKeys KeySet[string]
}

// NewDemandSeries indexes rows.
func NewDemandSeries(rows []DemandRow) *DemandSeries {
	s := &DemandSeries{Rows: rows, TimeKeys: NewKeySet[string]()}
	for _, row := range rows {
		s.TimeKeys.Add(row.StartTime)
	}
	return s
}

// PriceSeries is the normalized price series. PeriodKeys holds (date, period)
// pairs; Periods holds the bare period numbers for comparison with generation.
type PriceSeries struct {
	Rows       []PriceRow
	PeriodKeys KeySet[PeriodKey]
	Periods    KeySet[int]
}

// NewPriceSeries indexes rows.
func NewPriceSeries(rows []PriceRow) *PriceSeries {
	s := &PriceSeries{Rows: rows, PeriodKeys: NewKeySet[PeriodKey](), Periods: NewKeySet[int]()}
	for _, row := range rows {
		s.PeriodKeys.Add(row.Key())
		s.Periods.Add(row.SettlementPeriod)
	}
	return s
}

// CarbonSeries is the expanded carbon series and its interval keys.
type CarbonSeries struct {
	Rows     []CarbonRow
	TimeKeys KeySet[string]
}

// NewCarbonSeries indexes rows.
func NewCarbonSeries(rows []CarbonRow) *CarbonSeries {
	s := &CarbonSeries{Rows: rows, TimeKeys: NewKeySet[string]()}
	for _, row := range rows {
		s.TimeKeys.Add(row.IntervalStart)
	}
	return s
}

// Fillers marks the synthetic rows appended by reconciliation. Loaders write
// them insert-only so a filler never replaces a stored value.
type Fillers struct {
	Demand KeySet[string]
	Price  KeySet[PeriodKey]
}

// IsDemand reports whether the demand row at startTime is a filler.
func (f Fillers) IsDemand(startTime string) bool { return f.Demand.Has(startTime) }

// IsPrice reports whether the price row at key is a filler.
func (f Fillers) IsPrice(key PeriodKey) bool { return f.Price.Has(key) }

// Batch holds one run's normalized series. A nil field means the series was
// not staged or failed to normalize.
type Batch struct {
	Generation *GenerationSeries
	Demand     *DemandSeries
	Price      *PriceSeries
	Carbon     *CarbonSeries
	Fillers    Fillers
}

// Has reports whether the kind is present.
func (b Batch) Has(kind Kind) bool {
	switch kind {
	case KindGeneration:
		return b.Generation != nil
	case KindDemand:
		return b.Demand != nil
	case KindPrice:
		return b.Price != nil
	case KindCarbon:
		return b.Carbon != nil
	default:
		return false
	}
}

// Len returns the row count of the kind, zero when absent.
func (b Batch) Len(kind Kind) int {
	switch kind {
	case KindGeneration:
		if b.Generation != nil {
			return len(b.Generation.Rows)
		}
	case KindDemand:
		if b.Demand != nil {
			return len(b.Demand.Rows)
		}
	case KindPrice:
		if b.Price != nil {
			return len(b.Price.Rows)
		}
	case KindCarbon:
		if b.Carbon != nil {
			return len(b.Carbon.Rows)
		}
	}
	return 0
}
