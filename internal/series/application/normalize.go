package application

import (
	"fmt"

	series "energy-tracker/internal/series/domain"
	settlement "energy-tracker/internal/settlement/domain"
)

func checkKind(raw series.RawSeries, want series.Kind) error {
	if raw.Kind != series.KindUnknown && raw.Kind != want {
		return fmt.Errorf("%w: normalizer %s got %s series", series.ErrUnknownKind, want, raw.Kind)
	}
	return nil
}

func timeKey(reader series.Reader, row series.RawRow, index int, column string) (string, error) {
	value, err := reader.String(row, index, column)
	if err != nil {
		return "", err
	}
	key, err := settlement.CanonicalTimeKey(value)
	if err != nil {
		return "", &series.SchemaError{Kind: reader.Kind, Row: index, Column: column, Reason: err.Error()}
	}
	return key, nil
}

func period(reader series.Reader, row series.RawRow, index int, column string) (int, error) {
	value, err := reader.Int(row, index, column)
	if err != nil {
		return 0, err
	}
	if !settlement.ValidPeriod(int(value)) {
		return 0, &series.SchemaError{Kind: reader.Kind, Row: index, Column: column, Reason: fmt.Sprintf("period %d out of range", value)}
	}
	return int(value), nil
}

// NormalizeGeneration projects raw generation readings onto GenerationRow.
// The settlement period is kept as published.
func NormalizeGeneration(raw series.RawSeries) (*series.GenerationSeries, error) {
	if err := checkKind(raw, series.KindGeneration); err != nil {
		return nil, err
	}
	reader := series.Reader{Kind: series.KindGeneration}
	rows := make([]series.GenerationRow, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		publishTime, err := timeKey(reader, row, i, series.ColPublishTime)
		if err != nil {
			return nil, err
		}
		fuelType, err := reader.String(row, i, series.ColFuelType)
		if err != nil {
			return nil, err
		}
		generation, err := reader.Int(row, i, series.ColGeneration)
		if err != nil {
			return nil, err
		}
		sp, err := period(reader, row, i, series.ColSettlementPeriod)
		if err != nil {
			return nil, err
		}
		rows = append(rows, series.GenerationRow{
			PublishTime:      publishTime,
			PublishDate:      settlement.DatePortion(publishTime),
			FuelType:         fuelType,
			GainLoss:         series.GainLoss(generation),
			Generation:       generation,
			SettlementPeriod: sp,
		})
	}
	return series.NewGenerationSeries(rows), nil
}

// NormalizeDemand projects raw demand readings onto DemandRow.
func NormalizeDemand(raw series.RawSeries) (*series.DemandSeries, error) {
	if err := checkKind(raw, series.KindDemand); err != nil {
		return nil, err
	}
	reader := series.Reader{Kind: series.KindDemand}
	rows := make([]series.DemandRow, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		startTime, err := timeKey(reader, row, i, series.ColStartTime)
		if err != nil {
			return nil, err
		}
		demand, err := reader.Int(row, i, series.ColDemand)
		if err != nil {
			return nil, err
		}
		rows = append(rows, series.DemandRow{StartTime: startTime, Demand: demand})
	}
	return series.NewDemandSeries(rows), nil
}

// NormalizePrice projects raw system prices onto PriceRow.
func NormalizePrice(raw series.RawSeries) (*series.PriceSeries, error) {
	if err := checkKind(raw, series.KindPrice); err != nil {
		return nil, err
	}
	reader := series.Reader{Kind: series.KindPrice}
	rows := make([]series.PriceRow, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		value, err := reader.String(row, i, series.ColSettlementDate)
		if err != nil {
			return nil, err
		}
		date, err := settlement.CanonicalDateKey(value)
		if err != nil {
			return nil, &series.SchemaError{Kind: series.KindPrice, Row: i, Column: series.ColSettlementDate, Reason: err.Error()}
		}
		sp, err := period(reader, row, i, series.ColSettlementPeriod)
		if err != nil {
			return nil, err
		}
		sell, err := reader.Decimal(row, i, series.ColSystemSellPrice)
		if err != nil {
			return nil, err
		}
		buy, err := reader.Decimal(row, i, series.ColSystemBuyPrice)
		if err != nil {
			return nil, err
		}
		rows = append(rows, series.PriceRow{
			SettlementDate:   date,
			SettlementPeriod: sp,
			SellPrice:        sell,
			BuyPrice:         buy,
		})
	}
	return series.NewPriceSeries(rows), nil
}

// NormalizeCarbon expands each forecast interval into 5-minute rows. The
// carbon level is derived from the forecast; a published level is ignored.
func NormalizeCarbon(raw series.RawSeries) (*series.CarbonSeries, error) {
	if err := checkKind(raw, series.KindCarbon); err != nil {
		return nil, err
	}
	reader := series.Reader{Kind: series.KindCarbon}
	var rows []series.CarbonRow
	for i, row := range raw.Rows {
		interval, err := carbonInterval(reader, row, i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ExpandInterval(interval, CarbonStep)...)
	}
	return series.NewCarbonSeries(rows), nil
}

func carbonInterval(reader series.Reader, row series.RawRow, index int) (CarbonInterval, error) {
	fromValue, err := reader.String(row, index, series.ColFrom)
	if err != nil {
		return CarbonInterval{}, err
	}
	from, err := settlement.ParseTimestamp(fromValue)
	if err != nil {
		return CarbonInterval{}, &series.SchemaError{Kind: series.KindCarbon, Row: index, Column: series.ColFrom, Reason: err.Error()}
	}
	toValue, err := reader.String(row, index, series.ColTo)
	if err != nil {
		return CarbonInterval{}, err
	}
	to, err := settlement.ParseTimestamp(toValue)
	if err != nil {
		return CarbonInterval{}, &series.SchemaError{Kind: series.KindCarbon, Row: index, Column: series.ColTo, Reason: err.Error()}
	}
	forecast, err := reader.Int(row, index, series.ColForecast)
	if err != nil {
		return CarbonInterval{}, err
	}
	return CarbonInterval{
		From:        from,
		To:          to,
		Forecast:    forecast,
		CarbonLevel: series.CarbonLevelFor(forecast),
	}, nil
}
