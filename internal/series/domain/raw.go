package series

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Raw column names as staged by the extract collaborators.
const (
	ColPublishTime      = "publishTime"
	ColFuelType         = "fuelType"
	ColGeneration       = "generation"
	ColSettlementPeriod = "settlementPeriod"
	ColStartTime        = "startTime"
	ColDemand           = "demand"
	ColSettlementDate   = "settlementDate"
	ColSystemSellPrice  = "systemSellPrice"
	ColSystemBuyPrice   = "systemBuyPrice"
	ColFrom             = "from"
	ColTo               = "to"
	ColForecast         = "forecast"
	ColCarbonLevel      = "carbon level"
)

// RequiredColumns lists the columns each kind must carry.
var RequiredColumns = map[Kind][]string{
	KindGeneration: {ColPublishTime, ColFuelType, ColGeneration, ColSettlementPeriod},
	KindDemand:     {ColStartTime, ColDemand},
	KindPrice:      {ColSettlementDate, ColSettlementPeriod, ColSystemSellPrice, ColSystemBuyPrice},
	KindCarbon:     {ColFrom, ColTo, ColForecast},
}

// RawRow is one upstream record keyed by column name.
type RawRow map[string]any

// RawSeries is one staged series before normalization.
type RawSeries struct {
	Kind   Kind
	Source string
	Rows   []RawRow
}

// Clone deep-copies the rows so concurrent normalizers never share maps.
func (s RawSeries) Clone() RawSeries {
	rows := make([]RawRow, len(s.Rows))
	for i, row := range s.Rows {
		copied := make(RawRow, len(row))
		for k, v := range row {
			copied[k] = v
		}
		rows[i] = copied
	}
	return RawSeries{Kind: s.Kind, Source: s.Source, Rows: rows}
}

// Reader extracts typed values from raw rows, failing with a SchemaError.
type Reader struct {
	Kind Kind
}

func (r Reader) value(row RawRow, index int, column string) (any, error) {
	value, ok := row[column]
	if !ok || value == nil {
		return nil, &SchemaError{Kind: r.Kind, Row: index, Column: column}
	}
	return value, nil
}

func (r Reader) invalid(index int, column string, value any) error {
	return &SchemaError{Kind: r.Kind, Row: index, Column: column, Reason: fmt.Sprintf("unexpected value %v (%T)", value, value)}
}

// String reads a text column. Timestamps are rendered in RFC 3339.
func (r Reader) String(row RawRow, index int, column string) (string, error) {
	value, err := r.value(row, index, column)
	if err != nil {
		return "", err
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", r.invalid(index, column, value)
	}
}

// Int reads an integral column. Floats must carry no fractional part.
func (r Reader) Int(row RawRow, index int, column string) (int64, error) {
	value, err := r.value(row, index, column)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return r.fromFloat(float64(v), index, column)
	case float64:
		return r.fromFloat(v, index, column)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if ferr != nil {
				return 0, r.invalid(index, column, value)
			}
			return r.fromFloat(f, index, column)
		}
		return parsed, nil
	default:
		return 0, r.invalid(index, column, value)
	}
}

func (r Reader) fromFloat(v float64, index int, column string) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, r.invalid(index, column, v)
	}
	return int64(v), nil
}

// Decimal reads a numeric column.
func (r Reader) Decimal(row RawRow, index int, column string) (decimal.Decimal, error) {
	value, err := r.value(row, index, column)
	if err != nil {
		return decimal.Zero, err
	}
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, r.invalid(index, column, value)
		}
		return decimal.NewFromFloat(v), nil
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, r.invalid(index, column, value)
		}
		return parsed, nil
	default:
		return decimal.Zero, r.invalid(index, column, value)
	}
}

// Has reports whether the column is present and non-null.
func (r Reader) Has(row RawRow, column string) bool {
	value, ok := row[column]
	return ok && value != nil
}
