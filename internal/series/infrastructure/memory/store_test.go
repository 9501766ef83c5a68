package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	series "energy-tracker/internal/series/domain"
)

func TestStoreConflictRules(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first := series.Batch{
		Demand: series.NewDemandSeries([]series.DemandRow{{StartTime: "2024-08-18T23:00:00Z", Demand: 100}}),
		Price: series.NewPriceSeries([]series.PriceRow{
			{SettlementDate: "2024-08-18", SettlementPeriod: 1, SellPrice: decimal.NewFromInt(50), BuyPrice: decimal.NewFromInt(50)},
		}),
		Carbon: series.NewCarbonSeries([]series.CarbonRow{{IntervalStart: "2024-08-18T23:00:00Z", Forecast: 20, CarbonLevel: series.CarbonVeryLow}}),
		Generation: series.NewGenerationSeries([]series.GenerationRow{
			{PublishTime: "2024-08-18T23:00:00Z", PublishDate: "2024-08-18", FuelType: "CCGT", GainLoss: "+", Generation: 5000, SettlementPeriod: 1},
		}),
	}
	second := series.Batch{
		Demand: series.NewDemandSeries([]series.DemandRow{{StartTime: "2024-08-18T23:00:00Z", Demand: 150}}),
		Price: series.NewPriceSeries([]series.PriceRow{
			{SettlementDate: "2024-08-18", SettlementPeriod: 1, SellPrice: decimal.NewFromInt(60), BuyPrice: decimal.NewFromInt(61)},
		}),
		Carbon: series.NewCarbonSeries([]series.CarbonRow{{IntervalStart: "2024-08-18T23:00:00Z", Forecast: 300, CarbonLevel: series.CarbonVeryHigh}}),
		Generation: series.NewGenerationSeries([]series.GenerationRow{
			{PublishTime: "2024-08-18T23:00:00Z", PublishDate: "2024-08-18", FuelType: "CCGT", GainLoss: "+", Generation: 9999, SettlementPeriod: 1},
		}),
	}

	if _, err := store.Load(ctx, first); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := store.Load(ctx, second); err != nil {
		t.Fatalf("second load: %v", err)
	}

	if got := store.Demand(); len(got) != 1 || got[0].Demand != 150 {
		t.Fatalf("expected demand overwritten to 150, got %+v", got)
	}
	if got := store.Cost(); len(got) != 1 || !got[0].BuyPrice.Equal(decimal.NewFromInt(61)) {
		t.Fatalf("expected cost overwritten, got %+v", got)
	}
	if got := store.Carbon(); len(got) != 1 || got[0].Forecast != 20 {
		t.Fatalf("expected first carbon write to win, got %+v", got)
	}
	if got := store.Generation(); len(got) != 1 || got[0].Generation != 5000 {
		t.Fatalf("expected first generation write to win, got %+v", got)
	}
}

func TestStoreGenerationRequiresDemandParent(t *testing.T) {
	store := NewStore()
	batch := series.Batch{
		Generation: series.NewGenerationSeries([]series.GenerationRow{
			{PublishTime: "2024-08-18T23:05:00Z", PublishDate: "2024-08-18", FuelType: "WIND", GainLoss: "+", Generation: 10, SettlementPeriod: 1},
		}),
	}
	_, err := store.Load(context.Background(), batch)
	if !errors.Is(err, series.ErrLoadFailure) {
		t.Fatalf("expected load failure without demand parent, got %v", err)
	}
	if len(store.Generation()) != 0 {
		t.Fatalf("expected no generation rows after failure")
	}
}

func TestStoreFailureDoesNotRollBackEarlierRelations(t *testing.T) {
	store := NewStore()
	store.FailRelation(series.KindCarbon, errors.New("disk full"))
	batch := series.Batch{
		Demand: series.NewDemandSeries([]series.DemandRow{{StartTime: "2024-08-18T23:00:00Z", Demand: 1}}),
		Carbon: series.NewCarbonSeries([]series.CarbonRow{{IntervalStart: "2024-08-18T23:00:00Z", Forecast: 1, CarbonLevel: series.CarbonVeryLow}}),
		Generation: series.NewGenerationSeries([]series.GenerationRow{
			{PublishTime: "2024-08-18T23:00:00Z", PublishDate: "2024-08-18", FuelType: "WIND", GainLoss: "+", Generation: 10, SettlementPeriod: 1},
		}),
	}
	summary, err := store.Load(context.Background(), batch)
	if err == nil {
		t.Fatalf("expected carbon failure")
	}
	if len(store.Demand()) != 1 || len(store.Generation()) != 1 || len(store.Carbon()) != 0 {
		t.Fatalf("unexpected relation state after partial failure")
	}
	if failed := summary.Failed(); len(failed) != 1 || failed[0].Kind != series.KindCarbon {
		t.Fatalf("expected only carbon failed, got %+v", failed)
	}
}

func TestStoreFillersDoNotReplaceStoredRows(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	key := series.PeriodKey{Date: "2024-08-19", Period: 24}
	stored := series.Batch{
		Demand: series.NewDemandSeries([]series.DemandRow{{StartTime: "2024-08-19T11:00:00Z", Demand: 25000}}),
		Price: series.NewPriceSeries([]series.PriceRow{
			{SettlementDate: key.Date, SettlementPeriod: key.Period, SellPrice: decimal.RequireFromString("70.5"), BuyPrice: decimal.RequireFromString("70.5")},
		}),
	}
	if _, err := store.Load(ctx, stored); err != nil {
		t.Fatalf("first load: %v", err)
	}

	fillers := series.Batch{
		Demand: series.NewDemandSeries([]series.DemandRow{
			{StartTime: "2024-08-19T11:00:00Z", Demand: 0},
			{StartTime: "2024-08-19T11:05:00Z", Demand: 0},
		}),
		Price: series.NewPriceSeries([]series.PriceRow{
			{SettlementDate: key.Date, SettlementPeriod: key.Period, SellPrice: decimal.Zero, BuyPrice: decimal.Zero},
		}),
		Fillers: series.Fillers{
			Demand: series.NewKeySet("2024-08-19T11:00:00Z", "2024-08-19T11:05:00Z"),
			Price:  series.NewKeySet(key),
		},
	}
	if _, err := store.Load(ctx, fillers); err != nil {
		t.Fatalf("filler load: %v", err)
	}

	demand := store.Demand()
	if len(demand) != 2 || demand[0].Demand != 25000 || demand[1].Demand != 0 {
		t.Fatalf("stored demand replaced by filler: %+v", demand)
	}
	cost := store.Cost()
	if len(cost) != 1 || !cost[0].SellPrice.Equal(decimal.RequireFromString("70.5")) {
		t.Fatalf("stored price replaced by filler: %+v", cost)
	}
}
