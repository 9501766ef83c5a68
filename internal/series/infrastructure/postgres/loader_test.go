package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	series "energy-tracker/internal/series/domain"
)

type execCall struct {
	query string
	args  []any
}

type recordingExecer struct {
	calls  []execCall
	failOn string
}

func (e *recordingExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	e.calls = append(e.calls, execCall{query: query, args: args})
	if e.failOn != "" && strings.Contains(query, "INSERT INTO "+e.failOn+" ") {
		return nil, errors.New("constraint violation")
	}
	return driverResult(len(args)), nil
}

type driverResult int

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

type recordingObserver struct {
	events []series.LoadEvent
}

func (o *recordingObserver) RelationLoaded(_ context.Context, event series.LoadEvent) {
	o.events = append(o.events, event)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func sampleBatch() series.Batch {
	return series.Batch{
		Generation: series.NewGenerationSeries([]series.GenerationRow{
			{PublishTime: "2024-08-18T23:00:00Z", PublishDate: "2024-08-18", FuelType: "WIND", GainLoss: "+", Generation: 200, SettlementPeriod: 1},
			{PublishTime: "2024-08-18T23:05:00Z", PublishDate: "2024-08-18", FuelType: "INTFR", GainLoss: "-", Generation: -100, SettlementPeriod: 1},
		}),
		Demand: series.NewDemandSeries([]series.DemandRow{
			{StartTime: "2024-08-18T23:00:00Z", Demand: 23000},
			{StartTime: "2024-08-18T23:05:00Z", Demand: 0},
		}),
		Price: series.NewPriceSeries([]series.PriceRow{
			{SettlementDate: "2024-08-18", SettlementPeriod: 1, SellPrice: decimal.RequireFromString("70.5"), BuyPrice: decimal.RequireFromString("70.5")},
		}),
		Carbon: series.NewCarbonSeries(nil),
	}
}

func TestLoaderOrderAndConflictClauses(t *testing.T) {
	db := &recordingExecer{}
	observer := &recordingObserver{}
	loader, err := NewLoader(db, WithObserver(observer), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	ctx := series.WithRunID(context.Background(), "run-1")
	summary, err := loader.Load(ctx, sampleBatch())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(db.calls) != 3 {
		t.Fatalf("expected 3 statements (carbon empty), got %d", len(db.calls))
	}
	wantPrefixes := []string{
		"INSERT INTO demand (publish_time, demand_amt) VALUES ($1, $2), ($3, $4) ON CONFLICT (publish_time) DO UPDATE SET demand_amt = EXCLUDED.demand_amt",
		"INSERT INTO cost (publish_date, settlement_period, sell_price, buy_price) VALUES ($1, $2, $3, $4) ON CONFLICT (publish_date, settlement_period) DO UPDATE",
		"INSERT INTO generation (publish_time, publish_date, fuel_type, gain_loss, generated, settlement_period) VALUES ($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12) ON CONFLICT DO NOTHING",
	}
	for i, want := range wantPrefixes {
		if !strings.HasPrefix(db.calls[i].query, want) {
			t.Fatalf("statement %d mismatch:\n got=%s\nwant=%s", i, db.calls[i].query, want)
		}
	}
	if len(db.calls[2].args) != 12 {
		t.Fatalf("expected 12 generation args, got %d", len(db.calls[2].args))
	}
	if db.calls[2].args[3] != "+" || db.calls[2].args[9] != "-" {
		t.Fatalf("expected gain/loss args to be forwarded, got %v", db.calls[2].args)
	}

	if len(summary.Relations) != 4 {
		t.Fatalf("expected 4 relation outcomes, got %d", len(summary.Relations))
	}
	if !summary.Relations[2].Skipped || summary.Relations[2].Kind != series.KindCarbon {
		t.Fatalf("expected carbon to be skipped, got %+v", summary.Relations[2])
	}
	if len(observer.events) != 3 {
		t.Fatalf("expected 3 load events, got %d", len(observer.events))
	}
	if observer.events[0].Relation != "demand" || observer.events[0].Rows != 2 || observer.events[0].RunID != "run-1" {
		t.Fatalf("unexpected first event: %+v", observer.events[0])
	}
}

func TestLoaderSkipsEmptyBatch(t *testing.T) {
	db := &recordingExecer{}
	loader, err := NewLoader(db, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	summary, err := loader.Load(context.Background(), series.Batch{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(db.calls) != 0 {
		t.Fatalf("expected no statements, got %d", len(db.calls))
	}
	for _, rel := range summary.Relations {
		if !rel.Skipped {
			t.Fatalf("expected %s skipped", rel.Relation)
		}
	}
}

func TestLoaderContinuesAfterRelationFailure(t *testing.T) {
	db := &recordingExecer{failOn: "cost"}
	observer := &recordingObserver{}
	loader, err := NewLoader(db, WithObserver(observer), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	summary, err := loader.Load(context.Background(), sampleBatch())
	if !errors.Is(err, series.ErrLoadFailure) {
		t.Fatalf("expected ErrLoadFailure, got %v", err)
	}
	var loadErr *series.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if loadErr.Relation != "cost" || loadErr.Rows != 1 {
		t.Fatalf("unexpected load error: %+v", loadErr)
	}
	if len(db.calls) != 3 {
		t.Fatalf("expected generation to be attempted after cost failure, got %d calls", len(db.calls))
	}
	if summary.Loaded(series.KindGeneration) != 2 || summary.Loaded(series.KindPrice) != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Failed()) != 1 {
		t.Fatalf("expected one failed relation, got %d", len(summary.Failed()))
	}
	if len(observer.events) != 2 {
		t.Fatalf("expected events only for successful relations, got %d", len(observer.events))
	}
}

func TestLoaderChunksLargeRelations(t *testing.T) {
	rows := make([]series.DemandRow, 0, 5)
	for _, ts := range []string{"2024-08-18T23:00:00Z", "2024-08-18T23:05:00Z", "2024-08-18T23:10:00Z", "2024-08-18T23:15:00Z", "2024-08-18T23:20:00Z"} {
		rows = append(rows, series.DemandRow{StartTime: ts, Demand: 1})
	}
	db := &recordingExecer{}
	loader, err := NewLoader(db, WithBatchSize(2), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	if _, err := loader.Load(context.Background(), series.Batch{Demand: series.NewDemandSeries(rows)}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(db.calls) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(db.calls))
	}
	if len(db.calls[2].args) != 2 {
		t.Fatalf("expected last chunk with one row, got %d args", len(db.calls[2].args))
	}
}

func TestLoaderCollapsesDuplicateUpsertKeys(t *testing.T) {
	db := &recordingExecer{}
	loader, err := NewLoader(db, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	batch := series.Batch{Demand: series.NewDemandSeries([]series.DemandRow{
		{StartTime: "2024-08-18T23:00:00Z", Demand: 10},
		{StartTime: "2024-08-18T23:05:00Z", Demand: 20},
		{StartTime: "2024-08-18T23:00:00Z", Demand: 30},
	})}
	if _, err := loader.Load(context.Background(), batch); err != nil {
		t.Fatalf("load: %v", err)
	}
	args := db.calls[0].args
	if len(args) != 4 {
		t.Fatalf("expected 2 rows after collapse, got %d args", len(args))
	}
	if args[0] != "2024-08-18T23:05:00Z" || args[3] != int64(30) {
		t.Fatalf("expected last write to win, got %v", args)
	}
}

func TestLoaderCustomTables(t *testing.T) {
	db := &recordingExecer{}
	loader, err := NewLoader(db, WithTables(Tables{Demand: "staging.demand"}), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	batch := series.Batch{Demand: series.NewDemandSeries([]series.DemandRow{{StartTime: "2024-08-18T23:00:00Z", Demand: 1}})}
	if _, err := loader.Load(context.Background(), batch); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasPrefix(db.calls[0].query, "INSERT INTO staging.demand ") {
		t.Fatalf("expected custom table, got %s", db.calls[0].query)
	}
}

func TestNewLoaderRejectsNilDB(t *testing.T) {
	if _, err := NewLoader(nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}

func TestLoaderWritesFillersInsertOnly(t *testing.T) {
	db := &recordingExecer{}
	observer := &recordingObserver{}
	loader, err := NewLoader(db, WithObserver(observer), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	filler := series.PeriodKey{Date: "2024-08-19", Period: 24}
	batch := series.Batch{
		Demand: series.NewDemandSeries([]series.DemandRow{
			{StartTime: "2024-08-19T11:00:00Z", Demand: 25000},
			{StartTime: "2024-08-19T11:05:00Z", Demand: 0},
		}),
		Price: series.NewPriceSeries([]series.PriceRow{
			{SettlementDate: filler.Date, SettlementPeriod: filler.Period, SellPrice: decimal.Zero, BuyPrice: decimal.Zero},
		}),
		Fillers: series.Fillers{
			Demand: series.NewKeySet("2024-08-19T11:05:00Z"),
			Price:  series.NewKeySet(filler),
		},
	}
	summary, err := loader.Load(context.Background(), batch)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(db.calls) != 3 {
		t.Fatalf("expected demand rows, demand fillers and price fillers, got %d statements", len(db.calls))
	}
	if !strings.Contains(db.calls[0].query, "DO UPDATE") || len(db.calls[0].args) != 2 {
		t.Fatalf("unexpected demand upsert: %s %v", db.calls[0].query, db.calls[0].args)
	}
	for _, call := range db.calls[1:] {
		if !strings.HasSuffix(call.query, "ON CONFLICT DO NOTHING") {
			t.Fatalf("filler statement must be insert-only: %s", call.query)
		}
	}
	if !strings.HasPrefix(db.calls[2].query, "INSERT INTO cost ") {
		t.Fatalf("expected cost filler statement, got %s", db.calls[2].query)
	}
	if summary.Loaded(series.KindDemand) != 2 || summary.Loaded(series.KindPrice) != 1 {
		t.Fatalf("fillers must count as loaded rows: %+v", summary.Relations)
	}
	if len(observer.events) != 2 || observer.events[0].Rows != 2 {
		t.Fatalf("unexpected events: %+v", observer.events)
	}
}
