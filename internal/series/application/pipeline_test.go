package application

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"energy-tracker/internal/observability/metrics"
	series "energy-tracker/internal/series/domain"
	"energy-tracker/internal/series/infrastructure/memory"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	now := c.now
	c.now = c.now.Add(time.Second)
	return now
}

type stubLoader struct {
	batches []series.Batch
	err     error
}

func (s *stubLoader) Load(_ context.Context, batch series.Batch) (series.LoadSummary, error) {
	s.batches = append(s.batches, batch)
	return series.LoadSummary{}, s.err
}

func stagedRaws() []series.RawSeries {
	return []series.RawSeries{
		{Kind: series.KindGeneration, Source: "generation.feather", Rows: []series.RawRow{
			{"publishTime": "2024-08-19T00:00:00Z", "fuelType": "WIND", "generation": int64(300), "settlementPeriod": int64(2)},
			{"publishTime": "2024-08-19T00:05:00Z", "fuelType": "WIND", "generation": int64(310), "settlementPeriod": int64(2)},
		}},
		{Kind: series.KindDemand, Source: "demand.feather", Rows: []series.RawRow{
			{"startTime": "2024-08-19T00:00:00Z", "demand": int64(24000)},
		}},
		{Kind: series.KindCarbon, Source: "carbon.feather", Rows: []series.RawRow{
			{"from": "2024-08-19T00:00Z", "to": "2024-08-19T00:30Z", "forecast": int64(120)},
		}},
	}
}

func TestNewPipelineRequiresLoader(t *testing.T) {
	if _, err := NewPipeline(nil); err == nil {
		t.Fatalf("expected error for nil loader")
	}
}

func TestNormalizeKindFailureDoesNotCascade(t *testing.T) {
	p, err := NewPipeline(&stubLoader{}, WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	raws := stagedRaws()
	delete(raws[1].Rows[0], "demand")

	batch, errs := p.Normalize(context.Background(), raws)
	if !errors.Is(errs[series.KindDemand], series.ErrSchemaMismatch) {
		t.Fatalf("expected demand schema mismatch, got %v", errs)
	}
	if len(errs) != 1 {
		t.Fatalf("expected only demand to fail, got %v", errs)
	}
	if batch.Demand != nil {
		t.Fatalf("failed kind must be absent from the batch")
	}
	if batch.Len(series.KindGeneration) != 2 || batch.Len(series.KindCarbon) != 6 {
		t.Fatalf("siblings not normalized: gen=%d carbon=%d", batch.Len(series.KindGeneration), batch.Len(series.KindCarbon))
	}
}

func TestNormalizeConcatenatesSameKind(t *testing.T) {
	p, _ := NewPipeline(&stubLoader{}, WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	raws := []series.RawSeries{
		{Kind: series.KindDemand, Source: "demand-a.feather", Rows: []series.RawRow{{"startTime": "2024-08-19T00:00:00Z", "demand": int64(1)}}},
		{Kind: series.KindDemand, Source: "demand-b.feather", Rows: []series.RawRow{{"startTime": "2024-08-19T00:05:00Z", "demand": int64(2)}}},
		{Kind: series.KindUnknown, Source: "notes.feather"},
	}
	batch, errs := p.Normalize(context.Background(), raws)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if batch.Len(series.KindDemand) != 2 {
		t.Fatalf("expected concatenated demand, got %d", batch.Len(series.KindDemand))
	}
}

func TestRunLoadsReconciledBatch(t *testing.T) {
	var logs bytes.Buffer
	loader := &stubLoader{}
	m := metrics.New()
	clock := &fixedClock{now: time.Date(2024, 8, 19, 1, 0, 0, 0, time.UTC)}
	p, err := NewPipeline(loader,
		WithLogger(log.New(&logs, "", 0)),
		WithMetrics(m),
		WithClock(clock),
		WithRunIDFactory(func() string { return "run-1" }),
	)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	result, err := p.Run(context.Background(), stagedRaws())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.RunID != "run-1" || result.Duration() != time.Second {
		t.Fatalf("unexpected run identity: id=%s duration=%s", result.RunID, result.Duration())
	}
	if result.Status() != metrics.ResultSuccess {
		t.Fatalf("expected success, got %s", result.Status())
	}
	if len(loader.batches) != 1 {
		t.Fatalf("expected one load, got %d", len(loader.batches))
	}
	loaded := loader.batches[0]
	if loaded.Len(series.KindDemand) != 2 || loaded.Len(series.KindPrice) != 2 {
		t.Fatalf("expected fillers in loaded batch: demand=%d price=%d", loaded.Len(series.KindDemand), loaded.Len(series.KindPrice))
	}
	if result.Staged[series.KindGeneration] != 2 || result.Normalized[series.KindCarbon] != 6 {
		t.Fatalf("unexpected counts: staged=%v normalized=%v", result.Staged, result.Normalized)
	}
	if !strings.Contains(logs.String(), "pipeline run finished: run=run-1 status=success") {
		t.Fatalf("missing run log line: %s", logs.String())
	}
}

func TestRunReportsLoadError(t *testing.T) {
	loader := &stubLoader{err: errors.New("boom")}
	p, _ := NewPipeline(loader, WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	result, err := p.Run(context.Background(), stagedRaws())
	if err == nil || result.Err == nil {
		t.Fatalf("expected load error to surface")
	}
	if result.Status() != metrics.ResultError {
		t.Fatalf("expected error status, got %s", result.Status())
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	p, _ := NewPipeline(store, WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), stagedRaws()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if len(store.Demand()) != 2 || len(store.Cost()) != 2 || len(store.Carbon()) != 6 || len(store.Generation()) != 2 {
		t.Fatalf("unexpected store sizes: demand=%d cost=%d carbon=%d generation=%d",
			len(store.Demand()), len(store.Cost()), len(store.Carbon()), len(store.Generation()))
	}
}

func TestRunPartialLoadFailure(t *testing.T) {
	store := memory.NewStore()
	store.FailRelation(series.KindCarbon, errors.New("carbon rejected"))
	p, _ := NewPipeline(store, WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	result, err := p.Run(context.Background(), stagedRaws())
	if !errors.Is(err, series.ErrLoadFailure) {
		t.Fatalf("expected load failure, got %v", err)
	}
	if result.Status() != metrics.ResultPartial {
		t.Fatalf("expected partial status, got %s", result.Status())
	}
	if len(store.Generation()) != 2 {
		t.Fatalf("generation must load after carbon failure")
	}
}

func TestRunNormalizeFailureKeepsStoredValues(t *testing.T) {
	store := memory.NewStore()
	p, _ := NewPipeline(store, WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	raws := func() []series.RawSeries {
		return []series.RawSeries{
			{Kind: series.KindGeneration, Rows: []series.RawRow{
				{"publishTime": "2024-08-19T11:00:00Z", "fuelType": "WIND", "generation": int64(300), "settlementPeriod": int64(24)},
			}},
			{Kind: series.KindDemand, Rows: []series.RawRow{
				{"startTime": "2024-08-19T11:00:00Z", "demand": int64(25000)},
			}},
			{Kind: series.KindPrice, Rows: []series.RawRow{
				{"settlementDate": "2024-08-19", "settlementPeriod": int64(24), "systemSellPrice": 70.5, "systemBuyPrice": 70.5},
			}},
		}
	}
	if _, err := p.Run(context.Background(), raws()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	broken := raws()
	delete(broken[1].Rows[0], "demand")
	delete(broken[2].Rows[0], "systemBuyPrice")
	result, err := p.Run(context.Background(), broken)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.Status() != metrics.ResultPartial || len(result.NormalizeErrors) != 2 {
		t.Fatalf("expected partial run with two normalize errors, got %s %v", result.Status(), result.NormalizeErrors)
	}
	if len(result.Reconcile.PriceFillers) != 1 || len(result.Reconcile.DemandFillers) != 1 {
		t.Fatalf("expected fillers for the failed series: %+v", result.Reconcile)
	}

	cost := store.Cost()
	if len(cost) != 1 || cost[0].SellPrice.String() != "70.5" || cost[0].BuyPrice.String() != "70.5" {
		t.Fatalf("stored price overwritten: %+v", cost)
	}
	demand := store.Demand()
	if len(demand) != 1 || demand[0].Demand != 25000 {
		t.Fatalf("stored demand overwritten: %+v", demand)
	}
}
