package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	series "energy-tracker/internal/series/domain"
)

type generationKey struct {
	publishTime string
	fuelType    string
	period      int
}

// Store is an in-memory relational store for dry runs and tests. It applies
// the same conflict rules as the Postgres loader.
type Store struct {
	mu         sync.RWMutex
	demand     map[string]series.DemandRow
	cost       map[series.PeriodKey]series.PriceRow
	carbon     map[string]series.CarbonRow
	generation map[generationKey]series.GenerationRow
	failures   map[series.Kind]error
	observers  []series.LoadObserver
}

// NewStore constructs an empty store.
func NewStore(observers ...series.LoadObserver) *Store {
	return &Store{
		demand:     make(map[string]series.DemandRow),
		cost:       make(map[series.PeriodKey]series.PriceRow),
		carbon:     make(map[string]series.CarbonRow),
		generation: make(map[generationKey]series.GenerationRow),
		failures:   make(map[series.Kind]error),
		observers:  observers,
	}
}

// FailRelation makes the next loads of kind fail with err. A nil err clears it.
func (s *Store) FailRelation(kind series.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, kind)
		return
	}
	s.failures[kind] = err
}

// Load applies the batch in load order: demand and cost overwrite on
// conflict, carbon and generation keep the first write. Reconciliation
// fillers never replace a stored row.
func (s *Store) Load(ctx context.Context, batch series.Batch) (series.LoadSummary, error) {
	runID := series.RunIDFromContext(ctx)
	var summary series.LoadSummary
	var errs []error
	for _, kind := range series.LoadOrder {
		rows := batch.Len(kind)
		if rows == 0 {
			summary.Relations = append(summary.Relations, series.RelationLoad{Kind: kind, Relation: kind.Relation(), Skipped: true})
			continue
		}
		start := time.Now()
		if err := s.apply(kind, batch); err != nil {
			loadErr := &series.LoadError{Relation: kind.Relation(), Rows: rows, Err: err}
			summary.Relations = append(summary.Relations, series.RelationLoad{Kind: kind, Relation: kind.Relation(), Rows: rows, Err: loadErr})
			errs = append(errs, loadErr)
			continue
		}
		duration := time.Since(start)
		summary.Relations = append(summary.Relations, series.RelationLoad{Kind: kind, Relation: kind.Relation(), Rows: rows, Duration: duration})
		for _, observer := range s.observers {
			observer.RelationLoaded(ctx, series.LoadEvent{RunID: runID, Kind: kind, Relation: kind.Relation(), Rows: rows, Duration: duration})
		}
	}
	return summary, errors.Join(errs...)
}

func (s *Store) apply(kind series.Kind, batch series.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[kind]; err != nil {
		return err
	}
	switch kind {
	case series.KindDemand:
		for _, row := range batch.Demand.Rows {
			if _, ok := s.demand[row.StartTime]; ok && batch.Fillers.IsDemand(row.StartTime) {
				continue
			}
			s.demand[row.StartTime] = row
		}
	case series.KindPrice:
		for _, row := range batch.Price.Rows {
			if _, ok := s.cost[row.Key()]; ok && batch.Fillers.IsPrice(row.Key()) {
				continue
			}
			s.cost[row.Key()] = row
		}
	case series.KindCarbon:
		for _, row := range batch.Carbon.Rows {
			if _, ok := s.carbon[row.IntervalStart]; !ok {
				s.carbon[row.IntervalStart] = row
			}
		}
	case series.KindGeneration:
		for _, row := range batch.Generation.Rows {
			if _, ok := s.demand[row.PublishTime]; !ok {
				return errors.New("foreign key violation: generation.publish_time not in demand")
			}
		}
		for _, row := range batch.Generation.Rows {
			key := generationKey{publishTime: row.PublishTime, fuelType: row.FuelType, period: row.SettlementPeriod}
			if _, ok := s.generation[key]; !ok {
				s.generation[key] = row
			}
		}
	default:
		return series.ErrUnknownKind
	}
	return nil
}

// Demand returns the demand relation ordered by start time.
func (s *Store) Demand() []series.DemandRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]series.DemandRow, 0, len(s.demand))
	for _, row := range s.demand {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// Cost returns the cost relation ordered by date and period.
func (s *Store) Cost() []series.PriceRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]series.PriceRow, 0, len(s.cost))
	for _, row := range s.cost {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SettlementDate != out[j].SettlementDate {
			return out[i].SettlementDate < out[j].SettlementDate
		}
		return out[i].SettlementPeriod < out[j].SettlementPeriod
	})
	return out
}

// Carbon returns the carbon relation ordered by interval start.
func (s *Store) Carbon() []series.CarbonRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]series.CarbonRow, 0, len(s.carbon))
	for _, row := range s.carbon {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IntervalStart < out[j].IntervalStart })
	return out
}

// Generation returns the generation relation ordered by time, fuel and period.
func (s *Store) Generation() []series.GenerationRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]series.GenerationRow, 0, len(s.generation))
	for _, row := range s.generation {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishTime != out[j].PublishTime {
			return out[i].PublishTime < out[j].PublishTime
		}
		if out[i].FuelType != out[j].FuelType {
			return out[i].FuelType < out[j].FuelType
		}
		return out[i].SettlementPeriod < out[j].SettlementPeriod
	})
	return out
}
