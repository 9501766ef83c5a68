package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	series "energy-tracker/internal/series/domain"
)

const (
	defaultBatchSize = 1000
	// maxBindParams is the Postgres limit on parameters per statement.
	maxBindParams = 65535
)

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tables names the four target relations.
type Tables struct {
	Demand     string
	Cost       string
	Carbon     string
	Generation string
}

// DefaultTables are the relation names created by migrations/001_energy.sql.
var DefaultTables = Tables{
	Demand:     "demand",
	Cost:       "cost",
	Carbon:     "carbon",
	Generation: "generation",
}

// Loader upserts reconciled series with batched multi-row statements.
type Loader struct {
	db        Execer
	tables    Tables
	batchSize int
	observers []series.LoadObserver
	logger    *log.Logger
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithTables overrides relation names; empty fields keep the default.
func WithTables(tables Tables) LoaderOption {
	return func(l *Loader) {
		if tables.Demand != "" {
			l.tables.Demand = tables.Demand
		}
		if tables.Cost != "" {
			l.tables.Cost = tables.Cost
		}
		if tables.Carbon != "" {
			l.tables.Carbon = tables.Carbon
		}
		if tables.Generation != "" {
			l.tables.Generation = tables.Generation
		}
	}
}

// WithBatchSize caps the rows sent per statement.
func WithBatchSize(size int) LoaderOption {
	return func(l *Loader) {
		if size > 0 {
			l.batchSize = size
		}
	}
}

// WithObserver registers a load event observer.
func WithObserver(observer series.LoadObserver) LoaderOption {
	return func(l *Loader) {
		if observer != nil {
			l.observers = append(l.observers, observer)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader constructs a loader over a single connection.
func NewLoader(db Execer, opts ...LoaderOption) (*Loader, error) {
	if db == nil {
		return nil, errors.New("series loader: nil db")
	}
	l := &Loader{
		db:        db,
		tables:    DefaultTables,
		batchSize: defaultBatchSize,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// fillerConflict keeps stored values when a reconciliation filler collides.
const fillerConflict = "ON CONFLICT DO NOTHING"

type relationBatch struct {
	kind     series.Kind
	table    string
	columns  []string
	conflict string
	rows     [][]any
	fillers  [][]any
}

func (r relationBatch) size() int { return len(r.rows) + len(r.fillers) }

func (l *Loader) relations(batch series.Batch) []relationBatch {
	out := make([]relationBatch, 0, len(series.LoadOrder))
	for _, kind := range series.LoadOrder {
		switch kind {
		case series.KindDemand:
			rel := relationBatch{
				kind:     kind,
				table:    l.tables.Demand,
				columns:  []string{"publish_time", "demand_amt"},
				conflict: "ON CONFLICT (publish_time) DO UPDATE SET demand_amt = EXCLUDED.demand_amt",
			}
			if batch.Demand != nil {
				rows := dedupeLast(batch.Demand.Rows, func(r series.DemandRow) string { return r.StartTime })
				for _, row := range rows {
					if batch.Fillers.IsDemand(row.StartTime) {
						rel.fillers = append(rel.fillers, row.Values())
						continue
					}
					rel.rows = append(rel.rows, row.Values())
				}
			}
			out = append(out, rel)
		case series.KindPrice:
			rel := relationBatch{
				kind:     kind,
				table:    l.tables.Cost,
				columns:  []string{"publish_date", "settlement_period", "sell_price", "buy_price"},
				conflict: "ON CONFLICT (publish_date, settlement_period) DO UPDATE SET sell_price = EXCLUDED.sell_price, buy_price = EXCLUDED.buy_price",
			}
			if batch.Price != nil {
				rows := dedupeLast(batch.Price.Rows, series.PriceRow.Key)
				for _, row := range rows {
					if batch.Fillers.IsPrice(row.Key()) {
						rel.fillers = append(rel.fillers, row.Values())
						continue
					}
					rel.rows = append(rel.rows, row.Values())
				}
			}
			out = append(out, rel)
		case series.KindCarbon:
			rel := relationBatch{
				kind:     kind,
				table:    l.tables.Carbon,
				columns:  []string{"publish_time", "forecast", "carbon_level"},
				conflict: "ON CONFLICT DO NOTHING",
			}
			if batch.Carbon != nil {
				for _, row := range batch.Carbon.Rows {
					rel.rows = append(rel.rows, row.Values())
				}
			}
			out = append(out, rel)
		case series.KindGeneration:
			rel := relationBatch{
				kind:     kind,
				table:    l.tables.Generation,
				columns:  []string{"publish_time", "publish_date", "fuel_type", "gain_loss", "generated", "settlement_period"},
				conflict: "ON CONFLICT DO NOTHING",
			}
			if batch.Generation != nil {
				for _, row := range batch.Generation.Rows {
					rel.rows = append(rel.rows, row.Values())
				}
			}
			out = append(out, rel)
		}
	}
	return out
}

// Load writes demand, price, carbon and generation in that order. Empty
// relations send no statement. Reconciliation fillers are sent insert-only
// after the real rows of their relation. A rejected relation does not stop the ones
// after it and is not rolled back by them; all failures are joined.
func (l *Loader) Load(ctx context.Context, batch series.Batch) (series.LoadSummary, error) {
	if l == nil || l.db == nil {
		return series.LoadSummary{}, errors.New("series loader: nil db")
	}
	runID := series.RunIDFromContext(ctx)

	var summary series.LoadSummary
	var errs []error
	for _, rel := range l.relations(batch) {
		rows := rel.size()
		if rows == 0 {
			summary.Relations = append(summary.Relations, series.RelationLoad{Kind: rel.kind, Relation: rel.table, Skipped: true})
			l.logger.Printf("load relation skipped: run=%s relation=%s reason=empty", runID, rel.table)
			continue
		}

		start := time.Now()
		err := l.exec(ctx, rel)
		duration := time.Since(start)
		if err != nil {
			loadErr := &series.LoadError{Relation: rel.table, Rows: rows, Err: err}
			summary.Relations = append(summary.Relations, series.RelationLoad{
				Kind:     rel.kind,
				Relation: rel.table,
				Rows:     rows,
				Duration: duration,
				Err:      loadErr,
			})
			l.logger.Printf("load relation failed: run=%s relation=%s rows=%d err=%v", runID, rel.table, rows, err)
			errs = append(errs, loadErr)
			continue
		}

		summary.Relations = append(summary.Relations, series.RelationLoad{
			Kind:     rel.kind,
			Relation: rel.table,
			Rows:     rows,
			Duration: duration,
		})
		event := series.LoadEvent{RunID: runID, Kind: rel.kind, Relation: rel.table, Rows: rows, Duration: duration}
		for _, observer := range l.observers {
			observer.RelationLoaded(ctx, event)
		}
	}
	return summary, errors.Join(errs...)
}

func (l *Loader) exec(ctx context.Context, rel relationBatch) error {
	if err := l.execRows(ctx, rel.table, rel.columns, rel.rows, rel.conflict); err != nil {
		return err
	}
	if err := l.execRows(ctx, rel.table, rel.columns, rel.fillers, fillerConflict); err != nil {
		return fmt.Errorf("fillers: %w", err)
	}
	return nil
}

func (l *Loader) execRows(ctx context.Context, table string, columns []string, rows [][]any, conflict string) error {
	size := l.batchSize
	if limit := maxBindParams / len(columns); size > limit {
		size = limit
	}
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			args = append(args, row...)
		}
		query := buildInsert(table, columns, len(chunk), conflict)
		if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func buildInsert(table string, columns []string, rows int, conflict string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
	arg := 1
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteByte(')')
	}
	if conflict != "" {
		b.WriteByte(' ')
		b.WriteString(conflict)
	}
	return b.String()
}

// dedupeLast keeps the last row per key in order of those last occurrences.
// ON CONFLICT DO UPDATE rejects a statement that touches one key twice.
func dedupeLast[T any, K comparable](rows []T, key func(T) K) []T {
	last := make(map[K]int, len(rows))
	for i, row := range rows {
		last[key(row)] = i
	}
	if len(last) == len(rows) {
		return rows
	}
	out := make([]T, 0, len(last))
	for i, row := range rows {
		if last[key(row)] == i {
			out = append(out, row)
		}
	}
	return out
}
