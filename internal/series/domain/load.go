package series

import (
	"context"
	"time"
)

// Loader writes a reconciled batch to the relational store.
type Loader interface {
	Load(ctx context.Context, batch Batch) (LoadSummary, error)
}

// LoadEvent summarizes one successfully written relation.
type LoadEvent struct {
	RunID    string
	Kind     Kind
	Relation string
	Rows     int
	Duration time.Duration
}

// LoadObserver receives one event per relation written.
type LoadObserver interface {
	RelationLoaded(ctx context.Context, event LoadEvent)
}

// RelationLoad is the outcome of one relation in a load.
type RelationLoad struct {
	Kind     Kind
	Relation string
	Rows     int
	Skipped  bool
	Duration time.Duration
	Err      error
}

// LoadSummary lists relation outcomes in load order.
type LoadSummary struct {
	Relations []RelationLoad
}

// Loaded returns the rows written for kind.
func (s LoadSummary) Loaded(kind Kind) int {
	for _, rel := range s.Relations {
		if rel.Kind == kind && rel.Err == nil {
			return rel.Rows
		}
	}
	return 0
}

// Failed lists the relations that were rejected.
func (s LoadSummary) Failed() []RelationLoad {
	var out []RelationLoad
	for _, rel := range s.Relations {
		if rel.Err != nil {
			out = append(out, rel)
		}
	}
	return out
}

type contextKey string

const contextKeyRunID contextKey = "series.run_id"

// WithRunID attaches the run id to ctx so load events can carry it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextKeyRunID, runID)
}

// RunIDFromContext returns the run id stored in ctx.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	runID, _ := ctx.Value(contextKeyRunID).(string)
	return runID
}
