package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"energy-tracker/internal/observability/metrics"
	series "energy-tracker/internal/series/domain"
	settlement "energy-tracker/internal/settlement/domain"
)

// RunResult describes one pipeline run.
type RunResult struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Staged          map[series.Kind]int
	Normalized      map[series.Kind]int
	NormalizeErrors map[series.Kind]error
	Reconcile       ReconcileReport
	Batch           series.Batch
	Load            series.LoadSummary
	Err             error
}

// Duration returns the wall time of the run.
func (r RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status classifies the run as success, partial or error.
func (r RunResult) Status() string {
	failed := len(r.Load.Failed())
	attempted := 0
	for _, rel := range r.Load.Relations {
		if !rel.Skipped {
			attempted++
		}
	}
	switch {
	case r.Err != nil && failed > 0 && failed == attempted:
		return metrics.ResultError
	case r.Err != nil && failed == 0:
		return metrics.ResultError
	case failed > 0 || len(r.NormalizeErrors) > 0:
		return metrics.ResultPartial
	default:
		return metrics.ResultSuccess
	}
}

// Pipeline normalizes, reconciles and loads one run's staged series.
type Pipeline struct {
	loader     series.Loader
	reconciler *Reconciler
	metrics    *metrics.Metrics
	logger     *log.Logger
	clock      settlement.Clock
	newRunID   func() string
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithReconciler overrides the default reconciler.
func WithReconciler(reconciler *Reconciler) PipelineOption {
	return func(p *Pipeline) {
		if reconciler != nil {
			p.reconciler = reconciler
		}
	}
}

// WithMetrics attaches run metrics.
func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the run logger.
func WithLogger(logger *log.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock sets the clock used for run timestamps.
func WithClock(clock settlement.Clock) PipelineOption {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithRunIDFactory overrides run id generation.
func WithRunIDFactory(factory func() string) PipelineOption {
	return func(p *Pipeline) {
		if factory != nil {
			p.newRunID = factory
		}
	}
}

// NewPipeline constructs the pipeline.
func NewPipeline(loader series.Loader, opts ...PipelineOption) (*Pipeline, error) {
	if loader == nil {
		return nil, errors.New("pipeline: nil loader")
	}
	p := &Pipeline{
		loader:     loader,
		reconciler: NewReconciler(),
		logger:     log.Default(),
		clock:      settlement.SystemClock{},
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Normalize runs the normalizer of every staged kind concurrently. Series of
// the same kind are concatenated first. A failing kind is reported in the
// returned map and left out of the batch; siblings are unaffected.
func (p *Pipeline) Normalize(ctx context.Context, raws []series.RawSeries) (series.Batch, map[series.Kind]error) {
	grouped := make(map[series.Kind]series.RawSeries)
	for _, raw := range raws {
		if raw.Kind == series.KindUnknown {
			p.logger.Printf("normalize skip: source=%s reason=unknown kind", raw.Source)
			continue
		}
		merged := grouped[raw.Kind]
		merged.Kind = raw.Kind
		if merged.Source == "" {
			merged.Source = raw.Source
		} else {
			merged.Source += "," + raw.Source
		}
		merged.Rows = append(merged.Rows, raw.Rows...)
		grouped[raw.Kind] = merged
	}

	var (
		mu    sync.Mutex
		batch series.Batch
		errs  = make(map[series.Kind]error)
		g     errgroup.Group
	)
	for kind, raw := range grouped {
		raw := raw.Clone()
		kind := kind
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = normalizeInto(&mu, &batch, raw)
			}
			if err == nil {
				return nil
			}
			mu.Lock()
			errs[kind] = err
			mu.Unlock()
			return fmt.Errorf("normalize %s: %w", kind, err)
		})
	}
	// A plain Group never cancels siblings; Wait reports the first failure and
	// the rest are in errs.
	if err := g.Wait(); err != nil {
		p.logger.Printf("normalize incomplete: failed_series=%d first_err=%v", len(errs), err)
	}

	for _, kind := range series.AllKinds {
		if err, ok := errs[kind]; ok {
			p.logger.Printf("normalize failed: series=%s err=%v", kind, err)
			p.metrics.IncNormalizeError(kind.String())
			continue
		}
		if batch.Has(kind) && batch.Len(kind) == 0 {
			p.logger.Printf("normalize: series=%s err=%v", kind, series.ErrEmptySeries)
		}
	}
	return batch, errs
}

func normalizeInto(mu *sync.Mutex, batch *series.Batch, raw series.RawSeries) error {
	switch raw.Kind {
	case series.KindGeneration:
		out, err := NormalizeGeneration(raw)
		if err != nil {
			return err
		}
		mu.Lock()
		batch.Generation = out
		mu.Unlock()
	case series.KindDemand:
		out, err := NormalizeDemand(raw)
		if err != nil {
			return err
		}
		mu.Lock()
		batch.Demand = out
		mu.Unlock()
	case series.KindPrice:
		out, err := NormalizePrice(raw)
		if err != nil {
			return err
		}
		mu.Lock()
		batch.Price = out
		mu.Unlock()
	case series.KindCarbon:
		out, err := NormalizeCarbon(raw)
		if err != nil {
			return err
		}
		mu.Lock()
		batch.Carbon = out
		mu.Unlock()
	default:
		return series.ErrUnknownKind
	}
	return nil
}

// Run executes one pipeline run over the staged series. The returned error is
// the joined load error; normalization failures are only reported in the result.
func (p *Pipeline) Run(ctx context.Context, raws []series.RawSeries) (RunResult, error) {
	result := RunResult{
		RunID:      p.newRunID(),
		StartedAt:  p.clock.Now(),
		Staged:     make(map[series.Kind]int),
		Normalized: make(map[series.Kind]int),
	}
	ctx = series.WithRunID(ctx, result.RunID)
	p.logger.Printf("pipeline run started: run=%s staged_series=%d", result.RunID, len(raws))

	for _, raw := range raws {
		result.Staged[raw.Kind] += len(raw.Rows)
		p.metrics.AddStagedRows(raw.Kind.String(), len(raw.Rows))
	}

	batch, errs := p.Normalize(ctx, raws)
	if len(errs) > 0 {
		result.NormalizeErrors = errs
	}
	for _, kind := range series.AllKinds {
		if batch.Has(kind) {
			result.Normalized[kind] = batch.Len(kind)
		}
	}

	reconciled, report := p.reconciler.Reconcile(batch)
	result.Reconcile = report
	result.Batch = reconciled
	if report.Skipped {
		p.logger.Printf("reconcile skipped: run=%s reason=no generation series", result.RunID)
	} else {
		p.logger.Printf("reconcile done: run=%s demand_fillers=%d price_fillers=%d", result.RunID, len(report.DemandFillers), len(report.PriceFillers))
	}
	p.metrics.AddFillers(series.KindDemand.String(), len(report.DemandFillers))
	p.metrics.AddFillers(series.KindPrice.String(), len(report.PriceFillers))

	summary, err := p.loader.Load(ctx, reconciled)
	result.Load = summary
	result.Err = err
	result.FinishedAt = p.clock.Now()

	status := result.Status()
	p.metrics.ObserveRun(status, result.Duration(), result.FinishedAt)
	p.logger.Printf("pipeline run finished: run=%s status=%s duration=%s", result.RunID, status, result.Duration())
	return result, err
}
