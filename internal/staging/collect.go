package staging

import (
	"context"
	"errors"
	"fmt"
	"log"

	series "energy-tracker/internal/series/domain"
)

// Collector reads every staged file of a source into raw series.
type Collector struct {
	source          Source
	logger          *log.Logger
	deleteAfterRead bool
	collected       []StagedFile
}

// CollectorOption configures a collector.
type CollectorOption func(*Collector)

// WithCollectorLogger sets the collector logger.
func WithCollectorLogger(logger *log.Logger) CollectorOption {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDeleteAfterRead makes Cleanup remove the files read by Collect.
func WithDeleteAfterRead(enabled bool) CollectorOption {
	return func(c *Collector) {
		c.deleteAfterRead = enabled
	}
}

// NewCollector constructs a collector. Cleanup deletes read files unless
// disabled.
func NewCollector(source Source, opts ...CollectorOption) (*Collector, error) {
	if source == nil {
		return nil, errors.New("staging: nil source")
	}
	c := &Collector{source: source, logger: log.Default(), deleteAfterRead: true}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Collect decodes the staged files whose name resolves to a series kind.
// Unknown names and unreadable files are skipped and left in place. Nothing is
// removed here; call Cleanup once the collected series have been loaded.
func (c *Collector) Collect(ctx context.Context) ([]series.RawSeries, error) {
	files, err := c.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("staging: list: %w", err)
	}
	c.collected = c.collected[:0]
	out := make([]series.RawSeries, 0, len(files))
	for _, file := range files {
		kind := ResolveKind(file.Name)
		if kind == series.KindUnknown {
			c.logger.Printf("staging skip: file=%s reason=unknown series", file.Name)
			continue
		}
		raw, err := c.read(ctx, file, kind)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Printf("staging skip: file=%s reason=%v", file.Name, err)
			continue
		}
		c.logger.Printf("staging read: file=%s series=%s rows=%d", file.Name, kind, len(raw.Rows))
		out = append(out, raw)
		c.collected = append(c.collected, file)
	}
	return out, nil
}

// Cleanup removes the files returned by the last Collect when delete after
// read is enabled. Removal failures are logged.
func (c *Collector) Cleanup(ctx context.Context) {
	if !c.deleteAfterRead {
		return
	}
	for _, file := range c.collected {
		if err := c.source.Remove(ctx, file); err != nil {
			c.logger.Printf("staging remove failed: file=%s err=%v", file.Name, err)
		}
	}
	c.collected = nil
}

func (c *Collector) read(ctx context.Context, file StagedFile, kind series.Kind) (series.RawSeries, error) {
	rc, err := c.source.Open(ctx, file)
	if err != nil {
		return series.RawSeries{}, fmt.Errorf("staging: open %s: %w", file.Name, err)
	}
	defer rc.Close()
	raw, err := DecodeFeather(rc, kind)
	if err != nil {
		return series.RawSeries{}, fmt.Errorf("staging: decode %s: %w", file.Name, err)
	}
	raw.Source = file.Name
	return raw, nil
}
