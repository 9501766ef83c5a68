package series

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch is returned when a raw series lacks an expected column
	// or carries a value of the wrong shape.
	ErrSchemaMismatch = errors.New("series: schema mismatch")
	// ErrEmptySeries marks a series that normalized to zero rows.
	ErrEmptySeries = errors.New("series: empty series")
	// ErrLoadFailure is returned when the store rejects a relation batch.
	ErrLoadFailure = errors.New("series: load failure")
	// ErrUnknownKind is returned for an unrecognized series kind.
	ErrUnknownKind = errors.New("series: unknown kind")
)

// SchemaError describes which column of which row failed to normalize.
type SchemaError struct {
	Kind   Kind
	Row    int
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("series: schema mismatch: kind=%s row=%d column=%q missing", e.Kind, e.Row, e.Column)
	}
	return fmt.Sprintf("series: schema mismatch: kind=%s row=%d column=%q: %s", e.Kind, e.Row, e.Column, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

// LoadError reports a rejected relation batch.
type LoadError struct {
	Relation string
	Rows     int
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("series: load failure: relation=%s rows=%d: %v", e.Relation, e.Rows, e.Err)
}

// Unwrap exposes both the load failure sentinel and the store error.
func (e *LoadError) Unwrap() []error { return []error{ErrLoadFailure, e.Err} }
