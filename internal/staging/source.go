package staging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a staged file disappeared before it was read.
	ErrNotFound = errors.New("staging: file not found")
	// ErrUnsupportedFormat is returned for files that are not Arrow IPC.
	ErrUnsupportedFormat = errors.New("staging: unsupported file format")
)

// StagedFile identifies one staged object.
type StagedFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Source lists, reads and removes staged files.
type Source interface {
	List(ctx context.Context) ([]StagedFile, error)
	Open(ctx context.Context, file StagedFile) (io.ReadCloser, error)
	Remove(ctx context.Context, file StagedFile) error
}
