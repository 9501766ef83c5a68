package staging

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DefaultPattern matches staged feather files, compressed variants included.
const DefaultPattern = "*.feather*"

// LocalSource reads staged files from a directory.
type LocalSource struct {
	dir     string
	pattern string
}

// LocalOption configures a local source.
type LocalOption func(*LocalSource)

// WithPattern overrides the glob used to list files.
func WithPattern(pattern string) LocalOption {
	return func(s *LocalSource) {
		if pattern != "" {
			s.pattern = pattern
		}
	}
}

// NewLocalSource constructs a source over dir.
func NewLocalSource(dir string, opts ...LocalOption) (*LocalSource, error) {
	if dir == "" {
		return nil, errors.New("staging: empty directory")
	}
	s := &LocalSource{dir: dir, pattern: DefaultPattern}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := filepath.Match(s.pattern, ""); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns the matching files sorted by name.
func (s *LocalSource) List(ctx context.Context) ([]StagedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, s.pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	files := make([]StagedFile, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, StagedFile{Name: filepath.Base(match), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

// Open opens a staged file for reading.
func (s *LocalSource) Open(ctx context.Context, file StagedFile) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(file.Name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove deletes a staged file. Missing files are not an error.
func (s *LocalSource) Remove(ctx context.Context, file StagedFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(file.Name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
