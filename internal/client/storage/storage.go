// Package storage keeps the media produced by successful encode operations.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stegkeeper/internal/filex"
)

// Store kinds accepted by New.
const (
	KindLocal = "local"
	KindS3    = "s3"
)

var ErrUnknownStore = errors.New("unknown result store")

// ResultStore saves an encoded file and returns where it can be fetched
// from: a filesystem path or a URL.
type ResultStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Options selects and configures a ResultStore.
type Options struct {
	Kind      string
	OutputDir string
	S3        S3Options
}

// New builds the store named by opts.Kind. An empty kind means local.
func New(opts Options) (ResultStore, error) {
	switch opts.Kind {
	case "", KindLocal:
		return NewLocalStore(opts.OutputDir), nil
	case KindS3:
		return NewS3Store(opts.S3)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStore, opts.Kind)
}

// LocalStore writes results under a directory, never overwriting an
// earlier result with the same name.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	return filex.WriteFile(s.dir, name, data)
}
