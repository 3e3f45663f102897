// Package kv stores blobs as values in a key-value database.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
	"github.com/kailas-cloud/locusmap/internal/db"
)

// Backend is the database surface the store needs.
type Backend interface {
	db.KVStore
	db.Pinger
}

// Store implements blobstore.Store with one key per blob.
type Store struct {
	backend Backend
	prefix  string
	ttl     time.Duration
}

var _ blobstore.Store = (*Store)(nil)

// NewStore creates a store that namespaces keys with prefix.
func NewStore(backend Backend, prefix string) *Store {
	return &Store{backend: backend, prefix: prefix}
}

// WithTTL makes written blobs expire after ttl. Zero keeps them forever.
func (s *Store) WithTTL(ttl time.Duration) *Store {
	s.ttl = ttl
	return s
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

// GetFile reads the blob stored under the prefixed key.
func (s *Store) GetFile(ctx context.Context, name string) ([]byte, error) {
	if err := blobstore.ValidateName(name); err != nil {
		return nil, err //nolint:wrapcheck // sentinel carries the name
	}
	data, err := s.backend.Get(ctx, s.key(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%s: %w", name, blobstore.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return data, nil
}

// WriteFile stores the blob under the prefixed key.
func (s *Store) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := blobstore.ValidateName(name); err != nil {
		return err //nolint:wrapcheck // sentinel carries the name
	}
	var err error
	if s.ttl > 0 {
		err = s.backend.SetWithTTL(ctx, s.key(name), data, s.ttl)
	} else {
		err = s.backend.Set(ctx, s.key(name), data)
	}
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx) //nolint:wrapcheck // db errors carry the op
}
