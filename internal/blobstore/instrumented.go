package blobstore

import (
	"context"
	"errors"
	"time"
)

// Operation names reported to an Observer.
const (
	OpGet   = "get"
	OpWrite = "write"
)

// Results reported to an Observer.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Observer receives one call per blob operation.
type Observer interface {
	ObserveBlobOp(op, result string, bytes int, d time.Duration)
}

// InstrumentedStore reports every operation of the wrapped store to an Observer.
type InstrumentedStore struct {
	next Store
	obs  Observer
}

var _ Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps next. A nil observer disables reporting.
func NewInstrumentedStore(next Store, obs Observer) *InstrumentedStore {
	return &InstrumentedStore{next: next, obs: obs}
}

// GetFile reads from the wrapped store.
func (s *InstrumentedStore) GetFile(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	data, err := s.next.GetFile(ctx, name)
	s.observe(OpGet, err, len(data), start)
	return data, err //nolint:wrapcheck // pass through store errors
}

// WriteFile writes to the wrapped store.
func (s *InstrumentedStore) WriteFile(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	err := s.next.WriteFile(ctx, name, data)
	s.observe(OpWrite, err, len(data), start)
	return err //nolint:wrapcheck // pass through store errors
}

// Ping delegates to the wrapped store when it supports it.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	if p, ok := s.next.(Pinger); ok {
		return p.Ping(ctx) //nolint:wrapcheck // pass through store errors
	}
	return nil
}

func (s *InstrumentedStore) observe(op string, err error, n int, start time.Time) {
	if s.obs == nil {
		return
	}
	result := ResultOK
	switch {
	case errors.Is(err, ErrNotFound):
		result = ResultNotFound
	case err != nil:
		result = ResultError
	}
	s.obs.ObserveBlobOp(op, result, n, time.Since(start))
}
