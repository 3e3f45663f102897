// Package blobstore stores named immutable blobs: record files, node
// metadata and serialized search indexes.
package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidName is returned for names that are not clean relative paths.
	ErrInvalidName = errors.New("invalid blob name")
)

// Store reads and writes whole blobs by name.
// Implementations must return an error satisfying errors.Is(err, ErrNotFound)
// for missing blobs and must be safe for concurrent use.
type Store interface {
	GetFile(ctx context.Context, name string) ([]byte, error)
	WriteFile(ctx context.Context, name string, data []byte) error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateName rejects empty, absolute and parent-escaping names.
func ValidateName(name string) error {
	if !fs.ValidPath(name) || name == "." {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// ReadJSON decodes the named blob into v.
func ReadJSON(ctx context.Context, s Store, name string, v any) error {
	data, err := s.GetFile(ctx, name)
	if err != nil {
		return err //nolint:wrapcheck // store errors carry the name
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// WriteJSON encodes v and writes it under name.
func WriteJSON(ctx context.Context, s Store, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.WriteFile(ctx, name, data) //nolint:wrapcheck // store errors carry the name
}
