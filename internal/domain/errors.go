package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig signals a malformed field configuration.
	ErrInvalidConfig = errors.New("invalid field configuration")
	// ErrInvalidRecord signals a record that cannot join the record store.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrDuplicateRecord signals two records sharing one _id.
	ErrDuplicateRecord = errors.New("duplicate record id")
	// ErrRecordNotFound signals an _id unknown to the record store.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNodeNotFound signals an unknown map node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrIndexNotReady signals a query issued before the search index is ready.
	ErrIndexNotReady = errors.New("search index not ready")
	// ErrIndexLoad signals that the cached search index could not be loaded.
	ErrIndexLoad = errors.New("search index load failed")
	// ErrIndexBuild signals that the search index could not be built from records.
	ErrIndexBuild = errors.New("search index build failed")
	// ErrIndexPersist signals that a rebuilt index could not be written back to the cache.
	ErrIndexPersist = errors.New("search index persist failed")
)

// ConfigError wraps ErrInvalidConfig with the offending field and reason.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidConfig.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: field %q: %s", ErrInvalidConfig.Error(), e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// NewConfigError creates a configuration error for the given field.
func NewConfigError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
