package locusmap

import (
	"github.com/kailas-cloud/locusmap/internal/blobstore"
	"github.com/kailas-cloud/locusmap/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrInvalidRecord   = domain.ErrInvalidRecord
	ErrDuplicateRecord = domain.ErrDuplicateRecord
	ErrRecordNotFound  = domain.ErrRecordNotFound
	ErrNodeNotFound    = domain.ErrNodeNotFound
	ErrIndexNotReady   = domain.ErrIndexNotReady
	ErrIndexBuild      = domain.ErrIndexBuild
	ErrBlobNotFound    = blobstore.ErrNotFound
)

// ConfigError describes a malformed field configuration.
type ConfigError = domain.ConfigError
