package searchindex

import (
	"context"
	"time"
)

// BlobStore fetches and persists the serialized index.
type BlobStore interface {
	GetFile(ctx context.Context, name string) ([]byte, error)
	WriteFile(ctx context.Context, name string, data []byte) error
}

// Observer receives lifecycle events, typically for metrics.
type Observer interface {
	SetIndexState(state string)
	ObserveIndexLoad(result string)
	ObserveIndexBuild(result string, d time.Duration)
	ObserveIndexPersist(result string)
}
