package health

import (
	"context"

	"github.com/kailas-cloud/locusmap/internal/usecase/searchindex"
)

// BlobPinger checks blob store availability.
type BlobPinger interface {
	Ping(ctx context.Context) error
}

// IndexStatuser reports the search index lifecycle.
type IndexStatuser interface {
	Status() searchindex.Status
}
