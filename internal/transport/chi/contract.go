package chi

import (
	"context"

	domsum "github.com/kailas-cloud/locusmap/internal/domain/summary"
	sidx "github.com/kailas-cloud/locusmap/internal/searchindex"
	healthuc "github.com/kailas-cloud/locusmap/internal/usecase/health"
	indexuc "github.com/kailas-cloud/locusmap/internal/usecase/searchindex"
	summaryuc "github.com/kailas-cloud/locusmap/internal/usecase/summary"
)

// Summaries computes summary tables (ISP).
type Summaries interface {
	Summaries(ctx context.Context, sel summaryuc.Selection) ([]domsum.Table, error)
	Node(ctx context.Context, name string, sel summaryuc.Selection) ([]domsum.Table, error)
	Nodes() []string
}

// SearchIndex answers queries once the index is ready (ISP).
type SearchIndex interface {
	Query(ctx context.Context, q string, limit int) ([]sidx.Hit, error)
	Status() indexuc.Status
}

// HealthChecker reports component health (ISP).
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
