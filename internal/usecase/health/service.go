package health

import (
	"context"

	"github.com/kailas-cloud/locusmap/internal/usecase/searchindex"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure or a search index that is not ready yet.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckPending indicates a component that is still starting.
	CheckPending CheckResult = "pending"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used in Report.Checks.
const (
	ComponentBlobStore   = "blobstore"
	ComponentSearchIndex = "search_index"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	blobs BlobPinger
	index IndexStatuser
}

// New creates a Service. blobs can be nil for stores without a ping.
func New(blobs BlobPinger, index IndexStatuser) *Service {
	return &Service{blobs: blobs, index: index}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.blobs != nil {
		if err := s.blobs.Ping(ctx); err != nil {
			checks[ComponentBlobStore] = CheckError
		} else {
			checks[ComponentBlobStore] = CheckOK
		}
	}

	if s.index != nil {
		checks[ComponentSearchIndex] = indexCheck(s.index.Status())
	}

	status := Healthy
	failed := 0
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
		}
		if v == CheckError {
			failed++
		}
	}
	if failed > 0 && failed == len(checks) {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func indexCheck(st searchindex.Status) CheckResult {
	switch {
	case st.Err != nil:
		return CheckError
	case st.State == searchindex.Ready:
		return CheckOK
	default:
		return CheckPending
	}
}
