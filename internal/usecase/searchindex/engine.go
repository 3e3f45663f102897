package searchindex

import (
	"fmt"

	"github.com/kailas-cloud/locusmap/internal/domain"
	sidx "github.com/kailas-cloud/locusmap/internal/searchindex"
	"github.com/kailas-cloud/locusmap/internal/searchindex/bleveindex"
	"github.com/kailas-cloud/locusmap/internal/searchindex/lexical"
)

// NewEngine selects an index engine by name. An empty name selects the
// lexical engine. tempDir is used by engines that keep an on-disk index.
func NewEngine(name, tempDir string) (sidx.Engine, error) {
	switch name {
	case "", lexical.EngineName:
		return lexical.New(), nil
	case bleveindex.EngineName:
		return bleveindex.New(bleveindex.WithTempDir(tempDir)), nil
	default:
		return nil, fmt.Errorf("%w: unknown index engine %q", domain.ErrInvalidConfig, name)
	}
}
