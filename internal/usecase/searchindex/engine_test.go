package searchindex

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/locusmap/internal/domain"
)

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "lexical"},
		{"lexical", "lexical"},
		{"bleve", "bleve"},
	}
	for _, tt := range tests {
		e, err := NewEngine(tt.name, t.TempDir())
		if err != nil {
			t.Fatalf("NewEngine(%q): %v", tt.name, err)
		}
		if e.Name() != tt.want {
			t.Errorf("NewEngine(%q).Name() = %q, want %q", tt.name, e.Name(), tt.want)
		}
	}

	_, err := NewEngine("vector", "")
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("unknown engine error = %v, want ErrInvalidConfig", err)
	}
}
