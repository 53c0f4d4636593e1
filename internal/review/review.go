// Package review delivers reviewer feedback to the coordination loop.
//
// Two sources exist: ForgeSource asks the code host for the reviews on a
// pull request, and FileSource watches a drop directory for feedback
// YAML files, which serves local formations where reviews arrive from
// another process instead of the host.
package review

import (
	"context"

	"github.com/gafferworks/gaffer/internal/domain"
	"github.com/gafferworks/gaffer/internal/forge"
)

// Source yields the review feedback currently available for a pull
// request. An empty result means no verdicts have arrived yet.
type Source interface {
	Fetch(ctx context.Context, prNumber int) ([]domain.ReviewFeedback, error)
}

// Compile-time interface check.
var _ Source = (*ForgeSource)(nil)

// ForgeSource reads reviews from the code host.
type ForgeSource struct {
	host forge.Host
}

// NewForgeSource creates a Source backed by the given host.
func NewForgeSource(host forge.Host) *ForgeSource {
	return &ForgeSource{host: host}
}

// Fetch returns the reviews the host currently has for the pull request.
func (s *ForgeSource) Fetch(ctx context.Context, prNumber int) ([]domain.ReviewFeedback, error) {
	return s.host.ListReviews(ctx, prNumber)
}
