// Package ai holds the optional language-model enrichments of match results.
package ai

import (
	"context"

	"github.com/spigell/skillbridge-matcher/internal/profile"
)

// Explainer writes a short human-readable justification of a match. A nil
// explanation with a nil error means the model had nothing to say.
type Explainer interface {
	Explain(ctx context.Context, candidate profile.Candidate, job profile.Job, overall float64) (*string, error)
}
