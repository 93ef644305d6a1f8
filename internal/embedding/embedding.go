// Package embedding turns profile text into fixed-length vectors.
//
// A Generator never returns an error to its callers: any failure is logged
// and reported as a zero-length vector, which downstream services treat as
// "similarity unavailable".
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/logger"
	"github.com/spigell/skillbridge-matcher/internal/utils"
)

// ErrEmptyText is returned by Try for blank input.
var ErrEmptyText = errors.New("text must not be empty")

// ErrDegenerateVector is returned by Try when the backend produced a vector
// without direction: all zeros, or containing NaN or Inf.
var ErrDegenerateVector = errors.New("degenerate embedding")

// Backend produces raw embeddings. Implementations must be deterministic for
// the same text and model.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Provider is implemented by backends that can name their provider for logs.
type Provider interface {
	Provider() string
}

// IsUnavailable reports whether v is the failure sentinel.
func IsUnavailable(v []float32) bool {
	return len(v) == 0
}

// Options tune a Generator.
type Options struct {
	// Timeout bounds a single backend call; zero keeps the caller's deadline.
	Timeout time.Duration
	// MaxLogLength limits text previews in debug logs.
	MaxLogLength int
}

// Generator validates backend output against the configured dimension.
type Generator struct {
	backend   Backend
	dimension int
	opts      Options
	logger    *zap.Logger
}

// New creates a Generator. dimension must be positive.
func New(backend Backend, dimension int, opts Options, l *zap.Logger) (*Generator, error) {
	if backend == nil {
		return nil, errors.New("embedding backend is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = 120
	}
	provider := "custom"
	if p, ok := backend.(Provider); ok {
		provider = p.Provider()
	}
	return &Generator{
		backend:   backend,
		dimension: dimension,
		opts:      opts,
		logger:    logger.WithCommonFields(logger.OrNop(l), provider, backend.Model()),
	}, nil
}

// Dimension returns the configured vector length.
func (g *Generator) Dimension() int { return g.dimension }

// Model returns the backend model identity.
func (g *Generator) Model() string { return g.backend.Model() }

// Embed returns the embedding of text, or a zero-length vector on any failure.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	vec, err := g.Try(ctx, text)
	if err != nil {
		g.logger.Warn("embedding unavailable",
			zap.Error(err),
			zap.String("text_preview", utils.TruncateForLog(text, g.opts.MaxLogLength)),
		)
		return nil
	}
	return vec
}

// Try is Embed with the failure cause exposed.
func (g *Generator) Try(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	vec, err := g.backend.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vec) != g.dimension {
		return nil, fmt.Errorf("backend returned %d dimensions, want %d", len(vec), g.dimension)
	}
	if err := checkVector(vec); err != nil {
		return nil, err
	}
	g.logger.Debug("text embedded",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.Duration("took", time.Since(started)),
	)
	return vec, nil
}

func checkVector(vec []float32) error {
	nonZero := false
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrDegenerateVector, i, v)
		}
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return fmt.Errorf("%w: all components are zero", ErrDegenerateVector)
	}
	return nil
}
