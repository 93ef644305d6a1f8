// Package gemini embeds text with the Gemini embedding models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "text-embedding-004"

// Embedder is satisfied by (*genai.Client).Models.
type Embedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Backend requests one embedding per call.
type Backend struct {
	models    Embedder
	model     string
	dimension int32
}

// New creates a backend. A positive dimension is sent as OutputDimensionality.
func New(models Embedder, model string, dimension int) (*Backend, error) {
	if models == nil {
		return nil, errors.New("gemini models client is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	return &Backend{models: models, model: model, dimension: int32(dimension)}, nil
}

func (b *Backend) Model() string    { return b.model }
func (b *Backend) Provider() string { return "gemini" }

func (b *Backend) Embed(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if b.dimension > 0 {
		dim := b.dimension
		cfg.OutputDimensionality = &dim
	}
	resp, err := b.models.EmbedContent(ctx, b.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini returned an empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}
