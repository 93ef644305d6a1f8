// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "nomic-embed-text"
)

// Client is the part of *api.Client used here.
type Client interface {
	Embeddings(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error)
}

// Backend calls the Ollama embeddings endpoint.
type Backend struct {
	client Client
	model  string
}

// New builds a backend for the server at rawURL.
func New(rawURL, model string, timeout time.Duration) (*Backend, error) {
	if strings.TrimSpace(rawURL) == "" {
		rawURL = DefaultURL
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", rawURL, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewWithClient(api.NewClient(base, &http.Client{Timeout: timeout}), model), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, model string) *Backend {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	return &Backend{client: client, model: model}
}

func (b *Backend) Model() string    { return b.model }
func (b *Backend) Provider() string { return "ollama" }

func (b *Backend) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := b.client.Embeddings(ctx, &api.EmbeddingRequest{Model: b.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if resp == nil || len(resp.Embedding) == 0 {
		return nil, errors.New("ollama returned an empty embedding")
	}
	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
