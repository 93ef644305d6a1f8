package gemini

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	model  string
	config *genai.EmbedContentConfig
	text   string
	resp   *genai.EmbedContentResponse
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
	return f.resp, nil
}

func TestEmbedRequestsDimension(t *testing.T) {
	t.Parallel()
	models := &fakeModels{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
	}}
	b, err := New(models, "", 3)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	vec, err := b.Embed(context.Background(), "Title: Go Developer")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if models.model != DefaultModel || models.text != "Title: Go Developer" {
		t.Fatalf("unexpected request model=%s text=%q", models.model, models.text)
	}
	if models.config.OutputDimensionality == nil || *models.config.OutputDimensionality != 3 {
		t.Fatalf("expected output dimensionality 3")
	}
}

func TestEmbedEmptyResponse(t *testing.T) {
	t.Parallel()
	b, _ := New(&fakeModels{resp: &genai.EmbedContentResponse{}}, "m", 0)
	if _, err := b.Embed(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for empty response")
	}
}
