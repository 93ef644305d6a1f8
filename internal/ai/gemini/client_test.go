package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"
)

type fakeResult struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu      sync.Mutex
	results []fakeResult
	calls   int
	models  []string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	r := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	return r.resp, r.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func stubWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	prev := wait
	wait = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	t.Cleanup(func() { wait = prev })
	return &delays
}

func TestGenerateContentJoinsParts(t *testing.T) {
	models := &fakeModels{results: []fakeResult{{resp: textResponse(" first ", "", "second")}}}
	g := newGenerator(models, "", RetryPolicy{}, nil)

	out, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "first\nsecond" {
		t.Fatalf("unexpected output %q", out)
	}
	if models.models[0] != defaultModel {
		t.Fatalf("expected default model, got %s", models.models[0])
	}
}

func TestGenerateContentRetriesTransientErrors(t *testing.T) {
	delays := stubWait(t)
	models := &fakeModels{results: []fakeResult{
		{err: genai.APIError{Code: http.StatusTooManyRequests}},
		{err: genai.APIError{Code: http.StatusServiceUnavailable}},
		{resp: textResponse("ok")},
	}}
	g := newGenerator(models, "m", RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}, nil)

	out, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" || models.calls != 3 {
		t.Fatalf("expected success on third call, got %q after %d calls", out, models.calls)
	}
	if len(*delays) != 2 || (*delays)[0] != time.Second || (*delays)[1] != 2*time.Second {
		t.Fatalf("unexpected backoff delays %v", *delays)
	}
}

func TestGenerateContentDoesNotRetryClientErrors(t *testing.T) {
	stubWait(t)
	models := &fakeModels{results: []fakeResult{{err: genai.APIError{Code: http.StatusBadRequest}}}}
	g := newGenerator(models, "m", RetryPolicy{MaxRetries: 3}, nil)

	_, err := g.GenerateContent(context.Background(), "prompt")
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if models.calls != 1 {
		t.Fatalf("expected a single call, got %d", models.calls)
	}
}

func TestGenerateContentGivesUp(t *testing.T) {
	stubWait(t)
	models := &fakeModels{results: []fakeResult{{err: genai.APIError{Code: http.StatusInternalServerError}}}}
	g := newGenerator(models, "m", RetryPolicy{MaxRetries: 2}, nil)

	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error after retries")
	}
	if models.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", models.calls)
	}
}

func TestGenerateContentValidation(t *testing.T) {
	t.Parallel()
	g := newGenerator(&fakeModels{results: []fakeResult{{resp: &genai.GenerateContentResponse{}}}}, "m", RetryPolicy{}, nil)
	if _, err := g.GenerateContent(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank prompt")
	}
	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error for empty response")
	}
	var nilGen *Generator
	if _, err := nilGen.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error for nil generator")
	}
}
