package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubBackend struct {
	vec   []float32
	err   error
	delay time.Duration
	calls int
}

func (s *stubBackend) Embed(ctx context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.vec, s.err
}

func (s *stubBackend) Model() string { return "stub" }

func TestGeneratorEmbed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		backend     *stubBackend
		text        string
		unavailable bool
		wantCalls   int
	}{
		{name: "ok", backend: &stubBackend{vec: []float32{1, 0, 0}}, text: "go", wantCalls: 1},
		{name: "blank text", backend: &stubBackend{vec: []float32{1, 0, 0}}, text: "  \n", unavailable: true},
		{name: "backend error", backend: &stubBackend{err: errors.New("boom")}, text: "go", unavailable: true, wantCalls: 1},
		{name: "zero vector", backend: &stubBackend{vec: []float32{0, 0, 0}}, text: ",,,", unavailable: true, wantCalls: 1},
		{name: "nan component", backend: &stubBackend{vec: []float32{float32(math.NaN()), 1, 0}}, text: "go", unavailable: true, wantCalls: 1},
		{name: "inf component", backend: &stubBackend{vec: []float32{float32(math.Inf(1)), 0, 0}}, text: "go", unavailable: true, wantCalls: 1},
		{name: "wrong dimension", backend: &stubBackend{vec: []float32{1, 0}}, text: "go", unavailable: true, wantCalls: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := New(tt.backend, 3, Options{}, nil)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			vec := g.Embed(context.Background(), tt.text)
			if IsUnavailable(vec) != tt.unavailable {
				t.Fatalf("IsUnavailable = %v, want %v", IsUnavailable(vec), tt.unavailable)
			}
			if tt.backend.calls != tt.wantCalls {
				t.Fatalf("expected %d backend calls, got %d", tt.wantCalls, tt.backend.calls)
			}
		})
	}
}

func TestGeneratorDoesNotRetry(t *testing.T) {
	t.Parallel()
	backend := &stubBackend{err: errors.New("unavailable")}
	g, _ := New(backend, 3, Options{}, nil)
	g.Embed(context.Background(), "text")
	if backend.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", backend.calls)
	}
}

func TestGeneratorTimeout(t *testing.T) {
	t.Parallel()
	backend := &stubBackend{vec: []float32{1, 0, 0}, delay: time.Second}
	g, _ := New(backend, 3, Options{Timeout: 10 * time.Millisecond}, nil)
	_, err := g.Try(context.Background(), "text")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGeneratorLogsFailure(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	g, _ := New(&stubBackend{err: errors.New("boom")}, 3, Options{}, zap.New(core))
	g.Embed(context.Background(), "text")

	entries := logs.FilterMessage("embedding unavailable").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if entries[0].ContextMap()["model"] != "stub" {
		t.Fatalf("expected model field, got %v", entries[0].ContextMap())
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()
	if _, err := New(nil, 3, Options{}, nil); err == nil {
		t.Fatalf("expected error for nil backend")
	}
	if _, err := New(&stubBackend{}, 0, Options{}, nil); err == nil {
		t.Fatalf("expected error for zero dimension")
	}
}

func TestTryReportsDegenerateVector(t *testing.T) {
	t.Parallel()
	g, err := New(&stubBackend{vec: []float32{0, 0, 0}}, 3, Options{}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := g.Try(context.Background(), "!!"); !errors.Is(err, ErrDegenerateVector) {
		t.Fatalf("expected ErrDegenerateVector, got %v", err)
	}
}
