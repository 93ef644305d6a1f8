package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

type countingBackend struct {
	calls int
}

func (c *countingBackend) Embed(context.Context, string) ([]float32, error) {
	c.calls++
	return []float32{1, 2, 3}, nil
}

func (c *countingBackend) Model() string { return "counting" }

func TestCacheHitSkipsBackend(t *testing.T) {
	t.Parallel()
	next := &countingBackend{}
	store := newMemStore()
	b := New(next, store, time.Hour, nil)

	for i := 0; i < 3; i++ {
		vec, err := b.Embed(context.Background(), "same text")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		if len(vec) != 3 {
			t.Fatalf("unexpected vector %v", vec)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one backend call, got %d", next.calls)
	}
	if store.lastTTL != time.Hour {
		t.Fatalf("expected ttl to be forwarded, got %s", store.lastTTL)
	}
}

func TestCacheFailuresAreBypassed(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.WarnLevel)
	store := newMemStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	next := &countingBackend{}
	b := New(next, store, 0, zap.New(core))

	vec, err := b.Embed(context.Background(), "text")
	if err != nil || len(vec) != 3 {
		t.Fatalf("expected backend result despite cache errors, got %v %v", vec, err)
	}
	if logs.FilterMessage("embedding cache read failed").Len() != 1 {
		t.Fatalf("expected read failure to be logged")
	}
	if logs.FilterMessage("embedding cache write failed").Len() != 1 {
		t.Fatalf("expected write failure to be logged")
	}
}

func TestCorruptEntryIsRecomputed(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	next := &countingBackend{}
	store.data[Key(next.Model(), "text")] = []byte("not json")
	b := New(next, store, 0, nil)

	if _, err := b.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected corrupt entry to be recomputed")
	}
}

func TestKeyDependsOnModel(t *testing.T) {
	t.Parallel()
	if Key("a", "text") == Key("b", "text") {
		t.Fatalf("keys must differ across models")
	}
	if Key("a", "text") != Key("a", "text") {
		t.Fatalf("keys must be stable")
	}
}
