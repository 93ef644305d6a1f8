// Package memory is an in-process vector backend using brute-force cosine
// similarity. It is meant for tests, local runs and small corpora.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

type point struct {
	id      string
	seq     uint64
	vector  []float32
	payload map[string]any
}

type collection struct {
	dimension int
	points    map[string]*point
}

// Backend keeps points in memory.
type Backend struct {
	mu          sync.RWMutex
	seq         uint64
	collections map[vectorindex.Collection]*collection
}

var _ vectorindex.Backend = (*Backend)(nil)

// New returns an empty backend with no collections.
func New() *Backend {
	return &Backend{collections: map[vectorindex.Collection]*collection{}}
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) Recreate(_ context.Context, name vectorindex.Collection, dimension int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections[name] = &collection{dimension: dimension, points: map[string]*point{}}
	return nil
}

func (b *Backend) Upsert(_ context.Context, name vectorindex.Collection, record vectorindex.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.lookup(name)
	if err != nil {
		return err
	}
	if len(record.Vector) != c.dimension {
		return fmt.Errorf("%w: got %d, want %d", vectorindex.ErrDimensionMismatch, len(record.Vector), c.dimension)
	}
	b.seq++
	c.points[record.ID] = &point{
		id:      record.ID,
		seq:     b.seq,
		vector:  append([]float32(nil), record.Vector...),
		payload: copyPayload(record.Payload),
	}
	return nil
}

func (b *Backend) Search(_ context.Context, name vectorindex.Collection, query []float32, filter vectorindex.Filter, limit int) ([]vectorindex.Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, err := b.lookup(name)
	if err != nil {
		return nil, err
	}
	if len(query) != c.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", vectorindex.ErrDimensionMismatch, len(query), c.dimension)
	}

	type scored struct {
		p     *point
		score float64
	}
	candidates := make([]scored, 0, len(c.points))
	for _, p := range c.ordered() {
		if !filter.Match(p.payload) {
			continue
		}
		candidates = append(candidates, scored{p: p, score: Cosine(query, p.vector)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	hits := make([]vectorindex.Hit, 0, len(candidates))
	for _, s := range candidates {
		hits = append(hits, vectorindex.Hit{VectorID: s.p.id, Score: s.score, Payload: copyPayload(s.p.payload)})
	}
	return hits, nil
}

func (b *Backend) Scan(_ context.Context, name vectorindex.Collection, filter vectorindex.Filter, limit int) ([]vectorindex.Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, err := b.lookup(name)
	if err != nil {
		return nil, err
	}
	hits := []vectorindex.Hit{}
	for _, p := range c.ordered() {
		if len(hits) == limit {
			break
		}
		if filter.Match(p.payload) {
			hits = append(hits, vectorindex.Hit{VectorID: p.id, Payload: copyPayload(p.payload)})
		}
	}
	return hits, nil
}

func (b *Backend) Delete(_ context.Context, name vectorindex.Collection, vectorID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.lookup(name)
	if err != nil {
		return err
	}
	delete(c.points, vectorID)
	return nil
}

func (b *Backend) Info(_ context.Context, name vectorindex.Collection) (vectorindex.Info, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, err := b.lookup(name)
	if err != nil {
		return vectorindex.Info{}, err
	}
	return vectorindex.Info{
		Name:         string(name),
		Status:       "green",
		PointsCount:  uint64(len(c.points)),
		VectorsCount: uint64(len(c.points)),
		Dimension:    c.dimension,
	}, nil
}

func (b *Backend) Close() error { return nil }

func (b *Backend) lookup(name vectorindex.Collection) (*collection, error) {
	c, ok := b.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotInitialized, name)
	}
	return c, nil
}

// ordered returns points in insertion order.
func (c *collection) ordered() []*point {
	out := make([]*point, 0, len(c.points))
	for _, p := range c.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero vector.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func copyPayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}
