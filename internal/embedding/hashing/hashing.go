// Package hashing is an offline embedding backend based on feature hashing
// of word unigrams and bigrams. It needs no model server and is fully
// deterministic, which makes it the default for local runs and tests.
package hashing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
)

const modelName = "hashing-v1"

// Backend hashes tokens into a fixed number of buckets.
type Backend struct {
	dimension int
}

// New returns a backend producing vectors of the given dimension.
func New(dimension int) (*Backend, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hashing dimension must be positive, got %d", dimension)
	}
	return &Backend{dimension: dimension}, nil
}

func (b *Backend) Model() string    { return fmt.Sprintf("%s-%d", modelName, b.dimension) }
func (b *Backend) Provider() string { return "hashing" }

// ErrNoTokens is returned for text without any letter or digit.
var ErrNoTokens = errors.New("text has no tokens")

// Embed returns the L2-normalised bucket counts of text.
func (b *Backend) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := b.tokens(text)
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	vec := make([]float64, b.dimension)
	add := func(feature string, weight float64) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(b.dimension))
		// The top bit picks the sign so collisions tend to cancel out.
		if h>>63 == 1 {
			weight = -weight
		}
		vec[idx] += weight
	}
	for i, tok := range tokens {
		add(tok, 1)
		if i > 0 {
			add(tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, b.dimension)
	if norm == 0 {
		// Every feature cancelled out in its bucket.
		return nil, ErrNoTokens
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (b *Backend) tokens(text string) []string {
	// A Caser is stateful, so each call gets its own.
	return strings.FieldsFunc(cases.Fold().String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}
