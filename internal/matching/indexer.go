package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/embedding"
	"github.com/spigell/skillbridge-matcher/internal/logger"
	"github.com/spigell/skillbridge-matcher/internal/profile"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

// Embedder turns text into a vector. An empty vector means unavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Writer is the part of the vector index the indexer mutates.
type Writer interface {
	Upsert(ctx context.Context, collection vectorindex.Collection, embedding []float32, payload vectorindex.Payload) (string, error)
	Delete(ctx context.Context, collection vectorindex.Collection, vectorID string) error
}

// IndexResult describes a stored profile.
type IndexResult struct {
	VectorID           string    `json:"vector_id"`
	EntityID           string    `json:"entity_id"`
	Embedding          []float32 `json:"-"`
	EmbeddingAvailable bool      `json:"embedding_available"`
	// ReplacedVectorID is set when a previous point was removed.
	ReplacedVectorID string `json:"replaced_vector_id,omitempty"`
}

// Indexer embeds profiles and stores them in the index.
type Indexer struct {
	embedder Embedder
	index    Writer
	logger   *zap.Logger
}

// NewIndexer builds an Indexer.
func NewIndexer(embedder Embedder, index Writer, l *zap.Logger) *Indexer {
	return &Indexer{embedder: embedder, index: index, logger: logger.OrNop(l)}
}

// IndexCandidate embeds and stores a résumé. Every call creates a new point;
// when previousVectorID is not empty the old point is deleted after the new
// one is written.
func (i *Indexer) IndexCandidate(ctx context.Context, c profile.Candidate, previousVectorID string) (IndexResult, error) {
	c = c.Normalize()
	return i.store(ctx, vectorindex.CandidatePayloadFrom(c), c.EmbeddingText(), previousVectorID)
}

// IndexJob embeds and stores a job posting.
func (i *Indexer) IndexJob(ctx context.Context, j profile.Job, previousVectorID string) (IndexResult, error) {
	j = j.Normalize()
	return i.store(ctx, vectorindex.JobPayloadFrom(j), j.EmbeddingText(), previousVectorID)
}

// Remove deletes a stored point. Unknown ids are not an error.
func (i *Indexer) Remove(ctx context.Context, collection vectorindex.Collection, vectorID string) error {
	if err := i.index.Delete(ctx, collection, vectorID); err != nil {
		return fmt.Errorf("delete %s point %s: %w", collection, vectorID, err)
	}
	i.logger.Info("point deleted", zap.String(logger.FieldCollection, string(collection)), zap.String("vector_id", vectorID))
	return nil
}

func (i *Indexer) store(ctx context.Context, payload vectorindex.Payload, text, previousVectorID string) (IndexResult, error) {
	collection := payload.Collection()
	log := i.logger.With(
		zap.String(logger.FieldCollection, string(collection)),
		zap.String("entity_id", payload.EntityID()),
	)
	res := IndexResult{EntityID: payload.EntityID()}

	if err := payload.Validate(); err != nil {
		return res, err
	}

	vec := i.embedder.Embed(ctx, text)
	if embedding.IsUnavailable(vec) {
		log.Warn("not indexing profile without an embedding")
		return res, ErrEmbeddingUnavailable
	}
	res.Embedding = vec
	res.EmbeddingAvailable = true

	id, err := i.index.Upsert(ctx, collection, vec, payload)
	if err != nil {
		return res, fmt.Errorf("upsert %s point: %w", collection, err)
	}
	res.VectorID = id
	log.Info("profile indexed", zap.String("vector_id", id))

	if previousVectorID != "" && previousVectorID != id {
		if err := i.index.Delete(ctx, collection, previousVectorID); err != nil {
			// The new point is already stored; report but keep the result.
			log.Warn("previous point was not removed", zap.String("previous_vector_id", previousVectorID), zap.Error(err))
			return res, nil
		}
		res.ReplacedVectorID = previousVectorID
	}
	return res, nil
}
