package vectorindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/logger"
)

// Validator enforces collection, payload, filter and dimension rules in
// front of a Backend so every store behaves the same way.
type Validator struct {
	backend   Backend
	dimension int
	logger    *zap.Logger
}

var _ Index = (*Validator)(nil)

// Validate wraps backend. dimension must be positive.
func Validate(backend Backend, dimension int, l *zap.Logger) (*Validator, error) {
	if backend == nil {
		return nil, fmt.Errorf("vector backend is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}
	return &Validator{
		backend:   backend,
		dimension: dimension,
		logger:    logger.OrNop(l),
	}, nil
}

// collectionLogger tags log entries with the backend and collection.
func (v *Validator) collectionLogger(collection Collection) *zap.Logger {
	return logger.WithFields(v.logger, logger.CollectionFields(v.backend.Name(), string(collection))...)
}

// Dimension returns the configured vector dimension.
func (v *Validator) Dimension() int { return v.dimension }

// InitializeCollections drops and recreates both collections.
func (v *Validator) InitializeCollections(ctx context.Context) error {
	for _, c := range Collections {
		if err := v.backend.Recreate(ctx, c, v.dimension); err != nil {
			return fmt.Errorf("recreate collection %s: %w", c, err)
		}
		v.collectionLogger(c).Info("collection recreated", zap.Int("dimension", v.dimension))
	}
	return nil
}

// Upsert stores embedding with payload under a freshly minted vector id.
func (v *Validator) Upsert(ctx context.Context, collection Collection, embedding []float32, payload Payload) (string, error) {
	if !collection.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if payload == nil {
		return "", fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	if payload.Collection() != collection {
		return "", fmt.Errorf("%w: %s payload cannot be stored in %s", ErrInvalidPayload, payload.Collection(), collection)
	}
	if err := payload.Validate(); err != nil {
		return "", err
	}
	if err := v.checkDimension(embedding); err != nil {
		return "", err
	}
	fields, err := payload.Fields()
	if err != nil {
		return "", err
	}

	id := NewVectorID()
	if err := v.backend.Upsert(ctx, collection, Record{ID: id, Vector: embedding, Payload: fields}); err != nil {
		return "", err
	}
	v.collectionLogger(collection).Debug("point upserted",
		zap.String("entity_id", payload.EntityID()),
		zap.String("vector_id", id),
	)
	return id, nil
}

// Search returns at most limit hits ordered by descending similarity.
func (v *Validator) Search(ctx context.Context, collection Collection, query []float32, filter Filter, limit int) ([]Hit, error) {
	if err := filter.Validate(collection); err != nil {
		return nil, err
	}
	if err := v.checkDimension(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Hit{}, nil
	}
	hits, err := v.backend.Search(ctx, collection, query, filter, limit)
	if err != nil {
		return nil, err
	}
	v.collectionLogger(collection).Debug("search completed",
		zap.Int("limit", limit),
		zap.Int("hits", len(hits)),
		zap.Int("conditions", len(filter.Must)),
	)
	return hits, nil
}

// Scan returns at most limit points passing filter, without similarity.
func (v *Validator) Scan(ctx context.Context, collection Collection, filter Filter, limit int) ([]Hit, error) {
	if err := filter.Validate(collection); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Hit{}, nil
	}
	return v.backend.Scan(ctx, collection, filter, limit)
}

// Delete removes a point. Deleting an unknown id is not an error.
func (v *Validator) Delete(ctx context.Context, collection Collection, vectorID string) error {
	if !collection.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if _, err := uuid.Parse(vectorID); err != nil {
		// Ids are always minted as UUIDs, so anything else was never stored.
		v.collectionLogger(collection).Debug("ignoring delete of malformed vector id", zap.String("vector_id", vectorID))
		return nil
	}
	return v.backend.Delete(ctx, collection, vectorID)
}

// CollectionInfo describes collection.
func (v *Validator) CollectionInfo(ctx context.Context, collection Collection) (Info, error) {
	if !collection.Valid() {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return v.backend.Info(ctx, collection)
}

// Close releases the backend.
func (v *Validator) Close() error {
	return v.backend.Close()
}

func (v *Validator) checkDimension(vec []float32) error {
	if len(vec) != v.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), v.dimension)
	}
	return nil
}
