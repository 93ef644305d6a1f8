// Package vectorindex stores profile embeddings with their payload and
// answers filtered nearest-neighbour queries over two collections.
package vectorindex

import (
	"context"

	"github.com/google/uuid"
)

// Index is the storage contract used by the matching services.
type Index interface {
	InitializeCollections(ctx context.Context) error
	Upsert(ctx context.Context, collection Collection, embedding []float32, payload Payload) (string, error)
	Search(ctx context.Context, collection Collection, query []float32, filter Filter, limit int) ([]Hit, error)
	Scan(ctx context.Context, collection Collection, filter Filter, limit int) ([]Hit, error)
	Delete(ctx context.Context, collection Collection, vectorID string) error
	CollectionInfo(ctx context.Context, collection Collection) (Info, error)
	Close() error
}

// Backend is a concrete store. Backends trust their input; Validator
// performs the schema and dimension checks in front of them.
type Backend interface {
	Name() string
	Recreate(ctx context.Context, collection Collection, dimension int) error
	Upsert(ctx context.Context, collection Collection, record Record) error
	Search(ctx context.Context, collection Collection, query []float32, filter Filter, limit int) ([]Hit, error)
	Scan(ctx context.Context, collection Collection, filter Filter, limit int) ([]Hit, error)
	Delete(ctx context.Context, collection Collection, vectorID string) error
	Info(ctx context.Context, collection Collection) (Info, error)
	Close() error
}

// Record is a point ready to be written.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is a search or scan result. Score is zero for scan results.
type Hit struct {
	VectorID string
	Score    float64
	Payload  map[string]any
}

// DecodeCandidate decodes the hit payload as a résumé point.
func (h Hit) DecodeCandidate() (CandidatePayload, error) {
	return DecodeCandidatePayload(h.Payload)
}

// DecodeJob decodes the hit payload as a job point.
func (h Hit) DecodeJob() (JobPayload, error) {
	return DecodeJobPayload(h.Payload)
}

// Info describes a collection.
type Info struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	PointsCount  uint64 `json:"points_count"`
	VectorsCount uint64 `json:"vectors_count"`
	Dimension    int    `json:"dimension,omitempty"`
}

// NewVectorID mints a fresh point id.
func NewVectorID() string {
	return uuid.NewString()
}
