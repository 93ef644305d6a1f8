package vectorindex

import "errors"

var (
	// ErrStorageUnavailable means the backing store could not be reached.
	ErrStorageUnavailable = errors.New("vector storage unavailable")
	// ErrCollectionNotInitialized means the collection does not exist yet.
	ErrCollectionNotInitialized = errors.New("collection not initialized")
	// ErrDimensionMismatch means a vector does not have the collection dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidFilter means a filter references an unsupported field, operator or value.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidPayload means a payload does not satisfy its collection schema.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnknownCollection means the collection name is not one of the known collections.
	ErrUnknownCollection = errors.New("unknown collection")
)
