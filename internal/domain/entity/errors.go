package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidEmbeddingType indicates an embedding_type outside the allowed set
	ErrInvalidEmbeddingType = errors.New("invalid embedding type")

	// ErrInvalidEmbeddingProvider indicates a provider outside the allowed set
	ErrInvalidEmbeddingProvider = errors.New("invalid embedding provider")

	// ErrEmptyEmbedding indicates a nil or zero-length embedding vector
	ErrEmptyEmbedding = errors.New("embedding vector is empty")

	// ErrInvalidEmbeddingDimension indicates dimension does not match len(vector)
	ErrInvalidEmbeddingDimension = errors.New("embedding dimension does not match vector length")

	// ErrDuplicateItem indicates an item already exists for (source_id, external_id)
	ErrDuplicateItem = errors.New("item already exists for source and external id")

	// ErrAlreadyBriefed indicates a briefing already exists for the scope and day
	ErrAlreadyBriefed = errors.New("briefing already generated for this scope today")

	// ErrSourceDisabled indicates an ingest was attempted against a source
	// with Enabled = false
	ErrSourceDisabled = errors.New("source is disabled")

	// ErrAlreadyClustered indicates an item already belongs to a cluster
	// and cannot be joined to another
	ErrAlreadyClustered = errors.New("item already belongs to a cluster")

	// ErrCostCapExceeded indicates a per-hour or per-user-day AI call
	// ceiling has been reached
	ErrCostCapExceeded = errors.New("cost cap exceeded")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
