package entity

import "time"

// EmbeddingProvider identifies which service produced an embedding vector.
type EmbeddingProvider string

const (
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
	EmbeddingProviderDummy  EmbeddingProvider = "dummy"
)

// IsValid reports whether p is a known provider.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderOpenAI, EmbeddingProviderDummy:
		return true
	default:
		return false
	}
}

// ItemEmbedding is the fixed-dimension vector representation of a RawItem's
// title plus best-available body text. It has a 1:1 relationship with its
// RawItem and is created once, when the embedder succeeds.
type ItemEmbedding struct {
	RawItemID int64
	ModelID   string
	Provider  EmbeddingProvider
	Dimension int32
	Vector    []float32
	CreatedAt time.Time
}

// Validate checks the embedding's required fields and that Dimension
// matches the actual vector length.
func (e *ItemEmbedding) Validate() error {
	if e.RawItemID <= 0 {
		return &ValidationError{Field: "RawItemID", Message: "must be a positive id"}
	}
	if !e.Provider.IsValid() {
		return ErrInvalidEmbeddingProvider
	}
	if len(e.Vector) == 0 {
		return ErrEmptyEmbedding
	}
	if int(e.Dimension) != len(e.Vector) {
		return ErrInvalidEmbeddingDimension
	}
	return nil
}
