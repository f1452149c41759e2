package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validEmbedding() *ItemEmbedding {
	return &ItemEmbedding{
		RawItemID: 100,
		ModelID:   "text-embedding-ada-002",
		Provider:  EmbeddingProviderOpenAI,
		Dimension: 1536,
		Vector:    make([]float32, 1536),
		CreatedAt: time.Now(),
	}
}

func TestEmbeddingProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		ep       EmbeddingProvider
		expected bool
	}{
		{"openai is valid", EmbeddingProviderOpenAI, true},
		{"dummy is valid", EmbeddingProviderDummy, true},
		{"empty is invalid", EmbeddingProvider(""), false},
		{"unknown is invalid", EmbeddingProvider("voyage"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ep.IsValid())
		})
	}
}

func TestItemEmbedding_Validate(t *testing.T) {
	t.Run("valid embedding passes", func(t *testing.T) {
		assert.NoError(t, validEmbedding().Validate())
	})

	t.Run("zero raw item id fails", func(t *testing.T) {
		e := validEmbedding()
		e.RawItemID = 0
		assert.Error(t, e.Validate())
	})

	t.Run("invalid provider fails", func(t *testing.T) {
		e := validEmbedding()
		e.Provider = EmbeddingProvider("invalid")
		assert.ErrorIs(t, e.Validate(), ErrInvalidEmbeddingProvider)
	})

	t.Run("nil vector fails", func(t *testing.T) {
		e := validEmbedding()
		e.Vector = nil
		assert.ErrorIs(t, e.Validate(), ErrEmptyEmbedding)
	})

	t.Run("dimension mismatch fails", func(t *testing.T) {
		e := validEmbedding()
		e.Dimension = 1024
		assert.ErrorIs(t, e.Validate(), ErrInvalidEmbeddingDimension)
	})
}

func BenchmarkItemEmbedding_Validate(b *testing.B) {
	e := validEmbedding()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Validate()
	}
}
