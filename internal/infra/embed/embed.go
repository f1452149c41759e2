// Package embed implements the embedding stage: an OpenAI-backed client
// when credentials are configured, falling back to a deterministic vector
// generator for development.
package embed

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sony/gobreaker"
	openai "github.com/sashabaranov/go-openai"

	"newsbot/internal/domain/entity"
	"newsbot/internal/observability/metrics"
	"newsbot/internal/resilience/circuitbreaker"
	"newsbot/internal/resilience/retry"
)

// Dimension is the fixed vector size produced by both the OpenAI model and
// the dummy fallback, matching the pgvector column width.
const Dimension = 1536

// Model is the OpenAI embedding model identifier used when a key is
// configured.
const Model = "text-embedding-ada-002"

// MaxInputChars bounds the text sent to the embedding provider.
const MaxInputChars = 8000

// Embedder produces a fixed-dimension vector for arbitrary text.
type Embedder interface {
	Embed(ctx context.Context, text string) (vector []float32, modelID string, provider entity.EmbeddingProvider, err error)
}

// CapChecker gates a costed call behind a per-hour ceiling. Implemented
// by costcap.Unkeyed; declared locally so this package never imports
// internal/resilience/costcap.
type CapChecker interface {
	Allow(ctx context.Context) error
}

// OpenAIEmbedder calls OpenAI's embeddings API, wrapped in a circuit
// breaker and retry like the rest of the outbound AI calls.
type OpenAIEmbedder struct {
	client   *openai.Client
	breaker  *circuitbreaker.CircuitBreaker
	retry    retry.Config
	capCheck CapChecker // nil disables the check
	logger   *slog.Logger
}

// NewOpenAIEmbedder builds an OpenAIEmbedder. apiKey must be non-empty;
// callers should fall back to NewDummyEmbedder when it's not configured.
// capCheck may be nil to disable the MAX_EMBEDDINGS_PER_HOUR gate.
func NewOpenAIEmbedder(apiKey string, capCheck CapChecker, logger *slog.Logger) *OpenAIEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIEmbedder{
		client:   openai.NewClient(apiKey),
		breaker:  circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retry:    retry.AIAPIConfig(),
		capCheck: capCheck,
		logger:   logger,
	}
}

// Embed returns the ada-002 embedding for text, truncated to MaxInputChars.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, string, entity.EmbeddingProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if e.capCheck != nil {
		if err := e.capCheck.Allow(ctx); err != nil {
			return nil, "", "", fmt.Errorf("embedding rejected by cost cap: %w", err)
		}
	}

	if len(text) > MaxInputChars {
		text = text[:MaxInputChars]
	}

	var vector []float32
	retryErr := retry.WithBackoff(ctx, e.retry, func() error {
		result, err := e.breaker.Execute(func() (interface{}, error) {
			resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: []string{text},
				Model: openai.AdaEmbeddingV2,
			})
			if err != nil {
				return nil, err
			}
			if len(resp.Data) == 0 {
				return nil, fmt.Errorf("openai embeddings api returned empty response")
			}
			return resp.Data[0].Embedding, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("openai embeddings api unavailable: circuit breaker open")
			}
			return err
		}
		vector = result.([]float32)
		return nil
	})
	if retryErr != nil {
		return nil, "", "", fmt.Errorf("openai embed failed after retries: %w", retryErr)
	}

	metrics.ItemsEmbeddedTotal.WithLabelValues(Model).Inc()
	return vector, Model, entity.EmbeddingProviderOpenAI, nil
}

// DummyEmbedder produces a deterministic pseudo-random vector derived from
// a sha256 hash of the input text, for development and tests where no
// embedding provider is configured. It is seeded, not random, so the same
// text always yields the same vector.
type DummyEmbedder struct {
	logger *slog.Logger
}

// NewDummyEmbedder builds a DummyEmbedder.
func NewDummyEmbedder(logger *slog.Logger) *DummyEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DummyEmbedder{logger: logger}
}

// Embed deterministically derives a unit vector from text's hash.
func (e *DummyEmbedder) Embed(_ context.Context, text string) ([]float32, string, entity.EmbeddingProvider, error) {
	e.logger.Warn("embedding provider not configured, using deterministic dummy vector")

	vec := deterministicVector(text, Dimension)
	metrics.ItemsEmbeddedTotal.WithLabelValues("dummy").Inc()
	return vec, "dummy-hash-v1", entity.EmbeddingProviderDummy, nil
}

// deterministicVector expands a sha256 digest of seed into a unit-norm
// vector of the given dimension using a simple counter-mode stream.
func deterministicVector(seed string, dim int) []float32 {
	vec := make([]float32, dim)
	block := sha256.Sum256([]byte(seed))
	stream := block[:]
	for i := 0; i < dim; i++ {
		if i%len(stream) == 0 && i > 0 {
			next := sha256.Sum256(append(stream, byte(i)))
			stream = next[:]
		}
		b := stream[i%len(stream)]
		vec[i] = (float32(b)/127.5 - 1.0)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
