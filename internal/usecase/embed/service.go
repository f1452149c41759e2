// Package embed drives the third pipeline stage: turning each extracted
// item's title+body into a fixed-dimension vector and advancing it to
// embedded.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// Dimension is the fixed embedding width, matching the pgvector column.
const Dimension = 1536

// Embedder produces a vector for arbitrary text. Implemented by
// *embed.OpenAIEmbedder and *embed.DummyEmbedder in internal/infra/embed.
type Embedder interface {
	Embed(ctx context.Context, text string) (vector []float32, modelID string, provider entity.EmbeddingProvider, err error)
}

// Service runs the embedding pass over items at status "extracted".
type Service struct {
	items     repository.RawItemRepository
	content   repository.ExtractedContentRepository
	embedding repository.ItemEmbeddingRepository
	embedder  Embedder
	logger    *slog.Logger
}

// NewService builds a Service.
func NewService(items repository.RawItemRepository, content repository.ExtractedContentRepository, embedding repository.ItemEmbeddingRepository, embedder Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{items: items, content: content, embedding: embedding, embedder: embedder, logger: logger}
}

// RunResult summarizes one embedding batch.
type RunResult struct {
	Processed int
	Embedded  int
	Failed    int
}

// Run processes up to limit items at status "extracted".
func (s *Service) Run(ctx context.Context, limit int) (RunResult, error) {
	items, err := s.items.ListByStatus(ctx, entity.ItemStatusExtracted, limit)
	if err != nil {
		return RunResult{}, fmt.Errorf("listing extracted items: %w", err)
	}

	var res RunResult
	for _, item := range items {
		res.Processed++
		if err := s.processOne(ctx, item); err != nil {
			s.logger.Warn("failed to embed item", slog.Int64("item_id", item.ID), slog.Any("error", err))
			res.Failed++
			continue
		}
		res.Embedded++
	}
	return res, nil
}

func (s *Service) processOne(ctx context.Context, item *entity.RawItem) error {
	text := textForEmbedding(ctx, s.content, item)

	vector, modelID, provider, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding item: %w", err)
	}

	row := &entity.ItemEmbedding{
		RawItemID: item.ID,
		ModelID:   modelID,
		Provider:  provider,
		Dimension: int32(len(vector)),
		Vector:    vector,
		CreatedAt: time.Now(),
	}
	if err := row.Validate(); err != nil {
		return fmt.Errorf("embedding failed validation: %w", err)
	}
	if err := s.embedding.Upsert(ctx, row); err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}

	if err := s.items.UpdateStatus(ctx, item.ID, entity.ItemStatusEmbedded); err != nil {
		return fmt.Errorf("advancing item status: %w", err)
	}
	return nil
}

// textForEmbedding builds the embedding input from the item's title plus
// its best available body: extracted text when present, else raw snippet.
func textForEmbedding(ctx context.Context, content repository.ExtractedContentRepository, item *entity.RawItem) string {
	const maxChars = 8000

	body := item.RawText
	if extracted, err := content.GetByRawItemID(ctx, item.ID); err == nil && extracted != nil && extracted.Text != "" {
		body = extracted.Text
	}

	text := item.Title
	if body != "" {
		text = item.Title + " " + body
	}
	if len(text) > maxChars {
		text = text[:maxChars]
	}
	return text
}
