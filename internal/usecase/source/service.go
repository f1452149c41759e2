// Package source provides use cases for managing the catalog of
// registered ingestion sources (feeds, Hacker News, Reddit).
package source

import (
	"context"
	"errors"
	"fmt"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// CreateInput represents the input parameters for registering a new source.
type CreateInput struct {
	Name            string
	Type            entity.SourceType
	URL             string
	Category        string
	CredibilityTier int
	Config          map[string]string
}

// UpdateInput represents the input parameters for updating an existing
// source. Zero-value string/int fields and a nil Enabled leave the
// corresponding column unchanged; a nil Config leaves it unchanged too.
type UpdateInput struct {
	ID              int64
	Name            string
	Category        string
	CredibilityTier int
	Enabled         *bool
	Config          map[string]string
}

// Service provides source management use cases, delegating persistence to
// the repository and enforcing validation before writes reach it.
type Service struct {
	Repo repository.SourceRepository
}

// List retrieves every registered source, active or not.
func (s *Service) List(ctx context.Context) ([]*entity.Source, error) {
	sources, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

// ListActive retrieves only enabled sources, the set ingesters fetch from.
func (s *Service) ListActive(ctx context.Context) ([]*entity.Source, error) {
	sources, err := s.Repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	return sources, nil
}

// Get retrieves a single source by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Source, error) {
	src, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return src, nil
}

// Create registers a new source after validating its fields.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Source, error) {
	src := &entity.Source{
		Name:            in.Name,
		Type:            in.Type,
		URL:             in.URL,
		Category:        in.Category,
		CredibilityTier: in.CredibilityTier,
		Enabled:         true,
		Config:          in.Config,
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	return src, nil
}

// Update modifies an existing source's mutable fields.
func (s *Service) Update(ctx context.Context, in UpdateInput) error {
	if in.ID <= 0 {
		return &entity.ValidationError{Field: "ID", Message: "must be a positive id"}
	}

	src, err := s.Repo.Get(ctx, in.ID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("get source: %w", err)
	}

	if in.Name != "" {
		src.Name = in.Name
	}
	if in.Category != "" {
		src.Category = in.Category
	}
	if in.CredibilityTier != 0 {
		src.CredibilityTier = in.CredibilityTier
	}
	if in.Enabled != nil {
		src.Enabled = *in.Enabled
	}
	if in.Config != nil {
		src.Config = in.Config
	}

	if err := src.Validate(); err != nil {
		return err
	}
	if err := s.Repo.Update(ctx, src); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// Delete removes a source from the catalog. Its raw items cascade-delete
// at the database layer, so callers should disable a source instead if
// its ingestion history needs to be kept.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return &entity.ValidationError{Field: "ID", Message: "must be a positive id"}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}
