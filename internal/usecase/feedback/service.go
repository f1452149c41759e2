// Package feedback implements use cases for recording and retrieving a
// user's reactions to items (save, hide, thumbs up/down). Feedback is
// stored for later analysis; it never feeds back into scoring (see
// internal/usecase/score).
package feedback

import (
	"context"
	"fmt"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// Service provides feedback use cases, delegating persistence to the
// repository and enforcing validation before writes reach it.
type Service struct {
	Repo repository.FeedbackRepository
}

// Create records userID's reaction to rawItemID. Recording the same
// (user, item, kind) twice is not an error.
func (s *Service) Create(ctx context.Context, userID, rawItemID int64, kind entity.FeedbackKind) (*entity.Feedback, error) {
	fb := &entity.Feedback{
		UserID:    userID,
		RawItemID: rawItemID,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	if err := fb.Validate(); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return fb, nil
}

// List returns every reaction userID has recorded, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]*entity.Feedback, error) {
	items, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// ListSaved returns every item userID has saved, newest first.
func (s *Service) ListSaved(ctx context.Context, userID int64) ([]*entity.Feedback, error) {
	items, err := s.Repo.ListByUserAndKind(ctx, userID, entity.FeedbackSave)
	if err != nil {
		return nil, fmt.Errorf("list saved feedback: %w", err)
	}
	return items, nil
}

// Delete removes every reaction userID recorded against rawItemID.
func (s *Service) Delete(ctx context.Context, userID, rawItemID int64) error {
	if userID <= 0 || rawItemID <= 0 {
		return &entity.ValidationError{Field: "ID", Message: "must be a positive id"}
	}
	if err := s.Repo.Delete(ctx, userID, rawItemID); err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	return nil
}
