package repository

import (
	"context"

	"newsbot/internal/domain/entity"
)

// UserRepository manages accounts and their preferences.
type UserRepository interface {
	Get(ctx context.Context, id int64) (*entity.User, error)
	// GetByEmail resolves the identity the auth layer's JWT subject
	// carries to a pipeline User, for endpoints scoped to "the caller".
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ListActive(ctx context.Context) ([]*entity.User, error)
	Create(ctx context.Context, user *entity.User) error

	GetPreference(ctx context.Context, userID int64) (*entity.UserPreference, error)
	UpsertPreference(ctx context.Context, pref *entity.UserPreference) error
	// ListDueForEmail returns active users with EmailDaily set whose
	// EmailTimeUTC matches the scheduler's current minute, for the email
	// queue's per-user fan-out.
	ListDueForEmail(ctx context.Context, hhmm string) ([]*entity.User, error)
}

// FeedbackRepository stores user reactions to items.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *entity.Feedback) error
	ListByUser(ctx context.Context, userID int64) ([]*entity.Feedback, error)
	// ListByUserAndKind narrows ListByUser to a single reaction kind, e.g.
	// "save" for GET /feedback/saved.
	ListByUserAndKind(ctx context.Context, userID int64, kind entity.FeedbackKind) ([]*entity.Feedback, error)
	// Delete removes every reaction a user recorded against an item,
	// regardless of kind. Deleting a non-existent row is not an error.
	Delete(ctx context.Context, userID, rawItemID int64) error
}
