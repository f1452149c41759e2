package feedback_test

import (
	"context"
	"testing"

	"newsbot/internal/domain/entity"
	"newsbot/internal/usecase/feedback"
)

type fakeRepo struct {
	created []*entity.Feedback
	deleted [][2]int64
}

func (f *fakeRepo) Create(_ context.Context, fb *entity.Feedback) error {
	f.created = append(f.created, fb)
	return nil
}
func (f *fakeRepo) ListByUser(_ context.Context, userID int64) ([]*entity.Feedback, error) {
	var out []*entity.Feedback
	for _, fb := range f.created {
		if fb.UserID == userID {
			out = append(out, fb)
		}
	}
	return out, nil
}
func (f *fakeRepo) ListByUserAndKind(_ context.Context, userID int64, kind entity.FeedbackKind) ([]*entity.Feedback, error) {
	var out []*entity.Feedback
	for _, fb := range f.created {
		if fb.UserID == userID && fb.Kind == kind {
			out = append(out, fb)
		}
	}
	return out, nil
}
func (f *fakeRepo) Delete(_ context.Context, userID, rawItemID int64) error {
	f.deleted = append(f.deleted, [2]int64{userID, rawItemID})
	return nil
}

func TestCreate_ValidKind_Succeeds(t *testing.T) {
	repo := &fakeRepo{}
	svc := &feedback.Service{Repo: repo}

	fb, err := svc.Create(context.Background(), 1, 10, entity.FeedbackSave)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.UserID != 1 || fb.RawItemID != 10 || fb.Kind != entity.FeedbackSave {
		t.Fatalf("unexpected feedback record: %+v", fb)
	}
	if len(repo.created) != 1 {
		t.Fatalf("want 1 record persisted, got %d", len(repo.created))
	}
}

func TestCreate_InvalidKind_RejectedBeforeRepo(t *testing.T) {
	repo := &fakeRepo{}
	svc := &feedback.Service{Repo: repo}

	if _, err := svc.Create(context.Background(), 1, 10, entity.FeedbackKind("bogus")); err == nil {
		t.Fatalf("expected a validation error for an unknown feedback kind")
	}
	if len(repo.created) != 0 {
		t.Fatalf("invalid feedback must never reach the repository, got %d writes", len(repo.created))
	}
}

func TestCreate_DuplicateReaction_NotAnError(t *testing.T) {
	repo := &fakeRepo{}
	svc := &feedback.Service{Repo: repo}

	if _, err := svc.Create(context.Background(), 1, 10, entity.FeedbackSave); err != nil {
		t.Fatalf("unexpected error on first save: %v", err)
	}
	if _, err := svc.Create(context.Background(), 1, 10, entity.FeedbackSave); err != nil {
		t.Fatalf("recording the same reaction twice must not error: %v", err)
	}
	if len(repo.created) != 2 {
		t.Fatalf("want both writes to reach the repository, got %d", len(repo.created))
	}
}

func TestListSaved_FiltersByKind(t *testing.T) {
	repo := &fakeRepo{}
	svc := &feedback.Service{Repo: repo}
	svc.Create(context.Background(), 1, 10, entity.FeedbackSave)
	svc.Create(context.Background(), 1, 11, entity.FeedbackHide)

	saved, err := svc.ListSaved(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 1 || saved[0].RawItemID != 10 {
		t.Fatalf("want only the saved item, got %+v", saved)
	}
}

func TestDelete_RejectsNonPositiveIDs(t *testing.T) {
	repo := &fakeRepo{}
	svc := &feedback.Service{Repo: repo}

	if err := svc.Delete(context.Background(), 0, 10); err == nil {
		t.Fatalf("expected an error for a non-positive user id")
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("repository should not be called for an invalid id, got %d calls", len(repo.deleted))
	}
}

func TestDelete_ValidIDs_DelegatesToRepo(t *testing.T) {
	repo := &fakeRepo{}
	svc := &feedback.Service{Repo: repo}

	if err := svc.Delete(context.Background(), 1, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != [2]int64{1, 10} {
		t.Fatalf("want the delete delegated to the repository, got %+v", repo.deleted)
	}
}
