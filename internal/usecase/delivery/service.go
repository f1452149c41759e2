// Package delivery implements the final pipeline stage: mailing each due
// user's latest briefing. It runs independently of briefing generation —
// a user whose briefing failed to generate today is simply skipped, not
// retried here, since generation and delivery are separate queues.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/repository"
)

// Mailer sends a rendered briefing to a single recipient. Implemented by
// internal/infra/email.Sender; declared here so this package never
// imports the infra layer.
type Mailer interface {
	Send(ctx context.Context, to, subject, markdown string) error
}

type Service struct {
	users     repository.UserRepository
	briefings repository.BriefingRepository
	mailer    Mailer
	logger    *slog.Logger
}

func NewService(users repository.UserRepository, briefings repository.BriefingRepository, mailer Mailer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, briefings: briefings, mailer: mailer, logger: logger}
}

// RunResult summarizes one delivery pass.
type RunResult struct {
	UsersDue int
	Sent     int
	Skipped  int
	Failed   int
}

// DeliverDue sends today's briefing to every active user whose
// EmailTimeUTC equals hhmm exactly (e.g. "07:00"); the worker passes the
// UTC time of its email cron tick.
func (s *Service) DeliverDue(ctx context.Context, hhmm string) (RunResult, error) {
	var result RunResult

	users, err := s.users.ListDueForEmail(ctx, hhmm)
	if err != nil {
		return result, fmt.Errorf("listing users due for email: %w", err)
	}
	result.UsersDue = len(users)

	for _, user := range users {
		scope := entity.UserScope(user.ID)
		b, err := s.briefings.LatestForScope(ctx, scope)
		if err != nil {
			s.logger.Error("loading latest briefing failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
			result.Failed++
			continue
		}
		if b == nil || !isToday(b.CreatedAt) {
			s.logger.Warn("no fresh briefing to deliver, skipping", slog.Int64("user_id", user.ID))
			result.Skipped++
			continue
		}

		subject := subjectFor(b.PeriodEnd)
		if err := s.mailer.Send(ctx, user.Email, subject, b.SummaryMD); err != nil {
			s.logger.Error("sending briefing email failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
			result.Failed++
			continue
		}
		result.Sent++
	}

	return result, nil
}

func isToday(t time.Time) bool {
	now := time.Now().UTC()
	y1, m1, d1 := t.UTC().Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func subjectFor(t time.Time) string {
	return "Daily Intelligence Briefing — " + t.UTC().Format("January 2, 2006")
}
