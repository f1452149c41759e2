// Package briefing implements the sixth pipeline stage: selecting each
// scope's (a user, or the shared global digest) high-signal candidate
// items over the trailing day and composing them into a ranked markdown
// briefing, once per scope per UTC day.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/observability/metrics"
	"newsbot/internal/repository"
)

// DefaultNumItems is how many ranked items a briefing carries absent an
// explicit override.
const DefaultNumItems = 10

// DefaultTargetWords is the composer's target word budget for LLM output.
const DefaultTargetWords = 600

// HighSignalThreshold is the minimum signal score a candidate item needs
// to be eligible for a briefing.
const HighSignalThreshold = 0.6

// candidateWindow bounds how far back candidate items are drawn from.
const candidateWindow = 24 * time.Hour

// Candidate is one item eligible for inclusion in a briefing, with the
// display fields a composer needs without re-querying the database.
type Candidate struct {
	RawItemID   int64
	Title       string
	URL         string
	Source      string
	Category    string
	PublishedAt *time.Time
	SignalScore float64
	Snippet     string
}

// ComposeResult is a composer's output: the rendered markdown and which
// candidates it actually used, in rank order.
type ComposeResult struct {
	Markdown  string
	ItemsUsed []int64
}

// Composer turns a ranked candidate set into a briefing. Implemented by
// *TemplateComposer here and *llm.BriefingComposer in internal/infra/llm.
type Composer interface {
	Compose(ctx context.Context, candidates []Candidate, focusAreas string, targetWords int) (*ComposeResult, error)
}

// CostGate gates a scope's LLM composition behind a per-scope-per-day
// budget. Implemented by a costcap.Keyed built fresh per scope, since the
// key (the scope itself) isn't known until generate() runs.
type CostGate interface {
	Allow(ctx context.Context) error
}

// Service drives briefing generation for a scope.
type Service struct {
	items     repository.RawItemRepository
	content   repository.ExtractedContentRepository
	sources   repository.SourceRepository
	scores    repository.ItemScoreRepository
	users     repository.UserRepository
	briefings repository.BriefingRepository
	composer  Composer
	fallback  Composer // used in place of composer when costGate denies
	costGate  func(scope string) CostGate
	numItems  int
	logger    *slog.Logger
}

// NewService builds a Service. numItems <= 0 falls back to DefaultNumItems.
// fallback is the deterministic composer used when costGate denies a
// scope's LLM budget; pass nil costGate to skip the cost-cap check.
func NewService(
	items repository.RawItemRepository,
	content repository.ExtractedContentRepository,
	sources repository.SourceRepository,
	scores repository.ItemScoreRepository,
	users repository.UserRepository,
	briefings repository.BriefingRepository,
	composer Composer,
	fallback Composer,
	costGate func(scope string) CostGate,
	numItems int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if numItems <= 0 {
		numItems = DefaultNumItems
	}
	return &Service{
		items: items, content: content, sources: sources, scores: scores,
		users: users, briefings: briefings, composer: composer, fallback: fallback,
		costGate: costGate, numItems: numItems, logger: logger,
	}
}

// utcMidnight returns the start of t's UTC calendar day.
func utcMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GenerateForUser composes and persists a briefing for userID. Unless
// force is true, it refuses with entity.ErrAlreadyBriefed if one already
// exists since today's UTC midnight.
func (s *Service) GenerateForUser(ctx context.Context, userID int64, force bool) (*entity.Briefing, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	scope := entity.UserScope(userID)
	if !force {
		exists, err := s.briefings.ExistsForScopeSince(ctx, scope, utcMidnight(time.Now()))
		if err != nil {
			return nil, fmt.Errorf("checking briefing idempotency: %w", err)
		}
		if exists {
			return nil, entity.ErrAlreadyBriefed
		}
	}

	pref, err := s.users.GetPreference(ctx, userID)
	if err != nil {
		pref = nil
	}

	return s.generate(ctx, scope, pref)
}

// GenerateGlobal composes and persists the shared global digest, subject
// to the same day-idempotency rule.
func (s *Service) GenerateGlobal(ctx context.Context, force bool) (*entity.Briefing, error) {
	if !force {
		exists, err := s.briefings.ExistsForScopeSince(ctx, entity.GlobalScope, utcMidnight(time.Now()))
		if err != nil {
			return nil, fmt.Errorf("checking briefing idempotency: %w", err)
		}
		if exists {
			return nil, entity.ErrAlreadyBriefed
		}
	}
	return s.generate(ctx, entity.GlobalScope, nil)
}

func (s *Service) generate(ctx context.Context, scope string, pref *entity.UserPreference) (*entity.Briefing, error) {
	candidates, err := s.selectCandidates(ctx, pref)
	if err != nil {
		return nil, fmt.Errorf("selecting candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no high-signal candidates available for %s", scope)
	}

	focusAreas := "general technology news"
	if pref != nil && len(pref.Topics) > 0 {
		focusAreas = topicsJoin(pref.Topics)
	}

	composer := s.composer
	if s.costGate != nil && s.fallback != nil {
		if err := s.costGate(scope).Allow(ctx); err != nil {
			s.logger.Warn("llm composition budget exhausted, using template composer",
				slog.String("scope", scope), slog.Any("error", err))
			composer = s.fallback
		}
	}

	result, err := composer.Compose(ctx, candidates, focusAreas, DefaultTargetWords)
	if err != nil {
		return nil, fmt.Errorf("composing briefing: %w", err)
	}

	now := time.Now()
	briefingRow := &entity.Briefing{
		Scope:       scope,
		PeriodStart: now.Add(-candidateWindow),
		PeriodEnd:   now,
		SummaryMD:   result.Markdown,
		Meta:        map[string]any{"candidate_count": len(candidates)},
		CreatedAt:   now,
	}
	if err := briefingRow.Validate(); err != nil {
		return nil, fmt.Errorf("briefing failed validation: %w", err)
	}

	byID := make(map[int64]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.RawItemID] = c
	}

	items := make([]*entity.BriefingItem, 0, len(result.ItemsUsed))
	for rank, itemID := range result.ItemsUsed {
		c, ok := byID[itemID]
		if !ok {
			s.logger.Warn("composer referenced an item outside the candidate set",
				slog.Int64("item_id", itemID), slog.String("scope", scope))
			continue
		}
		items = append(items, &entity.BriefingItem{
			Rank:         rank + 1,
			RawItemID:    c.RawItemID,
			Title:        c.Title,
			OneLiner:     truncateSnippet(c.Snippet, 200),
			WhyItMatters: "high signal item",
			Confidence:   entity.ConfidenceMedium,
			SignalScore:  c.SignalScore,
			Sources:      []string{c.Source},
		})
	}

	id, err := s.briefings.Create(ctx, briefingRow, items)
	if err != nil {
		return nil, fmt.Errorf("saving briefing: %w", err)
	}
	briefingRow.ID = id

	metrics.BriefingsGeneratedTotal.Inc()
	s.logger.Info("generated briefing",
		slog.String("scope", scope), slog.Int64("briefing_id", id), slog.Int("items", len(items)))
	return briefingRow, nil
}

// Get returns a briefing by id along with its ranked items.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Briefing, []*entity.BriefingItem, error) {
	b, err := s.briefings.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get briefing: %w", err)
	}
	items, err := s.briefings.GetItems(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get briefing items: %w", err)
	}
	return b, items, nil
}

// LatestForScope returns the most recently generated briefing for scope
// along with its ranked items.
func (s *Service) LatestForScope(ctx context.Context, scope string) (*entity.Briefing, []*entity.BriefingItem, error) {
	b, err := s.briefings.LatestForScope(ctx, scope)
	if err != nil {
		return nil, nil, fmt.Errorf("latest briefing: %w", err)
	}
	items, err := s.briefings.GetItems(ctx, b.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get briefing items: %w", err)
	}
	return b, items, nil
}

// ListForScope returns scope's briefings newest-first, bounded by limit.
func (s *Service) ListForScope(ctx context.Context, scope string, limit int) ([]*entity.Briefing, error) {
	briefings, err := s.briefings.ListForScope(ctx, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("list briefings: %w", err)
	}
	return briefings, nil
}

// RunResult summarizes one GenerateAllPending batch.
type RunResult struct {
	UsersProcessed     int
	BriefingsGenerated int
	Failed             int
}

// GenerateAllPending generates briefings for every active user who doesn't
// already have one since today's UTC midnight, continuing past individual
// failures.
func (s *Service) GenerateAllPending(ctx context.Context) (RunResult, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("listing active users: %w", err)
	}

	var res RunResult
	for _, u := range users {
		res.UsersProcessed++
		_, err := s.GenerateForUser(ctx, u.ID, false)
		if err != nil {
			if errors.Is(err, entity.ErrAlreadyBriefed) {
				continue
			}
			s.logger.Warn("briefing generation failed for user",
				slog.Int64("user_id", u.ID), slog.Any("error", err))
			res.Failed++
			continue
		}
		res.BriefingsGenerated++
	}
	return res, nil
}

// selectCandidates loads the trailing-day high-signal score rows,
// restricted to the user's preferred topics when set, and returns the top
// 2*numItems by signal score (the composer then keeps at most numItems).
// The topic restriction happens inside the score query, before its limit:
// filtering the global top-2N afterwards would starve a topic-scoped user
// whose stories rank below the global cut.
func (s *Service) selectCandidates(ctx context.Context, pref *entity.UserPreference) ([]Candidate, error) {
	since := time.Now().Add(-candidateWindow)

	var topics []string
	if pref != nil {
		topics = pref.Topics
	}

	scores, err := s.scores.ListCandidates(ctx, since, HighSignalThreshold, topics, s.numItems*2)
	if err != nil {
		return nil, fmt.Errorf("listing score candidates: %w", err)
	}

	candidates := make([]Candidate, 0, len(scores))
	for _, sc := range scores {
		item, err := s.items.Get(ctx, sc.RawItemID)
		if err != nil {
			continue
		}
		src, err := s.sources.Get(ctx, item.SourceID)
		if err != nil {
			continue
		}

		snippet := item.RawText
		if extracted, err := s.content.GetByRawItemID(ctx, item.ID); err == nil && extracted != nil && extracted.Text != "" {
			snippet = extracted.Text
		}

		candidates = append(candidates, Candidate{
			RawItemID:   item.ID,
			Title:       item.Title,
			URL:         item.URL,
			Source:      src.Name,
			Category:    src.Category,
			PublishedAt: item.PublishedAt,
			SignalScore: sc.SignalScore,
			Snippet:     truncateSnippet(snippet, 500),
		})
		if len(candidates) >= s.numItems*2 {
			break
		}
	}
	return candidates, nil
}

func truncateSnippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func topicsJoin(topics []string) string {
	out := topics[0]
	for _, t := range topics[1:] {
		out += ", " + t
	}
	return out
}
