// Package hn implements the Hacker News ingester against the official
// Firebase-backed read API.
package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"newsbot/internal/domain/entity"
	"newsbot/internal/infra/ingest/ratelimit"
	"newsbot/internal/resilience/circuitbreaker"
	"newsbot/internal/resilience/retry"
)

const (
	baseURL    = "https://hacker-news.firebaseio.com/v0"
	itemURLFmt = "https://news.ycombinator.com/item?id=%d"

	// FetchTimeout bounds the whole listing + story fetch run.
	FetchTimeout = 30 * time.Second

	// storyFetchParallelism bounds concurrent story record fetches; the
	// token bucket below still paces the aggregate request rate.
	storyFetchParallelism = 8

	requestsPerSecond = 10.0
	requestBurst      = 10
)

// story mirrors the fields of the HN item API response that the ingester
// reads.
type story struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
	Title       string `json:"title"`
	By          string `json:"by"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
	Kids        []int  `json:"kids"`
}

// Ingester fetches a configured listing (top/new/best) and the stories on
// it.
type Ingester struct {
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// New builds an HN Ingester using httpClient for all requests.
func New(httpClient *http.Client, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		client:  httpClient,
		breaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retry:   retry.FeedFetchConfig(),
		limiter: ratelimit.New(requestsPerSecond, requestBurst),
		logger:  logger,
	}
}

// SourceType reports entity.SourceTypeHN.
func (i *Ingester) SourceType() entity.SourceType {
	return entity.SourceTypeHN
}

// Fetch pulls the listing named by the source's "story_type" config key
// (default "top") and resolves up to 100 stories from it. A failure
// fetching the listing itself fails the run; a failure fetching one story
// is logged and that story skipped.
func (i *Ingester) Fetch(ctx context.Context, src *entity.Source) ([]*entity.RawItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	storyType := src.Config["story_type"]
	if storyType == "" {
		storyType = "top"
	}

	ids, err := i.fetchListing(fetchCtx, storyType)
	if err != nil {
		return nil, fmt.Errorf("fetching %s stories listing: %w", storyType, err)
	}
	if len(ids) > 100 {
		ids = ids[:100]
	}

	// Story records are independent, so resolve them in parallel with a
	// bounded group; one story's failure is logged and skipped, context
	// cancellation aborts the whole run.
	stories := make([]*story, len(ids))
	sem := make(chan struct{}, storyFetchParallelism)
	eg, egCtx := errgroup.WithContext(fetchCtx)
	for idx, id := range ids {
		idx, id := idx, id
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			st, err := i.fetchStory(egCtx, id)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				i.logger.Warn("failed to fetch HN story", slog.Int("id", id), slog.Any("error", err))
				return nil
			}
			stories[idx] = st
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("fetching %s stories: %w", storyType, err)
	}

	items := make([]*entity.RawItem, 0, len(ids))
	for _, st := range stories {
		if st == nil {
			continue
		}
		items = append(items, normalize(src, st))
	}
	return items, nil
}

func (i *Ingester) fetchListing(ctx context.Context, storyType string) ([]int, error) {
	url := fmt.Sprintf("%s/%sstories.json", baseURL, storyType)
	var ids []int
	err := retry.WithBackoff(ctx, i.retry, func() error {
		result, cbErr := i.breaker.Execute(func() (interface{}, error) {
			return i.getJSON(ctx, url)
		})
		if cbErr != nil {
			return cbErr
		}
		return json.Unmarshal(result.([]byte), &ids)
	})
	return ids, err
}

func (i *Ingester) fetchStory(ctx context.Context, id int) (*story, error) {
	url := fmt.Sprintf("%s/item/%d.json", baseURL, id)
	var st story
	err := retry.WithBackoff(ctx, i.retry, func() error {
		result, cbErr := i.breaker.Execute(func() (interface{}, error) {
			return i.getJSON(ctx, url)
		})
		if cbErr != nil {
			return cbErr
		}
		return json.Unmarshal(result.([]byte), &st)
	})
	if err != nil {
		return nil, err
	}

	if st.Type != "story" || st.Deleted || st.Dead || strings.TrimSpace(st.Title) == "" {
		return nil, nil
	}
	return &st, nil
}

func (i *Ingester) getJSON(ctx context.Context, url string) ([]byte, error) {
	if err := i.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: url}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// normalize converts a story into a RawItem. Ask/Tell/Show HN titles are
// classified as posts; everything else is an article.
func normalize(src *entity.Source, st *story) *entity.RawItem {
	title := strings.TrimSpace(st.Title)

	itemURL := st.URL
	if itemURL == "" {
		itemURL = fmt.Sprintf(itemURLFmt, st.ID)
	}

	kind := entity.ItemKindArticle
	if strings.HasPrefix(title, "Ask HN:") || strings.HasPrefix(title, "Tell HN:") || strings.HasPrefix(title, "Show HN:") {
		kind = entity.ItemKindPost
	}

	var publishedAt *time.Time
	if st.Time > 0 {
		t := time.Unix(st.Time, 0).UTC()
		publishedAt = &t
	}

	kids := st.Kids
	if len(kids) > 10 {
		kids = kids[:10]
	}

	return &entity.RawItem{
		SourceID:     src.ID,
		ExternalID:   strconv.Itoa(st.ID),
		URL:          itemURL,
		CanonicalURL: st.URL,
		Title:        title,
		Author:       st.By,
		Kind:         kind,
		PublishedAt:  publishedAt,
		FetchedAt:    time.Now(),
		RawText:      st.Text,
		RawPayload: map[string]any{
			"hn_id":       st.ID,
			"score":       st.Score,
			"descendants": st.Descendants,
			"hn_url":      fmt.Sprintf(itemURLFmt, st.ID),
			"kids":        kids,
		},
	}
}
