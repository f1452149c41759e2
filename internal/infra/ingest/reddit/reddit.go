// Package reddit implements the subreddit ingester against Reddit's OAuth
// API, falling back to the public JSON endpoint when credentials are
// missing or auth fails.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"newsbot/internal/domain/entity"
	"newsbot/internal/infra/ingest/ratelimit"
	"newsbot/internal/pkg/textutil"
	"newsbot/internal/resilience/circuitbreaker"
	"newsbot/internal/resilience/retry"
)

const (
	oauthBaseURL = "https://oauth.reddit.com"
	authURL      = "https://www.reddit.com/api/v1/access_token"
	publicURL    = "https://www.reddit.com"
	userAgent    = "newsbot/1.0 (briefing ingester)"

	maxSelftextChars = 2000

	// FetchTimeout bounds a single subreddit fetch, including auth.
	FetchTimeout = 30 * time.Second

	// Reddit expects clients to stay around 60 requests per minute.
	requestsPerSecond = 1.0
	requestBurst      = 2
)

type postData struct {
	ID                 string  `json:"id"`
	Title              string  `json:"title"`
	Author             string  `json:"author"`
	Subreddit          string  `json:"subreddit"`
	URL                string  `json:"url"`
	Permalink          string  `json:"permalink"`
	Selftext           string  `json:"selftext"`
	IsSelf             bool    `json:"is_self"`
	Removed            bool    `json:"removed"`
	RemovedByCategory  string  `json:"removed_by_category"`
	Score              int     `json:"score"`
	UpvoteRatio        float64 `json:"upvote_ratio"`
	NumComments        int     `json:"num_comments"`
	LinkFlairText      string  `json:"link_flair_text"`
	Over18             bool    `json:"over_18"`
	Spoiler            bool    `json:"spoiler"`
	CreatedUTC         float64 `json:"created_utc"`
}

type listing struct {
	Data struct {
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Ingester fetches posts from a subreddit, named by the source's
// "subreddit" config key.
type Ingester struct {
	client       *http.Client
	clientID     string
	clientSecret string
	breaker      *circuitbreaker.CircuitBreaker
	retry        retry.Config
	limiter      *ratelimit.Limiter
	logger       *slog.Logger

	mu    sync.Mutex
	token string
}

// New builds a Reddit Ingester. clientID/clientSecret may be empty, in
// which case Fetch always uses the public JSON endpoint.
func New(httpClient *http.Client, clientID, clientSecret string, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		client:       httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
		breaker:      circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retry:        retry.FeedFetchConfig(),
		limiter:      ratelimit.New(requestsPerSecond, requestBurst),
		logger:       logger,
	}
}

// SourceType reports entity.SourceTypeReddit.
func (i *Ingester) SourceType() entity.SourceType {
	return entity.SourceTypeReddit
}

// Fetch pulls a subreddit listing. sort and time filter config keys
// default to "hot"/"day".
func (i *Ingester) Fetch(ctx context.Context, src *entity.Source) ([]*entity.RawItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	subreddit := src.Config["subreddit"]
	if subreddit == "" {
		return nil, fmt.Errorf("source %d has no subreddit configured", src.ID)
	}
	sort := src.Config["sort"]
	if sort == "" {
		sort = "hot"
	}
	timeFilter := src.Config["time"]
	if timeFilter == "" {
		timeFilter = "day"
	}

	var (
		lst *listing
		err error
	)
	if i.clientID != "" && i.clientSecret != "" {
		lst, err = i.fetchAuthenticated(fetchCtx, subreddit, sort, timeFilter)
		if err != nil {
			i.logger.Warn("reddit auth failed, falling back to public endpoint",
				slog.String("subreddit", subreddit), slog.Any("error", err))
			lst, err = i.fetchPublic(fetchCtx, subreddit, sort, timeFilter)
		}
	} else {
		lst, err = i.fetchPublic(fetchCtx, subreddit, sort, timeFilter)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching r/%s: %w", subreddit, err)
	}

	items := make([]*entity.RawItem, 0, len(lst.Data.Children))
	for _, child := range lst.Data.Children {
		item := normalize(src, &child.Data)
		if item == nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (i *Ingester) fetchAuthenticated(ctx context.Context, subreddit, sort, timeFilter string) (*listing, error) {
	token, err := i.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/r/%s/%s?limit=100&t=%s", oauthBaseURL, subreddit, sort, timeFilter)
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"User-Agent":    userAgent,
	}
	return i.getListing(ctx, reqURL, headers)
}

// fetchPublic falls back to the unauthenticated JSON endpoint, which is
// rate-limited harder, so the item count is capped at 25.
func (i *Ingester) fetchPublic(ctx context.Context, subreddit, sort, timeFilter string) (*listing, error) {
	reqURL := fmt.Sprintf("%s/r/%s/%s.json?limit=25&t=%s", publicURL, subreddit, sort, timeFilter)
	return i.getListing(ctx, reqURL, map[string]string{"User-Agent": userAgent})
}

func (i *Ingester) accessToken(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.token != "" {
		return i.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}

	var token string
	err := retry.WithBackoff(ctx, i.retry, func() error {
		result, cbErr := i.breaker.Execute(func() (interface{}, error) {
			// Rebuilt per attempt: the form body reader is consumed by
			// each send.
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
			if err != nil {
				return nil, err
			}
			req.SetBasicAuth(i.clientID, i.clientSecret)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("User-Agent", userAgent)

			if err := i.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			resp, err := i.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= 400 {
				return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "reddit oauth token"}
			}
			return io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		})
		if cbErr != nil {
			return cbErr
		}
		var body struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(result.([]byte), &body); err != nil {
			return err
		}
		token = body.AccessToken
		return nil
	})
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("reddit oauth token response had no access_token")
	}

	i.token = token
	return token, nil
}

func (i *Ingester) getListing(ctx context.Context, reqURL string, headers map[string]string) (*listing, error) {
	var lst listing
	err := retry.WithBackoff(ctx, i.retry, func() error {
		result, cbErr := i.breaker.Execute(func() (interface{}, error) {
			if err := i.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return nil, err
			}
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			resp, err := i.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode >= 400 {
				return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: reqURL}
			}
			return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		})
		if cbErr != nil {
			return cbErr
		}
		return json.Unmarshal(result.([]byte), &lst)
	})
	return &lst, err
}

// normalize converts a Reddit post into a RawItem, or returns nil if the
// post should be skipped (removed, deleted, or missing a title).
func normalize(src *entity.Source, p *postData) *entity.RawItem {
	if p.ID == "" {
		return nil
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil
	}
	if p.Removed || p.RemovedByCategory != "" {
		return nil
	}

	permalink := "https://reddit.com" + p.Permalink
	itemURL := p.URL
	if itemURL == "" || strings.HasPrefix(itemURL, "/r/") {
		itemURL = permalink
	}

	kind := entity.ItemKindPost
	var canonicalURL string
	if !p.IsSelf && p.URL != "" {
		kind = entity.ItemKindArticle
		canonicalURL = p.URL
	}

	var publishedAt *time.Time
	if p.CreatedUTC > 0 {
		t := time.Unix(int64(p.CreatedUTC), 0).UTC()
		publishedAt = &t
	}

	return &entity.RawItem{
		SourceID:     src.ID,
		ExternalID:   p.ID,
		URL:          itemURL,
		CanonicalURL: canonicalURL,
		Title:        title,
		Author:       p.Author,
		Kind:         kind,
		PublishedAt:  publishedAt,
		FetchedAt:    time.Now(),
		RawText:      textutil.Truncate(p.Selftext, maxSelftextChars),
		RawPayload: map[string]any{
			"subreddit":     p.Subreddit,
			"score":         p.Score,
			"upvote_ratio":  p.UpvoteRatio,
			"num_comments":  p.NumComments,
			"flair":         p.LinkFlairText,
			"permalink":     permalink,
			"nsfw":          p.Over18,
			"spoiler":       p.Spoiler,
		},
	}
}
