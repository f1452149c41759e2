// Package feed implements the syndication feed ingester: fetch a feed URL,
// parse it with gofeed, and normalize entries into entity.RawItem.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"newsbot/internal/domain/entity"
	"newsbot/internal/pkg/textutil"
	"newsbot/internal/resilience/circuitbreaker"
	"newsbot/internal/resilience/retry"
)

// maxSnippetChars bounds the raw text snippet stored per entry.
const maxSnippetChars = 2000

// FetchTimeout bounds a single feed fetch, including redirects.
const FetchTimeout = 30 * time.Second

// Ingester fetches and parses RSS/Atom feeds.
type Ingester struct {
	client  *http.Client
	parser  *gofeed.Parser
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	logger  *slog.Logger
}

// New builds a feed Ingester using httpClient for fetches. httpClient is
// expected to follow redirects and enforce TLS 1.2+.
func New(httpClient *http.Client, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.Client = httpClient
	return &Ingester{
		client:  httpClient,
		parser:  parser,
		breaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retry:   retry.FeedFetchConfig(),
		logger:  logger,
	}
}

// SourceType reports entity.SourceTypeFeed.
func (i *Ingester) SourceType() entity.SourceType {
	return entity.SourceTypeFeed
}

// Fetch parses src.URL as a syndication feed and normalizes up to
// MaxItemsPerSource entries. A malformed feed that still yields some
// entries is tolerated: partially-parsed entries are returned with a
// logged warning rather than failing the whole run.
func (i *Ingester) Fetch(ctx context.Context, src *entity.Source) ([]*entity.RawItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	var feed *gofeed.Feed
	err := retry.WithBackoff(fetchCtx, i.retry, func() error {
		result, cbErr := i.breaker.Execute(func() (interface{}, error) {
			return i.parser.ParseURLWithContext(src.URL, fetchCtx)
		})
		if cbErr != nil {
			return cbErr
		}
		feed = result.(*gofeed.Feed)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", src.URL, err)
	}
	if feed == nil {
		return nil, fmt.Errorf("fetching feed %s: empty result", src.URL)
	}

	items := make([]*entity.RawItem, 0, len(feed.Items))
	for idx, entry := range feed.Items {
		if idx >= 100 {
			break
		}
		item, err := normalize(src, entry)
		if err != nil {
			i.logger.Warn("skipping unparseable feed entry",
				slog.String("source", src.Name),
				slog.Any("error", err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// normalize converts a gofeed.Item into a RawItem. External-id is chosen as
// the first non-empty of entry GUID / Link.
func normalize(src *entity.Source, entry *gofeed.Item) (*entity.RawItem, error) {
	externalID := entry.GUID
	if externalID == "" {
		externalID = entry.Link
	}
	if externalID == "" {
		return nil, fmt.Errorf("entry has no guid or link")
	}
	if entry.Title == "" {
		return nil, fmt.Errorf("entry has no title")
	}

	author := ""
	if entry.Author != nil {
		author = entry.Author.Name
	} else if len(entry.Authors) > 0 {
		author = entry.Authors[0].Name
	}

	var publishedAt *time.Time
	switch {
	case entry.PublishedParsed != nil:
		publishedAt = entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		publishedAt = entry.UpdatedParsed
	}

	body := entry.Description
	if body == "" {
		body = entry.Content
	}

	return &entity.RawItem{
		SourceID:    src.ID,
		ExternalID:  externalID,
		URL:         entry.Link,
		Title:       entry.Title,
		Author:      author,
		Kind:        entity.ItemKindArticle,
		PublishedAt: publishedAt,
		FetchedAt:   time.Now(),
		RawText:     textutil.Truncate(body, maxSnippetChars),
		RawPayload:  map[string]any{"categories": entry.Categories},
	}, nil
}
