// Package extract implements the two-pass content extractor: a
// precision-favoring goquery pass, falling back to go-readability's
// main-content algorithm when the first pass comes up short.
package extract

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"newsbot/internal/observability/metrics"
	"newsbot/internal/resilience/circuitbreaker"
	extractuc "newsbot/internal/usecase/extract"
)

// Errors surfaced by URL validation and extraction.
var (
	ErrInvalidURL = errors.New("invalid url")
	ErrPrivateIP  = errors.New("url resolves to a private ip")
	ErrNoContent  = errors.New("no extractable content found")
)

// minWordCount is the bar either pass must clear to be accepted.
const minWordCount = 50

// maxBodySize bounds the HTML response read into memory.
const maxBodySize = 5 << 20 // 5MB

// FetchTimeout bounds a single extraction fetch.
const FetchTimeout = 30 * time.Second

// unextractableDomains are skipped without a fetch attempt: social feeds
// that require JS rendering or paywall-gate their content, plus HN item
// permalinks — an HN self-post's synthetic URL points back at the
// discussion page, and its text already arrived in the item payload.
var unextractableDomains = []string{
	"twitter.com", "x.com", "youtube.com", "youtu.be", "reddit.com",
	"news.ycombinator.com",
}

// Result is the accepted output of an extraction pass. It's an alias of
// the use-case layer's Result so this package satisfies extractuc.Fetcher
// without a conversion step.
type Result = extractuc.Result

// Extractor fetches a URL and runs the precision pass, falling back to
// readability, accepting whichever first clears minWordCount.
type Extractor struct {
	client         *http.Client
	breaker        *circuitbreaker.CircuitBreaker
	denyPrivateIPs bool
	logger         *slog.Logger
}

// New builds an Extractor. denyPrivateIPs should be true in production;
// it's a knob mainly so tests can point at loopback fixtures.
func New(denyPrivateIPs bool, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client: &http.Client{
			Timeout: FetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects: %d", len(via))
				}
				return validateURL(req.URL.String(), denyPrivateIPs)
			},
		},
		breaker:        circuitbreaker.New(circuitbreaker.ArticleFetchConfig()),
		denyPrivateIPs: denyPrivateIPs,
		logger:         logger,
	}
}

// Skip reports whether rawURL belongs to a known unextractable domain, in
// which case the caller should advance the item to extracted without
// calling Extract.
func Skip(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, d := range unextractableDomains {
		if host == d {
			return true
		}
	}
	return false
}

// Extract fetches rawURL and returns the first extraction pass that clears
// the minimum word count, or nil if neither pass does. It never returns an
// error for extraction-quality reasons; an error return means the fetch
// itself failed, which the caller treats as a non-blocking null result.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Result, error) {
	if err := validateURL(rawURL, e.denyPrivateIPs); err != nil {
		return nil, err
	}

	html, finalURL, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if res := precisionPass(html); res != nil && res.WordCount > minWordCount {
		res.FinalURL = finalURL
		metrics.ItemsExtractedTotal.WithLabelValues(res.Method).Inc()
		return res, nil
	}

	if res := readabilityPass(html, finalURL); res != nil && res.WordCount > minWordCount {
		res.FinalURL = finalURL
		metrics.ItemsExtractedTotal.WithLabelValues(res.Method).Inc()
		return res, nil
	}

	return nil, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (html string, finalURL string, err error) {
	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	result, cbErr := e.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; NewsbotBriefing/1.0)")

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, rawURL)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
		if err != nil {
			return nil, err
		}
		if len(body) > maxBodySize {
			return nil, fmt.Errorf("response for %s exceeds %d bytes", rawURL, maxBodySize)
		}

		actualURL := rawURL
		if resp.Request != nil && resp.Request.URL != nil {
			actualURL = resp.Request.URL.String()
		}
		return [2]string{string(body), actualURL}, nil
	})
	if cbErr != nil {
		return "", "", cbErr
	}
	pair := result.([2]string)
	return pair[0], pair[1], nil
}

// precisionPass drops script/style/nav/boilerplate tags and prefers
// article/main containers, favoring precision over recall.
func precisionPass(html string) *Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	doc.Find("script, style, noscript, nav, footer, aside, iframe, form, svg").Remove()
	doc.Find("*").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#comment" {
			s.Remove()
		}
	})
	doc.Find("table").Remove()

	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find("main").First()
	}
	if container.Length() == 0 {
		container = doc.Find("[role=main]").First()
	}
	if container.Length() == 0 {
		container = doc.Find("body").First()
	}

	text := strings.Join(strings.Fields(container.Text()), " ")
	if text == "" {
		return nil
	}

	return &Result{
		Text:      text,
		WordCount: wordCount(text),
		Method:    "precision",
		Quality:   0.9,
	}
}

// readabilityPass runs go-shiori/go-readability's main-content algorithm
// and flattens the result to plain text.
func readabilityPass(html, finalURL string) *Result {
	parsedURL, err := url.Parse(finalURL)
	if err != nil {
		parsedURL = nil
	}

	article, err := readability.FromReader(bytes.NewReader([]byte(html)), parsedURL)
	if err != nil {
		return nil
	}

	text := article.TextContent
	if text == "" {
		text = article.Content
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	return &Result{
		Text:      text,
		WordCount: wordCount(text),
		Method:    "readability",
		Quality:   0.7,
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
