// Package pathutil normalizes request paths for metrics labels and
// extracts ids from them for handlers.
package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern maps a concrete path shape to its metrics label template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns covers every dynamic route the API serves. Pre-compiled;
// evaluated most specific first. Static routes (/signals/top,
// /signals/categories/stats, /briefings/latest, /feedback/saved,
// /health, /metrics) fall through unchanged.
var pathPatterns = []*PathPattern{
	{Pattern: regexp.MustCompile(`^/signals/\d+$`), Template: "/signals/:id"},
	{Pattern: regexp.MustCompile(`^/sources/\d+$`), Template: "/sources/:id"},
	{Pattern: regexp.MustCompile(`^/briefings/\d+$`), Template: "/briefings/:id"},
	{Pattern: regexp.MustCompile(`^/feedback/\d+$`), Template: "/feedback/:item_id"},
}

// NormalizePath collapses id-bearing paths to their template so the
// metrics path label stays at a few dozen values instead of one per row
// id. Query strings and trailing slashes are stripped first; unknown
// paths pass through unchanged.
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}
	return path
}

// GetExpectedCardinality estimates the unique path labels after
// normalization, for alerting on label growth.
func GetExpectedCardinality() int {
	const staticCount = 14 // health/ready/live/metrics/swagger, auth, list+static routes
	return len(pathPatterns) + staticCount
}
