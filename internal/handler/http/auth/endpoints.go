package auth

import "strings"

// PublicEndpoints are reachable without a JWT: orchestration probes
// (/health, /ready, /live), Prometheus scraping (/metrics), the API docs
// (/swagger/), and the token endpoint itself.
var PublicEndpoints = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/swagger/",
	"/auth/token",
}

// IsPublicEndpoint reports whether path may skip authentication.
// Entries ending in "/" match by prefix (/swagger/index.html); the rest
// match exactly, with an optional trailing slash or query string, so
// /health passes but /health/detail and /healthcheck do not.
func IsPublicEndpoint(path string) bool {
	for _, endpoint := range PublicEndpoints {
		if strings.HasSuffix(endpoint, "/") {
			if strings.HasPrefix(path, endpoint) {
				return true
			}
			continue
		}
		if path == endpoint || path == endpoint+"/" || strings.HasPrefix(path, endpoint+"?") {
			return true
		}
	}
	return false
}
