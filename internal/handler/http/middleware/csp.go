package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"newsbot/pkg/security/csp"
)

// CSPMiddlewareConfig selects which Content-Security-Policy each path
// gets.
type CSPMiddlewareConfig struct {
	// Enabled off makes the middleware a pass-through, for gradual
	// rollout.
	Enabled bool

	// DefaultPolicy applies when no PathPolicies prefix matches.
	DefaultPolicy *csp.CSPBuilder

	// PathPolicies maps path prefixes to policies; the longest matching
	// prefix wins. The one non-default entry in practice is /swagger/.
	PathPolicies map[string]*csp.CSPBuilder

	// ReportOnly switches every policy to the Report-Only header, for
	// trialing a policy against real traffic before enforcing it.
	ReportOnly bool
}

// CSPMiddleware stamps the selected policy onto each response.
type CSPMiddleware struct {
	config CSPMiddlewareConfig
}

// NewCSPMiddleware builds the middleware.
func NewCSPMiddleware(config CSPMiddlewareConfig) *CSPMiddleware {
	return &CSPMiddleware{config: config}
}

// Middleware returns the header-stamping wrapper.
func (m *CSPMiddleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			policy := m.selectPolicy(r.URL.Path)
			if policy == nil {
				next.ServeHTTP(w, r)
				return
			}
			if m.config.ReportOnly {
				policy = policy.ReportOnly(true)
			}

			cspValue := policy.Build()
			if cspValue == "" {
				next.ServeHTTP(w, r)
				return
			}

			headerName := policy.HeaderName()
			w.Header().Set(headerName, cspValue)

			slog.Debug("CSP header applied",
				slog.String("path", r.URL.Path),
				slog.String("header", headerName),
				slog.String("policy", cspValue))

			next.ServeHTTP(w, r)
		})
	}
}

// selectPolicy returns the policy of the longest matching path prefix,
// or the default.
func (m *CSPMiddleware) selectPolicy(path string) *csp.CSPBuilder {
	longestPrefix := ""
	var matched *csp.CSPBuilder
	for prefix, policy := range m.config.PathPolicies {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(longestPrefix) {
			longestPrefix = prefix
			matched = policy
		}
	}
	if matched != nil {
		return matched
	}
	return m.config.DefaultPolicy
}
