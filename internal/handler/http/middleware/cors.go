package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// CORSConfig is the cross-origin policy for the API.
type CORSConfig struct {
	// AllowedOrigins is the origin whitelist. Matching is
	// case-insensitive on the normalized origin.
	AllowedOrigins []string

	// AllowedMethods and AllowedHeaders are echoed on preflight
	// responses.
	AllowedMethods []string
	AllowedHeaders []string

	// MaxAge is the preflight cache duration in seconds.
	MaxAge int

	// Logger may be nil.
	Logger *slog.Logger

	allowed map[string]struct{}
}

var defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}

var defaultCORSHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Trace-ID"}

// LoadCORSConfig reads the CORS policy from environment variables.
// CORS_ALLOWED_ORIGINS is required and fail-closed: a missing or invalid
// origin list is a startup error, not a silent wildcard.
//
//	CORS_ALLOWED_ORIGINS=http://localhost:3000,https://example.com
//	CORS_ALLOWED_METHODS=GET,POST,DELETE            (optional)
//	CORS_ALLOWED_HEADERS=Content-Type,Authorization (optional)
//	CORS_MAX_AGE=86400                              (optional, seconds)
func LoadCORSConfig() (*CORSConfig, error) {
	origins, err := parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if err != nil {
		return nil, fmt.Errorf("failed to load allowed origins: %w", err)
	}

	methods, err := parseMethods(os.Getenv("CORS_ALLOWED_METHODS"))
	if err != nil {
		return nil, fmt.Errorf("failed to load allowed methods: %w", err)
	}

	headers := splitAndTrim(os.Getenv("CORS_ALLOWED_HEADERS"))
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}

	maxAge := 86400
	if s := strings.TrimSpace(os.Getenv("CORS_MAX_AGE")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid CORS_MAX_AGE %q: must be a non-negative integer", s)
		}
		maxAge = v
	}

	cfg := &CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		MaxAge:         maxAge,
	}
	cfg.buildIndex()
	return cfg, nil
}

func parseOrigins(raw string) ([]string, error) {
	entries := splitAndTrim(raw)
	if len(entries) == 0 {
		return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS environment variable is required")
	}
	for _, origin := range entries {
		u, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("invalid origin URL %q: %w", origin, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("origin must use http or https scheme: %s", origin)
		}
		if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
			return nil, fmt.Errorf("origin must be scheme://host[:port] only: %s", origin)
		}
		if strings.HasSuffix(origin, "/") {
			return nil, fmt.Errorf("origin must not have trailing slash: %s", origin)
		}
	}
	return entries, nil
}

func parseMethods(raw string) ([]string, error) {
	entries := splitAndTrim(raw)
	if len(entries) == 0 {
		return defaultCORSMethods, nil
	}
	valid := map[string]bool{"GET": true, "POST": true, "PUT": true, "DELETE": true, "PATCH": true, "OPTIONS": true}
	methods := make([]string, 0, len(entries))
	for _, m := range entries {
		m = strings.ToUpper(m)
		if !valid[m] {
			return nil, fmt.Errorf("invalid HTTP method %q: must be one of GET, POST, PUT, DELETE, PATCH, OPTIONS", m)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *CORSConfig) buildIndex() {
	c.allowed = make(map[string]struct{}, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		c.allowed[strings.ToLower(origin)] = struct{}{}
	}
}

func (c *CORSConfig) originAllowed(origin string) bool {
	_, ok := c.allowed[strings.ToLower(origin)]
	return ok
}

// CORS handles cross-origin requests against the configured whitelist.
// Same-origin requests (no Origin header) pass through untouched. A
// disallowed origin is logged and forwarded without CORS headers, so the
// browser blocks the response. Allowed preflights are answered with 204
// without reaching the handler; credentials are always allowed since the
// API authenticates with bearer tokens.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	// Index built here, not per request: the handler closure must never
	// mutate shared config state.
	if config.allowed == nil {
		config.buildIndex()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !config.originAllowed(origin) {
				if config.Logger != nil {
					config.Logger.Warn("CORS: origin not allowed",
						slog.String("origin", origin),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("remote_addr", r.RemoteAddr))
				}
				next.ServeHTTP(w, r)
				return
			}

			// Echo the request origin; required when credentials are
			// allowed.
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
