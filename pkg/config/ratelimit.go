package config

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"newsbot/pkg/ratelimit"
)

// envInt and envWindow are the fail-open loaders all the rate-limit
// settings share: a negative or non-positive value warns and keeps the
// default.
func envInt(key string, defaultValue int) int {
	value := GetEnvInt(key, defaultValue)
	if value < 0 {
		slog.Warn("invalid "+key+", using default",
			slog.Int("value", value), slog.Int("default", defaultValue))
		return defaultValue
	}
	return value
}

func envWindow(key string, defaultValue time.Duration) time.Duration {
	value := GetEnvDuration(key, defaultValue)
	if err := ValidatePositiveDuration(value); err != nil {
		slog.Warn("invalid "+key+", using default",
			slog.String("value", value.String()),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}
	return value
}

// LoadRateLimitConfig assembles the limiter configuration from the
// RATELIMIT_* environment variables. Loading never fails: bad values
// warn and take their defaults, and a configuration that still fails
// validation is replaced wholesale by the defaults.
//
//	RATELIMIT_ENABLED               (default true)
//	RATELIMIT_IP_LIMIT / _IP_WINDOW (default 100 per 1m)
//	RATELIMIT_USER_LIMIT / _USER_WINDOW (default 1000 per 1h)
//	RATELIMIT_TIER_{ADMIN,PREMIUM,BASIC,VIEWER} (per-hour tier budgets)
//	RATELIMIT_MAX_KEYS              (default 10000)
//	RATELIMIT_CLEANUP_INTERVAL      (default 5m)
//	RATELIMIT_CB_FAILURE_THRESHOLD / _CB_RECOVERY_TIMEOUT (default 10 / 30s)
func LoadRateLimitConfig() (*ratelimit.RateLimitConfig, error) {
	config := &ratelimit.RateLimitConfig{
		Enabled: GetEnvBool("RATELIMIT_ENABLED", true),

		DefaultIPLimit:  envInt("RATELIMIT_IP_LIMIT", 100),
		DefaultIPWindow: envWindow("RATELIMIT_IP_WINDOW", time.Minute),

		DefaultUserLimit:  envInt("RATELIMIT_USER_LIMIT", 1000),
		DefaultUserWindow: envWindow("RATELIMIT_USER_WINDOW", time.Hour),

		TierLimits: loadTierLimits(),

		MaxActiveKeys:   envInt("RATELIMIT_MAX_KEYS", 10000),
		CleanupInterval: envWindow("RATELIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		CleanupMaxAge:   time.Hour, // not operator-tunable

		CircuitBreakerFailureThreshold: envInt("RATELIMIT_CB_FAILURE_THRESHOLD", 10),
		CircuitBreakerResetTimeout:     envWindow("RATELIMIT_CB_RECOVERY_TIMEOUT", 30*time.Second),
	}

	if err := config.Validate(); err != nil {
		slog.Warn("rate limit configuration validation failed, applying defaults",
			slog.String("error", err.Error()))
		config.ApplyDefaults()
	}
	return config, nil
}

// loadTierLimits reads the per-hour tier budgets. The admin and viewer
// tiers are the ones the API's JWT roles map onto; premium and basic
// remain assignable through the default-tier path.
func loadTierLimits() []ratelimit.TierRateLimitConfig {
	defaults := []struct {
		tier  ratelimit.UserTier
		key   string
		limit int
	}{
		{ratelimit.TierAdmin, "RATELIMIT_TIER_ADMIN", 10000},
		{ratelimit.TierPremium, "RATELIMIT_TIER_PREMIUM", 5000},
		{ratelimit.TierBasic, "RATELIMIT_TIER_BASIC", 1000},
		{ratelimit.TierViewer, "RATELIMIT_TIER_VIEWER", 500},
	}

	tierLimits := make([]ratelimit.TierRateLimitConfig, 0, len(defaults))
	for _, d := range defaults {
		tierLimits = append(tierLimits, ratelimit.TierRateLimitConfig{
			Tier:   d.tier,
			Limit:  envInt(d.key, d.limit),
			Window: time.Hour,
		})
	}
	return tierLimits
}

// CSPConfig gates the Content-Security-Policy middleware.
type CSPConfig struct {
	Enabled    bool
	ReportOnly bool

	// TrustedScriptSources/TrustedStyleSources extend the policy with
	// extra origins (CDNs).
	TrustedScriptSources []string
	TrustedStyleSources  []string
}

// LoadCSPConfig reads CSP_ENABLED (default true) and CSP_REPORT_ONLY
// (default false).
func LoadCSPConfig() (*CSPConfig, error) {
	return &CSPConfig{
		Enabled:    GetEnvBool("CSP_ENABLED", true),
		ReportOnly: GetEnvBool("CSP_REPORT_ONLY", false),
	}, nil
}

// ValidateTrustedProxies requires every entry to parse as CIDR notation.
func ValidateTrustedProxies(cidrs []string) error {
	for _, cidr := range cidrs {
		if cidr == "" {
			return fmt.Errorf("CIDR cannot be empty")
		}
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid CIDR %q: %w", cidr, err)
		}
	}
	return nil
}
