package pagination

import (
	"fmt"

	pkgconfig "newsbot/internal/pkg/config"
)

// Config bounds the page/limit parameters a request may ask for.
type Config struct {
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// DefaultConfig returns page=1, limit=20, max=100.
func DefaultConfig() Config {
	return Config{
		DefaultPage:  1,
		DefaultLimit: 20,
		MaxLimit:     100,
	}
}

// LoadFromEnv reads PAGINATION_DEFAULT_PAGE, PAGINATION_DEFAULT_LIMIT, and
// PAGINATION_MAX_LIMIT. Loading is fail-open like the rest of the service
// configuration: an unset or malformed variable falls back to the default.
func LoadFromEnv() Config {
	positive := func(v int) error {
		if v < 1 {
			return fmt.Errorf("must be at least 1")
		}
		return nil
	}
	return Config{
		DefaultPage:  pkgconfig.LoadEnvInt("PAGINATION_DEFAULT_PAGE", 1, positive).Value.(int),
		DefaultLimit: pkgconfig.LoadEnvInt("PAGINATION_DEFAULT_LIMIT", 20, positive).Value.(int),
		MaxLimit:     pkgconfig.LoadEnvInt("PAGINATION_MAX_LIMIT", 100, positive).Value.(int),
	}
}
