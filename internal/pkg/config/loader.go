// Package config implements the service's fail-open environment
// configuration loading: a missing variable silently takes its default, a
// malformed or invalid one takes the default and reports a warning.
// Loading never errors — startup proceeds on defaults and the operator
// sees the warnings in logs and the config metrics.
package config

import (
	"fmt"
	"os"
	"time"
)

// ConfigLoadResult is the outcome of loading one value: the value itself
// (possibly the default), a warning per fallback, and whether a fallback
// happened. Value is an interface{}; callers assert the concrete type
// they asked for.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

func loaded(value interface{}) ConfigLoadResult {
	return ConfigLoadResult{Value: value}
}

func fellBack(defaultValue interface{}, warning string) ConfigLoadResult {
	return ConfigLoadResult{
		Value:           defaultValue,
		Warnings:        []string{warning},
		FallbackApplied: true,
	}
}

// LoadEnvString returns the variable's value, or defaultValue when unset.
// No validation; use LoadEnvWithFallback when one is needed.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback loads a string and runs it through validator (nil
// skips validation). A set-but-invalid value falls back to the default
// with a warning; an unset one takes the default silently.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return loaded(defaultValue)
	}
	if validator != nil {
		if err := validator(value); err != nil {
			return fellBack(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%s'", envKey, value, err, defaultValue))
		}
	}
	return loaded(value)
}

// LoadEnvDuration loads a Go duration string ("30s", "5m", "1h30m").
// Parse and validation failures fall back with a warning.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}
	parsed, err := time.ParseDuration(valueStr)
	if err != nil {
		return fellBack(defaultValue, fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'", envKey, valueStr, err, defaultValue))
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fellBack(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'", envKey, valueStr, err, defaultValue))
		}
	}
	return loaded(parsed)
}

// LoadEnvInt loads an integer. Parse and validation failures fall back
// with a warning.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}
	var parsed int
	if _, err := fmt.Sscanf(valueStr, "%d", &parsed); err != nil {
		return fellBack(defaultValue, fmt.Sprintf(
			"Invalid %s='%s': invalid integer format, falling back to default '%d'", envKey, valueStr, defaultValue))
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fellBack(defaultValue, fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%d'", envKey, valueStr, err, defaultValue))
		}
	}
	return loaded(parsed)
}

// LoadEnvBool loads a boolean. Accepted spellings are strconv-style:
// 1/t/T/true/TRUE/True and 0/f/F/false/FALSE/False. Anything else falls
// back with a warning.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return loaded(defaultValue)
	}
	switch valueStr {
	case "1", "t", "T", "true", "TRUE", "True":
		return loaded(true)
	case "0", "f", "F", "false", "FALSE", "False":
		return loaded(false)
	}
	return fellBack(defaultValue, fmt.Sprintf(
		"Invalid %s='%s': invalid boolean format, expected 'true' or 'false', falling back to default '%t'",
		envKey, valueStr, defaultValue))
}
