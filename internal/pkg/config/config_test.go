package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_STR_SET", "value")
	t.Setenv("TEST_STR_EMPTY", "")

	if got := LoadEnvString("TEST_STR_SET", "default"); got != "value" {
		t.Errorf("set variable: got %q", got)
	}
	if got := LoadEnvString("TEST_STR_EMPTY", "default"); got != "default" {
		t.Errorf("empty variable: got %q, want default", got)
	}
	if got := LoadEnvString("TEST_STR_UNSET", "default"); got != "default" {
		t.Errorf("unset variable: got %q, want default", got)
	}
}

func TestLoadEnvWithFallback(t *testing.T) {
	failValidator := func(string) error { return errors.New("rejected") }

	tests := []struct {
		name         string
		envValue     string
		validator    func(string) error
		wantValue    string
		wantFallback bool
	}{
		{name: "unset takes default silently", envValue: "", wantValue: "def", wantFallback: false},
		{name: "valid value kept", envValue: "30 5 * * *", validator: ValidateCronSchedule, wantValue: "30 5 * * *"},
		{name: "invalid value falls back with warning", envValue: "x", validator: failValidator, wantValue: "def", wantFallback: true},
		{name: "nil validator accepts anything", envValue: "anything", wantValue: "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_FALLBACK", tt.envValue)
			result := LoadEnvWithFallback("TEST_FALLBACK", "def", tt.validator)
			if result.Value.(string) != tt.wantValue {
				t.Errorf("value = %v, want %q", result.Value, tt.wantValue)
			}
			if result.FallbackApplied != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", result.FallbackApplied, tt.wantFallback)
			}
			if tt.wantFallback && len(result.Warnings) != 1 {
				t.Errorf("warnings = %v, want exactly one", result.Warnings)
			}
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		validator    func(time.Duration) error
		wantValue    time.Duration
		wantFallback bool
	}{
		{name: "unset takes default", envValue: "", wantValue: 30 * time.Minute},
		{name: "valid duration parsed", envValue: "1h30m", wantValue: 90 * time.Minute},
		{name: "unparseable falls back", envValue: "ninety minutes", wantValue: 30 * time.Minute, wantFallback: true},
		{name: "validator rejection falls back", envValue: "-5m", validator: ValidatePositiveDuration, wantValue: 30 * time.Minute, wantFallback: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			result := LoadEnvDuration("TEST_DURATION", 30*time.Minute, tt.validator)
			if result.Value.(time.Duration) != tt.wantValue {
				t.Errorf("value = %v, want %v", result.Value, tt.wantValue)
			}
			if result.FallbackApplied != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", result.FallbackApplied, tt.wantFallback)
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	rangeValidator := func(v int) error { return ValidateIntRange(v, 1, 100) }

	tests := []struct {
		name         string
		envValue     string
		validator    func(int) error
		wantValue    int
		wantFallback bool
	}{
		{name: "unset takes default", envValue: "", wantValue: 3},
		{name: "valid int parsed", envValue: "42", wantValue: 42},
		{name: "negative parses", envValue: "-7", wantValue: -7},
		{name: "unparseable falls back", envValue: "many", wantValue: 3, wantFallback: true},
		{name: "out of range falls back", envValue: "500", validator: rangeValidator, wantValue: 3, wantFallback: true},
		{name: "in range kept", envValue: "50", validator: rangeValidator, wantValue: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			result := LoadEnvInt("TEST_INT", 3, tt.validator)
			if result.Value.(int) != tt.wantValue {
				t.Errorf("value = %v, want %d", result.Value, tt.wantValue)
			}
			if result.FallbackApplied != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", result.FallbackApplied, tt.wantFallback)
			}
		})
	}
}

func TestLoadEnvBool(t *testing.T) {
	tests := []struct {
		envValue     string
		wantValue    bool
		wantFallback bool
	}{
		{envValue: "", wantValue: true},
		{envValue: "true", wantValue: true},
		{envValue: "TRUE", wantValue: true},
		{envValue: "1", wantValue: true},
		{envValue: "t", wantValue: true},
		{envValue: "false", wantValue: false},
		{envValue: "0", wantValue: false},
		{envValue: "F", wantValue: false},
		{envValue: "yes", wantValue: true, wantFallback: true},
		{envValue: "enabled", wantValue: true, wantFallback: true},
	}
	for _, tt := range tests {
		t.Run("value_"+tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			result := LoadEnvBool("TEST_BOOL", true)
			if result.Value.(bool) != tt.wantValue {
				t.Errorf("value = %v, want %v", result.Value, tt.wantValue)
			}
			if result.FallbackApplied != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", result.FallbackApplied, tt.wantFallback)
			}
		})
	}
}

func TestValidateCronSchedule(t *testing.T) {
	valid := []string{"30 5 * * *", "0 */6 * * *", "30 9 * * 1-5", "*/10 * * * *"}
	for _, schedule := range valid {
		if err := ValidateCronSchedule(schedule); err != nil {
			t.Errorf("%q should be valid: %v", schedule, err)
		}
	}
	invalid := []string{"", "not a cron", "61 * * * *", "* * * *"}
	for _, schedule := range invalid {
		if err := ValidateCronSchedule(schedule); err == nil {
			t.Errorf("%q should be invalid", schedule)
		}
	}
}

func TestValidateTimezone(t *testing.T) {
	for _, tz := range []string{"UTC", "America/New_York", "Asia/Tokyo"} {
		if err := ValidateTimezone(tz); err != nil {
			t.Errorf("%q should be valid: %v", tz, err)
		}
	}
	for _, tz := range []string{"", "Not/AZone", "+09:00"} {
		if err := ValidateTimezone(tz); err == nil {
			t.Errorf("%q should be invalid", tz)
		}
	}
}

func TestValidateDuration(t *testing.T) {
	if err := ValidateDuration(30*time.Minute, time.Second, time.Hour); err != nil {
		t.Errorf("in-range duration rejected: %v", err)
	}
	if err := ValidateDuration(time.Second, time.Second, time.Hour); err != nil {
		t.Errorf("minimum bound is inclusive: %v", err)
	}
	if err := ValidateDuration(2*time.Hour, time.Second, time.Hour); err == nil {
		t.Error("over-max duration accepted")
	}
	if err := ValidateDuration(time.Minute, time.Hour, time.Second); err == nil {
		t.Error("inverted range accepted")
	}
}

func TestValidateIntRange(t *testing.T) {
	if err := ValidateIntRange(5, 1, 10); err != nil {
		t.Errorf("in-range value rejected: %v", err)
	}
	if err := ValidateIntRange(10, 1, 10); err != nil {
		t.Errorf("maximum bound is inclusive: %v", err)
	}
	if err := ValidateIntRange(0, 1, 10); err == nil {
		t.Error("below-min value accepted")
	}
	if err := ValidateIntRange(5, 10, 1); err == nil {
		t.Error("inverted range accepted")
	}
}

func TestValidatePositiveDuration(t *testing.T) {
	if err := ValidatePositiveDuration(time.Nanosecond); err != nil {
		t.Errorf("positive duration rejected: %v", err)
	}
	if err := ValidatePositiveDuration(0); err == nil {
		t.Error("zero duration accepted")
	}
	if err := ValidatePositiveDuration(-time.Second); err == nil {
		t.Error("negative duration accepted")
	}
}

func TestConfigMetrics(t *testing.T) {
	// One instance per unique component name; a duplicate would panic in
	// promauto, so the whole test uses a single registration.
	m := NewConfigMetrics("config_test_component")

	m.RecordLoadTimestamp()
	m.RecordValidationError("cron_schedule")
	m.RecordValidationError("cron_schedule")
	m.RecordFallback("timezone", "default")
	m.SetFallbackActive("timezone", true)
	m.SetFallbackActive("timezone", false)
}
