package circuitbreaker

import "time"

// EmailDeliveryConfig returns configuration for SMTP delivery. A lower
// failure threshold than the AI/feed configs: a relay outage should trip
// fast since queued briefings are retried independently of generation.
func EmailDeliveryConfig() Config {
	return Config{
		Name:             "email-delivery",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          120 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      5,
	}
}
