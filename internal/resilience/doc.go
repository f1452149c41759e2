// Package resilience groups the fault-tolerance building blocks every
// outbound call in the pipeline goes through: circuit breakers
// (circuitbreaker), bounded retries with jittered exponential backoff
// (retry), and the Postgres-backed cost-cap counters that bound LLM and
// embedding spend (costcap).
package resilience
