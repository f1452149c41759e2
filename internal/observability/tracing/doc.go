// Package tracing provides OpenTelemetry tracing integration for the HTTP
// API. Middleware extracts incoming W3C trace context, opens a server span
// per request, and echoes the trace id back on X-Trace-Id for client-side
// correlation.
//
// An exporter/collector endpoint isn't wired yet, so spans are created and
// propagated but not shipped anywhere; GetTracer still returns a valid
// tracer backed by whatever global TracerProvider is registered (the
// no-op one if none is).
//
// Example usage:
//
//	mux := http.NewServeMux()
//	mux.Handle("/", someHandler)
//	handler := tracing.Middleware(mux)
//	http.ListenAndServe(":8080", handler)
package tracing
