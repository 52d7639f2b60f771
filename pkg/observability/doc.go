// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, and health check endpoints for the Warden service.
//
// Logging uses a thin wrapper over log/slog with JSON output and
// WithField/WithError chaining. Metrics are registered against an explicit
// prometheus.Registry so tests can use isolated registries. OpenTelemetry
// exports traces and metrics over OTLP/gRPC when enabled.
//
// # Related Packages
//
//   - pkg/access: emits team-role grant counters and resolution spans
//   - pkg/middleware: wires request IDs and per-request loggers
package observability
