// Package observability provides the structured logger, Prometheus
// metrics and health checks shared by the catalog's permission layer.
//
// The logger is a thin wrapper over log/slog emitting JSON, with context
// helpers to carry a request id through resolver and propagation calls.
// Metrics cover access checks, grant mutations, propagation traffic and
// cache effectiveness. Health checks are named probes registered by the
// daemon for each backing service.
package observability
