package types

import (
	"context"
	"time"
)

// TokenProvider is the external credential-acquisition capability the core
// consumes but never implements. Callers supply a provider that knows how to
// obtain and refresh a bearer token for the store.
type TokenProvider interface {
	// SignedHeaders returns the headers (at minimum Authorization) to attach
	// to the next outbound request.
	SignedHeaders(ctx context.Context) (map[string]string, error)

	// Refresh forces the provider to obtain a new token. The REST client
	// calls it after a 401 response, before the request is retried.
	Refresh(ctx context.Context) error
}

// MetricsCollector defines the metrics collection interface implemented by
// internal/metrics.Collector.
type MetricsCollector interface {
	RecordOperation(operation string, duration time.Duration, size int64, success bool)
	RecordCacheHit(key string, size int64)
	RecordCacheMiss(key string, size int64)
	RecordError(operation string, err error)
	GetMetrics() map[string]interface{}
}

// HealthChecker defines a health monitoring interface. No non-test type in
// this module implements it.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
	RegisterCheck(name string, check func(context.Context) error)
	GetStatus() map[string]HealthStatus
}

// ConnectionManager defines connection pool management. No non-test type in
// this module implements it; the REST client's connection pool is unexported
// and has neither method.
type ConnectionManager interface {
	HealthCheck() error
	GetStats() ConnectionStats
}
