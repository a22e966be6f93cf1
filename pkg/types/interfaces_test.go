package types

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterfaceSatisfaction(t *testing.T) {
	var (
		_ TokenProvider     = (*mockTokenProvider)(nil)
		_ MetricsCollector  = (*mockMetricsCollector)(nil)
		_ HealthChecker     = (*mockHealthChecker)(nil)
		_ ConnectionManager = (*mockConnectionManager)(nil)
	)
}

type mockTokenProvider struct{ headers map[string]string }

func (m *mockTokenProvider) SignedHeaders(ctx context.Context) (map[string]string, error) {
	return m.headers, nil
}

func (m *mockTokenProvider) Refresh(ctx context.Context) error {
	return nil
}

type mockMetricsCollector struct{}

func (m *mockMetricsCollector) RecordOperation(operation string, duration time.Duration, size int64, success bool) {
}
func (m *mockMetricsCollector) RecordCacheHit(key string, size int64)  {}
func (m *mockMetricsCollector) RecordCacheMiss(key string, size int64) {}
func (m *mockMetricsCollector) RecordError(operation string, err error) {
}
func (m *mockMetricsCollector) GetMetrics() map[string]interface{} {
	return nil
}

type mockHealthChecker struct{}

func (m *mockHealthChecker) Check(ctx context.Context) HealthStatus {
	return HealthStatus{Status: "ok"}
}
func (m *mockHealthChecker) RegisterCheck(name string, check func(context.Context) error) {}
func (m *mockHealthChecker) GetStatus() map[string]HealthStatus {
	return nil
}

type mockConnectionManager struct{}

func (m *mockConnectionManager) HealthCheck() error {
	return nil
}
func (m *mockConnectionManager) GetStats() ConnectionStats {
	return ConnectionStats{}
}

func TestTokenProviderSignedHeaders(t *testing.T) {
	p := &mockTokenProvider{headers: map[string]string{"Authorization": "Bearer abc"}}
	h, err := p.SignedHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", h["Authorization"])
}
