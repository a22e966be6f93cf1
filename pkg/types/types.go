package types

import "time"

// CacheStats represents cache performance statistics, shared by the
// directory-listing cache and the read-ahead block cache.
type CacheStats struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Size        int64   `json:"size"`
	Capacity    int64   `json:"capacity"`
	HitRate     float64 `json:"hit_rate"`
	Utilization float64 `json:"utilization"`
}

// HealthStatus represents the health status of a component.
type HealthStatus struct {
	Status     string            `json:"status"`
	LastCheck  time.Time         `json:"last_check"`
	Response   time.Duration     `json:"response_time"`
	ErrorCount int64             `json:"error_count"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details"`
}

// ConnectionStats represents REST client session-pool statistics.
type ConnectionStats struct {
	Active      int           `json:"active"`
	Idle        int           `json:"idle"`
	Total       int           `json:"total"`
	MaxOpen     int           `json:"max_open"`
	Lifetime    time.Duration `json:"lifetime"`
	IdleTimeout time.Duration `json:"idle_timeout"`
}

// PerformanceMetrics represents aggregate transfer performance metrics.
type PerformanceMetrics struct {
	Timestamp       time.Time     `json:"timestamp"`
	ReadThroughput  float64       `json:"read_throughput"`
	WriteThroughput float64       `json:"write_throughput"`
	ReadLatency     time.Duration `json:"read_latency"`
	WriteLatency    time.Duration `json:"write_latency"`
	CacheHitRate    float64       `json:"cache_hit_rate"`
	PendingRequests int64         `json:"pending_requests"`
	ErrorRate       float64       `json:"error_rate"`
}
