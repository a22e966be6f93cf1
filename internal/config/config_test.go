package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testDebugLevel = "DEBUG"

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Global.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel to be INFO, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsPort != 8080 {
		t.Errorf("Expected MetricsPort to be 8080, got %d", cfg.Global.MetricsPort)
	}
	if cfg.Global.HealthPort != 8081 {
		t.Errorf("Expected HealthPort to be 8081, got %d", cfg.Global.HealthPort)
	}

	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Expected Cache TTL to be 5 minutes, got %v", cfg.Cache.TTL)
	}
	if cfg.Cache.EvictionPolicy != "lru" {
		t.Errorf("Expected EvictionPolicy to be lru, got %s", cfg.Cache.EvictionPolicy)
	}

	if cfg.Transfer.ChunkSize != 100*1024*1024 {
		t.Errorf("Expected ChunkSize to be 100MB, got %d", cfg.Transfer.ChunkSize)
	}
	if cfg.Transfer.NumThreads != 0 {
		t.Errorf("Expected NumThreads to default to 0 (host CPU count), got %d", cfg.Transfer.NumThreads)
	}

	if cfg.Network.PoolSize != 1024 {
		t.Errorf("Expected PoolSize to be 1024, got %d", cfg.Network.PoolSize)
	}
	if !cfg.Network.CircuitBreaker.Enabled {
		t.Error("Expected circuit breaker to be enabled by default")
	}

	if !cfg.Monitoring.HealthChecks.Enabled {
		t.Error("Expected health checks to be enabled by default")
	}
	if !cfg.Monitoring.Metrics.Prometheus {
		t.Error("Expected Prometheus metrics to be enabled by default")
	}

	if !cfg.Security.TLS.VerifyCertificates {
		t.Error("Expected TLS certificate verification to be enabled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Configuration
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: func() *Configuration {
				return NewDefault()
			},
			wantErr: false,
		},
		{
			name: "invalid chunk size",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Transfer.ChunkSize = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "transfer.chunk_size must be greater than 0",
		},
		{
			name: "invalid pool size",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Network.PoolSize = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "network.pool_size must be greater than 0",
		},
		{
			name: "same metrics and health ports",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.MetricsPort = 8080
				cfg.Global.HealthPort = 8080
				return cfg
			},
			wantErr: true,
			errMsg:  "metrics_port and health_port cannot be the same",
		},
		{
			name: "invalid log level",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.LogLevel = "INVALID"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config()
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errMsg != "" && !containsSubstring(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %v", err, tt.errMsg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
global:
  log_level: DEBUG
  metrics_port: 9090
  health_port: 9091

cache:
  ttl: 10m
  eviction_policy: lfu

transfer:
  chunk_size: 52428800
  num_threads: 8
  overwrite: true
`

	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromFile(configFile); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Global.LogLevel != testDebugLevel {
		t.Errorf("Expected LogLevel to be DEBUG, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsPort != 9090 {
		t.Errorf("Expected MetricsPort to be 9090, got %d", cfg.Global.MetricsPort)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Expected Cache TTL to be 10 minutes, got %v", cfg.Cache.TTL)
	}
	if cfg.Cache.EvictionPolicy != "lfu" {
		t.Errorf("Expected EvictionPolicy to be lfu, got %s", cfg.Cache.EvictionPolicy)
	}
	if cfg.Transfer.ChunkSize != 52428800 {
		t.Errorf("Expected ChunkSize to be 52428800, got %d", cfg.Transfer.ChunkSize)
	}
	if cfg.Transfer.NumThreads != 8 {
		t.Errorf("Expected NumThreads to be 8, got %d", cfg.Transfer.NumThreads)
	}
	if !cfg.Transfer.Overwrite {
		t.Error("Expected Overwrite to be true")
	}
}

func TestLoadFromFileNonExistent(t *testing.T) {
	cfg := NewDefault()
	if err := cfg.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error when loading non-existent config file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	testEnvVars := map[string]string{
		"ADLSFS_LOG_LEVEL":    "ERROR",
		"ADLSFS_METRICS_PORT": "9090",
		"ADLSFS_CACHE_TTL":    "10m",
		"ADLSFS_CHUNK_SIZE":   "52428800",
		"ADLSFS_NUM_THREADS":  "16",
		"ADLSFS_POOL_SIZE":    "2048",
		"ADLSFS_OVERWRITE":    "true",
	}

	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Global.LogLevel != "ERROR" {
		t.Errorf("Expected LogLevel to be ERROR, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsPort != 9090 {
		t.Errorf("Expected MetricsPort to be 9090, got %d", cfg.Global.MetricsPort)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Expected Cache TTL to be 10 minutes, got %v", cfg.Cache.TTL)
	}
	if cfg.Transfer.ChunkSize != 52428800 {
		t.Errorf("Expected ChunkSize to be 52428800, got %d", cfg.Transfer.ChunkSize)
	}
	if cfg.Transfer.NumThreads != 16 {
		t.Errorf("Expected NumThreads to be 16, got %d", cfg.Transfer.NumThreads)
	}
	if cfg.Network.PoolSize != 2048 {
		t.Errorf("Expected PoolSize to be 2048, got %d", cfg.Network.PoolSize)
	}
	if !cfg.Transfer.Overwrite {
		t.Error("Expected Overwrite to be true")
	}
}

func TestSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "saved_config.yaml")

	cfg := NewDefault()
	cfg.Global.LogLevel = testDebugLevel
	cfg.Transfer.ChunkSize = 52428800

	if err := cfg.SaveToFile(configFile); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	newCfg := NewDefault()
	if err := newCfg.LoadFromFile(configFile); err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if newCfg.Global.LogLevel != testDebugLevel {
		t.Errorf("Expected LogLevel to be DEBUG, got %s", newCfg.Global.LogLevel)
	}
	if newCfg.Transfer.ChunkSize != 52428800 {
		t.Errorf("Expected ChunkSize to be 52428800, got %d", newCfg.Transfer.ChunkSize)
	}
}

func TestSaveToFileCreateDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := NewDefault()
	if err := cfg.SaveToFile(configFile); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}
	if _, err := os.Stat(filepath.Dir(configFile)); os.IsNotExist(err) {
		t.Error("Config directory was not created")
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
