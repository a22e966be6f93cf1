package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/adlsfs/adlsfs/pkg/utils"
)

// Configuration represents the complete client configuration. It covers only
// the ambient concerns the core owns (retry tuning, cache sizing, worker
// counts, logging); token acquisition and environment/account discovery are
// left to the caller.
type Configuration struct {
	Global   GlobalConfig   `yaml:"global"`
	Cache    CacheConfig    `yaml:"cache"`
	Buffer   BufferConfig   `yaml:"buffer"`
	Network  NetworkConfig  `yaml:"network"`
	Transfer TransferConfig `yaml:"transfer"`
	Security SecurityConfig `yaml:"security"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig represents global client settings.
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsPort int    `yaml:"metrics_port"`
	HealthPort  int    `yaml:"health_port"`
}

// CacheConfig configures the directory-listing cache and the per-handle
// read-ahead block cache.
type CacheConfig struct {
	TTL            time.Duration `yaml:"ttl"`
	MaxEntries     int           `yaml:"max_entries"`
	EvictionPolicy string        `yaml:"eviction_policy"`
	BlockSize      int64         `yaml:"block_size"`
}

// BufferConfig configures RemoteFile's write-mode buffering.
type BufferConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxBuffers    int           `yaml:"max_buffers"`
	BlockSize     int64         `yaml:"block_size"`
}

// NetworkConfig configures the REST call layer.
type NetworkConfig struct {
	APIVersion     string               `yaml:"api_version"`
	Timeouts       TimeoutConfig        `yaml:"timeouts"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	PoolSize       int                  `yaml:"pool_size"`
}

// TimeoutConfig represents per-request timeout settings.
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect"`
	Request time.Duration `yaml:"request"`
}

// RetryConfig represents retry settings for the REST call layer.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// CircuitBreakerConfig represents circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// TransferConfig configures the parallel transfer engine.
type TransferConfig struct {
	ChunkSize   int64  `yaml:"chunk_size"`
	BlockSize   int64  `yaml:"block_size"`
	NumThreads  int    `yaml:"num_threads"`
	PersistPath string `yaml:"persist_path"`
	Overwrite   bool   `yaml:"overwrite"`
}

// SecurityConfig represents transport security settings.
type SecurityConfig struct {
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig represents TLS settings.
type TLSConfig struct {
	VerifyCertificates bool   `yaml:"verify_certificates"`
	MinVersion         string `yaml:"min_version"`
}

// MonitoringConfig represents monitoring settings.
type MonitoringConfig struct {
	Metrics      MetricsConfig      `yaml:"metrics"`
	HealthChecks HealthChecksConfig `yaml:"health_checks"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// MetricsConfig represents metrics settings.
type MetricsConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Prometheus   bool              `yaml:"prometheus"`
	CustomLabels map[string]string `yaml:"custom_labels"`
}

// HealthChecksConfig represents health check settings.
type HealthChecksConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Structured bool   `yaml:"structured"`
	Format     string `yaml:"format"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			MetricsPort: 8080,
			HealthPort:  8081,
		},
		Cache: CacheConfig{
			TTL:            5 * time.Minute,
			MaxEntries:     100000,
			EvictionPolicy: "lru",
			BlockSize:      4 * 1024 * 1024,
		},
		Buffer: BufferConfig{
			FlushInterval: 30 * time.Second,
			MaxBuffers:    1000,
			BlockSize:     4 * 1024 * 1024,
		},
		Network: NetworkConfig{
			APIVersion: "2018-09-01",
			Timeouts: TimeoutConfig{
				Connect: 10 * time.Second,
				Request: 60 * time.Second,
			},
			Retry: RetryConfig{
				MaxAttempts: 5,
				BaseDelay:   100 * time.Millisecond,
				MaxDelay:    30 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				Timeout:          60 * time.Second,
			},
			PoolSize: 1024,
		},
		Transfer: TransferConfig{
			ChunkSize:  100 * 1024 * 1024,
			BlockSize:  4 * 1024 * 1024,
			NumThreads: 0, // 0 means "use host CPU count"
			Overwrite:  false,
		},
		Security: SecurityConfig{
			TLS: TLSConfig{
				VerifyCertificates: true,
				MinVersion:         "1.2",
			},
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:    true,
				Prometheus: true,
				CustomLabels: map[string]string{
					"component": "adlsfs",
				},
			},
			HealthChecks: HealthChecksConfig{
				Enabled:  true,
				Interval: 30 * time.Second,
				Timeout:  5 * time.Second,
			},
			Logging: LoggingConfig{
				Structured: true,
				Format:     "json",
			},
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv overrides the ambient settings this package owns from
// ADLSFS_* environment variables. Store-account discovery and credential
// acquisition are deliberately not read here — that is left to the caller.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("ADLSFS_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("ADLSFS_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}
	if val := os.Getenv("ADLSFS_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}
	if val := os.Getenv("ADLSFS_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Cache.TTL = d
		}
	}
	if val := os.Getenv("ADLSFS_CHUNK_SIZE"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Transfer.ChunkSize = n
		}
	}
	if val := os.Getenv("ADLSFS_NUM_THREADS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Transfer.NumThreads = n
		}
	}
	if val := os.Getenv("ADLSFS_POOL_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Network.PoolSize = n
		}
	}
	if val := os.Getenv("ADLSFS_OVERWRITE"); val != "" {
		c.Transfer.Overwrite = strings.ToLower(val) == "true"
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Configuration) Validate() error {
	if c.Transfer.ChunkSize <= 0 {
		return fmt.Errorf("transfer.chunk_size must be greater than 0")
	}

	if c.Network.PoolSize <= 0 {
		return fmt.Errorf("network.pool_size must be greater than 0")
	}

	if c.Global.MetricsPort == c.Global.HealthPort {
		return fmt.Errorf("metrics_port and health_port cannot be the same")
	}

	if _, err := utils.ParseLogLevel(c.Global.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %s (must be one of: TRACE, DEBUG, INFO, WARN, ERROR, FATAL)", c.Global.LogLevel)
	}

	return nil
}
