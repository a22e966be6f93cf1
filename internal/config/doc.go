/*
Package config provides layered configuration for the client: compiled-in
defaults, an optional YAML file, then ADLSFS_* environment variables, applied
in that order of increasing precedence.

# Configuration structure

	Global     — log level/file, metrics and health ports
	Cache      — directory-listing cache and read-ahead block cache sizing
	Buffer     — RemoteFile write-mode buffering (flush interval, block size)
	Network    — REST call layer: API version, timeouts, retry, circuit breaker, pool size
	Transfer   — parallel transfer engine: chunk/block size, thread count, checkpoint path
	Security   — TLS verification and minimum version
	Monitoring — metrics, health checks, logging format

Credential acquisition and storage-account discovery are deliberately not
part of this package; callers supply a types.TokenProvider to adapter.New
directly.

# Usage

	cfg := config.NewDefault()

	if err := cfg.LoadFromFile("/etc/adlsfs/config.yaml"); err != nil {
		log.Fatal(err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

Configuration file format:

	global:
	  log_level: INFO
	  log_file: "/var/log/adlsfs.log"
	  metrics_port: 8080
	  health_port: 8081

	cache:
	  ttl: 5m
	  max_entries: 100000
	  eviction_policy: lru
	  block_size: 4194304

	transfer:
	  chunk_size: 104857600
	  block_size: 4194304
	  num_threads: 0    # 0 means "use host CPU count"
	  overwrite: false

Environment variable overrides:

	ADLSFS_LOG_LEVEL="DEBUG"
	ADLSFS_LOG_FILE="/var/log/adlsfs.log"
	ADLSFS_METRICS_PORT="9090"
	ADLSFS_CACHE_TTL="10m"
	ADLSFS_CHUNK_SIZE="52428800"
	ADLSFS_NUM_THREADS="16"
	ADLSFS_POOL_SIZE="2048"
	ADLSFS_OVERWRITE="true"

# Validation

Validate checks the settings this package cannot safely default around —
a non-positive transfer chunk size, for instance, would silently disable
chunked transfer entirely — and returns a descriptive error rather than
letting an invalid Configuration reach adapter.New.
*/
package config
