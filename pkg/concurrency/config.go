package concurrency

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// EngineMode selects which sequential engine parallel workers run.
type EngineMode string

const (
	EngineModeRecursive EngineMode = "recursive"
	EngineModeIterative EngineMode = "iterative"
)

// ConfigSource indicates where the configuration came from
type ConfigSource string

const (
	ConfigSourceEnvVar     ConfigSource = "environment_variable"
	ConfigSourceAutoDetect ConfigSource = "auto_detect"
)

// Config holds concurrency configuration for the engine and its service
// glue.
type Config struct {
	// MaxConcurrent bounds how many searches the runner executes at
	// once (the Limiter capacity).
	MaxConcurrent int

	// SearchWorkers is the default worker-pool size for ParallelSearch
	// when the caller passes workers <= 0.
	SearchWorkers int

	// DefaultEngine is the sequential engine parallel workers run when
	// the search config leaves it unset.
	DefaultEngine EngineMode

	Source        ConfigSource
	IsKubernetes  bool
	EffectiveCPUs int
}

// LoadConfig loads concurrency configuration with priority:
// environment variables > auto-detection.
func LoadConfig() *Config {
	config := &Config{}

	// Kubernetes sets this variable in every container.
	config.IsKubernetes = os.Getenv("KUBERNETES_SERVICE_HOST") != ""

	// GOMAXPROCS respects cgroup CPU limits when set by the deployment.
	config.EffectiveCPUs = runtime.GOMAXPROCS(0)

	if maxConcurrent := getEnvInt("DAEDALUS_MAX_CONCURRENT", 0); maxConcurrent > 0 {
		config.MaxConcurrent = maxConcurrent
		config.Source = ConfigSourceEnvVar
	} else if multiplier := getEnvInt("DAEDALUS_CONCURRENCY_MULTIPLIER", 0); multiplier > 0 {
		config.MaxConcurrent = config.EffectiveCPUs * multiplier
		config.Source = ConfigSourceEnvVar
	} else {
		config.MaxConcurrent = defaultMaxConcurrent(config.IsKubernetes, config.EffectiveCPUs)
		config.Source = ConfigSourceAutoDetect
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}

	// Search workers default to the available hardware parallelism: the
	// dispatcher's workers are CPU-bound, unlike the runner's
	// IO-blocking message handlers.
	if workers := getEnvInt("DAEDALUS_SEARCH_WORKERS", 0); workers > 0 {
		config.SearchWorkers = workers
	} else {
		config.SearchWorkers = config.EffectiveCPUs
	}
	if config.SearchWorkers < 1 {
		config.SearchWorkers = 1
	}

	if mode := os.Getenv("DAEDALUS_SEARCH_ENGINE"); mode != "" {
		config.DefaultEngine = EngineMode(strings.ToLower(mode))
	}
	if config.DefaultEngine != EngineModeRecursive && config.DefaultEngine != EngineModeIterative {
		config.DefaultEngine = EngineModeRecursive
	}

	return config
}

// defaultMaxConcurrent returns sensible defaults based on environment
func defaultMaxConcurrent(isK8s bool, cpus int) int {
	if isK8s {
		// Conservative in Kubernetes to prevent resource exhaustion
		return cpus * 2
	}
	// More aggressive on bare metal
	return cpus * 4
}

// getEnvInt retrieves an integer from an environment variable with a
// default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// String returns a formatted representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{MaxConcurrent: %d, SearchWorkers: %d, DefaultEngine: %s, IsK8s: %t, CPUs: %d, Source: %s}",
		c.MaxConcurrent,
		c.SearchWorkers,
		c.DefaultEngine,
		c.IsKubernetes,
		c.EffectiveCPUs,
		c.Source,
	)
}
