// Package config provides configuration loading for enginectl and the
// library entry point, via viper so flags, environment variables, and
// a YAML file all resolve into one Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the full engine configuration.
type Config struct {
	// Runner selects the worker pool: "local" runs tasks in-process,
	// "distributed" dispatches to remote workers over gRPC.
	Runner string `mapstructure:"runner"`

	Resources ResourcesConfig `mapstructure:"resources"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Trace     TraceConfig     `mapstructure:"trace"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	History   HistoryConfig   `mapstructure:"history"`
	Distributed DistributedConfig `mapstructure:"distributed"`
}

// ResourcesConfig caps the admission controller's view of cluster
// capacity; a task whose ResourceRequest doesn't fit within these caps
// even alone is rejected rather than queued forever.
type ResourcesConfig struct {
	CapCPU         float64 `mapstructure:"capCPU"`
	CapGPU         float64 `mapstructure:"capGPU"`
	CapMemoryBytes int64   `mapstructure:"capMemoryBytes"`
}

// OptimizerConfig tunes the rule-based optimizer's batch policies.
type OptimizerConfig struct {
	FixedPointMaxIters int `mapstructure:"fixedPointMaxIters"`
}

// TraceConfig controls Chrome Trace Event Format output.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// StorageConfig controls scan/write file layout.
type StorageConfig struct {
	ParquetTargetFilesizeBytes int64 `mapstructure:"parquetTargetFilesizeBytes"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HistoryConfig controls the optional Postgres-backed task/wave history
// store; when Enabled is false the engine logs to stdout only.
type HistoryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DistributedConfig configures the gRPC worker pool used when
// Runner == "distributed".
type DistributedConfig struct {
	WorkerAddrs []string `mapstructure:"workerAddrs"`
	DialTimeout string   `mapstructure:"dialTimeout"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Runner: "local",
		Resources: ResourcesConfig{
			CapCPU:         8,
			CapGPU:         0,
			CapMemoryBytes: 8 << 30,
		},
		Optimizer: OptimizerConfig{
			FixedPointMaxIters: 10,
		},
		Trace: TraceConfig{
			Enabled: false,
			Dir:     ".",
		},
		Storage: StorageConfig{
			ParquetTargetFilesizeBytes: 512 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		History: HistoryConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "engine",
			Password: "engine_dev",
			Name:     "engine",
			SSLMode:  "disable",
		},
		Distributed: DistributedConfig{
			WorkerAddrs: nil,
			DialTimeout: "5s",
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".enginectl"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("ENGINE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field values that viper's unmarshal can't enforce.
func (c *Config) Validate() error {
	if c.Runner != "local" && c.Runner != "distributed" {
		return fmt.Errorf("config: runner must be \"local\" or \"distributed\", got %q", c.Runner)
	}
	if c.Runner == "distributed" && len(c.Distributed.WorkerAddrs) == 0 {
		return fmt.Errorf("config: distributed.workerAddrs must be set when runner is \"distributed\"")
	}
	if c.Resources.CapCPU <= 0 {
		return fmt.Errorf("config: resources.capCPU must be positive")
	}
	if c.Resources.CapMemoryBytes <= 0 {
		return fmt.Errorf("config: resources.capMemoryBytes must be positive")
	}
	if c.Optimizer.FixedPointMaxIters < 1 {
		return fmt.Errorf("config: optimizer.fixedPointMaxIters must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("runner", "local")
	v.SetDefault("resources.capCPU", 8)
	v.SetDefault("resources.capGPU", 0)
	v.SetDefault("resources.capMemoryBytes", int64(8<<30))
	v.SetDefault("optimizer.fixedPointMaxIters", 10)
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.dir", ".")
	v.SetDefault("storage.parquetTargetFilesizeBytes", int64(512<<20))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.host", "localhost")
	v.SetDefault("history.port", 5432)
	v.SetDefault("history.user", "engine")
	v.SetDefault("history.password", "engine_dev")
	v.SetDefault("history.name", "engine")
	v.SetDefault("history.sslmode", "disable")
	v.SetDefault("distributed.dialTimeout", "5s")
}
