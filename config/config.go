// Package config handles configuration loading and validation for the
// SPoRA mining core, following tos-pool's internal/config.Load shape:
// one struct per concern, mapstructure tags, viper defaults plus file
// and environment overlays.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the miner process.
type Config struct {
	Mining  MiningConfig  `mapstructure:"mining"`
	Workers WorkersConfig `mapstructure:"workers"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// MiningConfig controls the session controller's round behavior.
type MiningConfig struct {
	RewardAddressHex   string        `mapstructure:"reward_address"`
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
	UpperBoundDepth    uint64        `mapstructure:"upper_bound_depth"`
	RandomXReadyRetry  time.Duration `mapstructure:"randomx_ready_retry"`
	SolutionDedupCache int           `mapstructure:"solution_dedup_cache"`
}

// WorkersConfig sizes the worker pools a round starts.
type WorkersConfig struct {
	Stage1       int `mapstructure:"stage1"`
	Stage2       int `mapstructure:"stage2"`
	IO           int `mapstructure:"io"`
	HashBatch    int `mapstructure:"hash_batch"`
	AutoFromCPU  bool `mapstructure:"auto_from_cpu"`
}

// StorageConfig points at the reference chunk store.
type StorageConfig struct {
	ChunkDBPath   string `mapstructure:"chunk_db_path"`
	ChunkCacheMiB int    `mapstructure:"chunk_cache_mib"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from configPath (or the default search path
// if empty) overlaid with SPORA_-prefixed environment variables, with
// dots in a key replaced by underscores (SPORA_MINING_REFRESH_INTERVAL
// for mining.refresh_interval). An environment variable is only read
// for a key that has a default or appears in the config file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sporaminer")
	}

	v.SetEnvPrefix("SPORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mining.refresh_interval", "10s")
	v.SetDefault("mining.upper_bound_depth", 50)
	v.SetDefault("mining.randomx_ready_retry", "10s")
	v.SetDefault("mining.solution_dedup_cache", 4096)

	v.SetDefault("workers.auto_from_cpu", true)
	v.SetDefault("workers.hash_batch", 256)

	v.SetDefault("storage.chunk_db_path", "./data/chunks")
	v.SetDefault("storage.chunk_cache_mib", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Mining.RewardAddressHex == "" {
		return fmt.Errorf("mining.reward_address is required")
	}
	if c.Mining.UpperBoundDepth == 0 {
		return fmt.Errorf("mining.upper_bound_depth must be > 0")
	}
	if !c.Workers.AutoFromCPU && (c.Workers.Stage1 == 0 || c.Workers.Stage2 == 0 || c.Workers.IO == 0) {
		return fmt.Errorf("workers.stage1/stage2/io must be > 0 when auto_from_cpu is false")
	}
	if c.Storage.ChunkDBPath == "" {
		return fmt.Errorf("storage.chunk_db_path is required")
	}
	return nil
}
