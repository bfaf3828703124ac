package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"polymarket-relations/relations"
)

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `yaml:"port"`
	ReadTimeoutMS  int `yaml:"read_timeout_ms"`
	WriteTimeoutMS int `yaml:"write_timeout_ms"`
}

// RelationsConfig holds every threshold consumed by the analysis engine.
type RelationsConfig struct {
	MinSharedMarkets        int               `yaml:"min_shared_markets"`
	MinCorrelationToPromote float64           `yaml:"min_correlation_to_promote"`
	MinCopyScore            float64           `yaml:"min_copy_score"`
	MinLagSamples           int               `yaml:"min_lag_samples"`
	LookbackHours           float64           `yaml:"lookback_hours"`
	FrontRunLookbackHours   float64           `yaml:"frontrun_lookback_hours"`
	LagToleranceHours       float64           `yaml:"lag_tolerance_hours"`
	MinFollowersForLeader   int               `yaml:"min_followers_for_leader"`
	MaxWorkers              int               `yaml:"max_workers"`
	Weights                 relations.Weights `yaml:"weights"`
}

// AnalysisConfig controls the background recompute cadence.
type AnalysisConfig struct {
	RefreshMinutes int `yaml:"refresh_minutes"`
	RunTimeoutMins int `yaml:"run_timeout_minutes"`
}

// DataConfig contains persistence-related settings.
type DataConfig struct {
	DBPath string `yaml:"db_path"`
}

// Config aggregates all app configuration knobs.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Relations RelationsConfig `yaml:"relations"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Data      DataConfig      `yaml:"data"`
}

// Load reads configuration from disk, falling back to defaults. The returned
// config is already validated: a structurally broken file aborts startup.
func Load(path string) (*Config, error) {
	cfg := Default()

	configPath := path
	if configPath == "" {
		configPath = filepath.Join("config", "default.yaml")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: unable to read %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: unable to parse %s: %w", configPath, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns baseline configuration values.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8082,
			ReadTimeoutMS:  10000,
			WriteTimeoutMS: 10000,
		},
		Relations: RelationsConfig{
			MinSharedMarkets:        5,
			MinCorrelationToPromote: 0.4,
			MinCopyScore:            0.5,
			MinLagSamples:           3,
			LookbackHours:           48,
			FrontRunLookbackHours:   12,
			LagToleranceHours:       1,
			MinFollowersForLeader:   3,
			MaxWorkers:              8,
			Weights:                 relations.DefaultWeights(),
		},
		Analysis: AnalysisConfig{
			RefreshMinutes: 30,
			RunTimeoutMins: 10,
		},
		Data: DataConfig{
			DBPath: "data/relations.db",
		},
	}
}

// applyDefaults fills any zero values a partial yaml file left behind.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeoutMS == 0 {
		c.Server.ReadTimeoutMS = def.Server.ReadTimeoutMS
	}
	if c.Server.WriteTimeoutMS == 0 {
		c.Server.WriteTimeoutMS = def.Server.WriteTimeoutMS
	}
	if c.Relations.MinSharedMarkets == 0 {
		c.Relations.MinSharedMarkets = def.Relations.MinSharedMarkets
	}
	if c.Relations.MinCorrelationToPromote == 0 {
		c.Relations.MinCorrelationToPromote = def.Relations.MinCorrelationToPromote
	}
	if c.Relations.MinCopyScore == 0 {
		c.Relations.MinCopyScore = def.Relations.MinCopyScore
	}
	if c.Relations.MinLagSamples == 0 {
		c.Relations.MinLagSamples = def.Relations.MinLagSamples
	}
	if c.Relations.LookbackHours == 0 {
		c.Relations.LookbackHours = def.Relations.LookbackHours
	}
	if c.Relations.FrontRunLookbackHours == 0 {
		c.Relations.FrontRunLookbackHours = def.Relations.FrontRunLookbackHours
	}
	if c.Relations.MinFollowersForLeader == 0 {
		c.Relations.MinFollowersForLeader = def.Relations.MinFollowersForLeader
	}
	if c.Relations.MaxWorkers == 0 {
		c.Relations.MaxWorkers = def.Relations.MaxWorkers
	}
	if c.Relations.Weights.Sum() == 0 {
		c.Relations.Weights = def.Relations.Weights
	}
	if c.Analysis.RefreshMinutes == 0 {
		c.Analysis.RefreshMinutes = def.Analysis.RefreshMinutes
	}
	if c.Analysis.RunTimeoutMins == 0 {
		c.Analysis.RunTimeoutMins = def.Analysis.RunTimeoutMins
	}
	if c.Data.DBPath == "" {
		c.Data.DBPath = def.Data.DBPath
	}
}

// Validate rejects structurally broken configuration. Errors here are fatal;
// the analysis never starts with bad thresholds.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if c.Analysis.RefreshMinutes <= 0 {
		return fmt.Errorf("config: refresh_minutes must be positive")
	}
	if err := c.Engine().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Engine translates the yaml section into the engine's own config type.
func (c *Config) Engine() relations.Config {
	r := c.Relations
	return relations.Config{
		MinSharedMarkets:        r.MinSharedMarkets,
		MinCorrelationToPromote: r.MinCorrelationToPromote,
		MinCopyScore:            r.MinCopyScore,
		MinLagSamples:           r.MinLagSamples,
		LookbackHours:           r.LookbackHours,
		FrontRunLookbackHours:   r.FrontRunLookbackHours,
		LagToleranceHours:       r.LagToleranceHours,
		MinFollowersForLeader:   r.MinFollowersForLeader,
		MaxWorkers:              r.MaxWorkers,
		Weights:                 r.Weights,
	}
}
