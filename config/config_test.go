package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"polymarket-relations/relations"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Server.Port != def.Server.Port {
		t.Errorf("port = %d, want default %d", cfg.Server.Port, def.Server.Port)
	}
	if cfg.Relations.MinSharedMarkets != def.Relations.MinSharedMarkets {
		t.Errorf("min_shared_markets = %d, want default %d", cfg.Relations.MinSharedMarkets, def.Relations.MinSharedMarkets)
	}
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
relations:
  min_shared_markets: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Relations.MinSharedMarkets != 10 {
		t.Errorf("min_shared_markets = %d, want 10", cfg.Relations.MinSharedMarkets)
	}
	// Untouched keys come from defaults.
	if cfg.Relations.MinCopyScore != 0.5 {
		t.Errorf("min_copy_score = %v, want default 0.5", cfg.Relations.MinCopyScore)
	}
	if cfg.Relations.Weights != relations.DefaultWeights() {
		t.Errorf("weights = %+v, want defaults", cfg.Relations.Weights)
	}
	if cfg.Analysis.RefreshMinutes != 30 {
		t.Errorf("refresh_minutes = %d, want default 30", cfg.Analysis.RefreshMinutes)
	}
}

func TestLoadRejectsBrokenThresholds(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			"negative lag tolerance",
			"relations:\n  lag_tolerance_hours: -2\n",
		},
		{
			"correlation floor above one",
			"relations:\n  min_correlation_to_promote: 1.5\n",
		},
		{
			"weights not summing to one",
			"relations:\n  weights:\n    time_consistency: 0.9\n    outcome_matching: 0.3\n    order_preservation: 0.2\n    volume_correlation: 0.1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			_, err := Load(path)
			if !errors.Is(err, relations.ErrInvalidConfig) {
				t.Fatalf("Load err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadRejectsMalformedYaml(t *testing.T) {
	path := writeConfig(t, "relations: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("Load must reject malformed yaml")
	}
}

func TestEngineConfigTranslation(t *testing.T) {
	cfg := Default()
	engineCfg := cfg.Engine()

	if err := engineCfg.Validate(); err != nil {
		t.Fatalf("default engine config must validate, got %v", err)
	}
	if engineCfg.MinSharedMarkets != cfg.Relations.MinSharedMarkets {
		t.Errorf("min shared markets = %d, want %d", engineCfg.MinSharedMarkets, cfg.Relations.MinSharedMarkets)
	}
	if engineCfg.LagToleranceHours != cfg.Relations.LagToleranceHours {
		t.Errorf("lag tolerance = %v, want %v", engineCfg.LagToleranceHours, cfg.Relations.LagToleranceHours)
	}
}
