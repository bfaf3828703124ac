package relations

import (
	"errors"
	"math"
	"testing"
	"time"

	"polymarket-relations/models"
)

// sixMarketScenario builds one leader and one follower trading six markets,
// the follower mirroring every trade roughly ten minutes later.
func sixMarketScenario() []models.TradeRecord {
	jitter := []int{-1, 0, 1, 0, 0, 0} // minutes around the 10-minute lag
	var records []models.TradeRecord
	markets := []string{"m1", "m2", "m3", "m4", "m5", "m6"}
	for i, m := range markets {
		base := i * 60
		records = append(records,
			trade("0xlead", m, "Yes", base, 100, 0.5),
			trade("0xfoll", m, "Yes", base+10+jitter[i], 95, 0.5),
		)
	}
	return records
}

func TestCopyScorerInsufficientSamples(t *testing.T) {
	idx := BuildIndex([]models.TradeRecord{
		trade("0xlead", "m1", "Yes", 0, 10, 0.5),
		trade("0xfoll", "m1", "Yes", 10, 10, 0.5),
	})
	shared := idx.SharedMarkets("0xlead", "0xfoll")
	samples := MatchLagSamples(shared, 48*time.Hour)
	if len(samples) != 1 {
		t.Fatalf("setup: got %d samples, want 1", len(samples))
	}

	scorer := NewCopyScorer(DefaultWeights(), 3)
	_, err := scorer.Score("0xlead", "0xfoll", samples, shared)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("one perfect sample must not produce an edge, got err = %v", err)
	}
}

func TestCopyScorerTightLagScenario(t *testing.T) {
	idx := BuildIndex(sixMarketScenario())
	shared := idx.SharedMarkets("0xlead", "0xfoll")
	samples := MatchLagSamples(shared, 48*time.Hour)
	if len(samples) != 6 {
		t.Fatalf("setup: got %d samples, want 6", len(samples))
	}

	scorer := NewCopyScorer(DefaultWeights(), 3)
	edge, err := scorer.Score("0xlead", "0xfoll", samples, shared)
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}

	if edge.CopyScore < 0.5 {
		t.Errorf("copy score = %v, want >= 0.5 for a consistent ten-minute lag", edge.CopyScore)
	}
	c := edge.Components
	for name, v := range map[string]float64{
		"time_consistency":   c.TimeConsistency,
		"outcome_matching":   c.OutcomeMatching,
		"order_preservation": c.OrderPreservation,
		"volume_correlation": c.VolumeCorrelation,
	} {
		if v < 0 || v > 1 {
			t.Errorf("component %s = %v out of [0,1]", name, v)
		}
	}
	if c.TimeConsistency < 0.8 {
		t.Errorf("time consistency = %v, want >= 0.8 for near-constant lags", c.TimeConsistency)
	}
	if c.OutcomeMatching != 1 {
		t.Errorf("outcome matching = %v, want 1", c.OutcomeMatching)
	}
	if c.OrderPreservation != 1 {
		t.Errorf("order preservation = %v, want 1", c.OrderPreservation)
	}
	if edge.SampleCount != 6 {
		t.Errorf("sample count = %d, want 6", edge.SampleCount)
	}
	if wantLag := 10.0 / 60.0; math.Abs(edge.AvgLagHours-wantLag) > 0.01 {
		t.Errorf("avg lag = %v hours, want about %v", edge.AvgLagHours, wantLag)
	}
	if edge.FirstSeen.After(edge.LastSeen) {
		t.Errorf("first seen %v after last seen %v", edge.FirstSeen, edge.LastSeen)
	}
}

func TestOrderPreservationPenalizesReversedEntries(t *testing.T) {
	// Follower moved first on one of two shared markets.
	idx := BuildIndex([]models.TradeRecord{
		trade("0xlead", "m1", "Yes", 0, 10, 0.5),
		trade("0xfoll", "m1", "Yes", 10, 10, 0.5),
		trade("0xfoll", "m2", "Yes", 0, 10, 0.5),
		trade("0xlead", "m2", "Yes", 10, 10, 0.5),
	})

	got := orderPreservation(idx.SharedMarkets("0xlead", "0xfoll"))
	if got != 0.5 {
		t.Errorf("orderPreservation = %v, want 0.5", got)
	}
}

func TestVolumeCorrelationCapsOutsizedTrades(t *testing.T) {
	lead := trade("0xlead", "m1", "Yes", 0, 100, 0.5)
	tests := []struct {
		name   string
		foll   models.TradeRecord
		want   float64
		within float64
	}{
		{"identical notional", trade("0xfoll", "m1", "Yes", 10, 100, 0.5), 1, 1e-9},
		{"half notional", trade("0xfoll", "m1", "Yes", 10, 50, 0.5), 0.5, 1e-9},
		{"10x notional capped at 2x", trade("0xfoll", "m1", "Yes", 10, 1000, 0.5), 0, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := []LagSample{{Leader: lead, Follower: tt.foll, Lag: 10 * time.Minute}}
			got := volumeCorrelation(samples)
			if math.Abs(got-tt.want) > tt.within {
				t.Errorf("volumeCorrelation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeConsistencySingleSample(t *testing.T) {
	if got := timeConsistency([]float64{0.5}); got != 1 {
		t.Errorf("timeConsistency single sample = %v, want 1", got)
	}
	if got := timeConsistency(nil); got != 0 {
		t.Errorf("timeConsistency empty = %v, want 0", got)
	}
}

func TestEdgeStrengthTiers(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.95, "PERFECT"},
		{0.9, "PERFECT"},
		{0.75, "STRONG"},
		{0.5, "MODERATE"},
		{0.3, "WEAK"},
	}
	for _, tt := range tests {
		if got := models.EdgeStrength(tt.score); got != tt.want {
			t.Errorf("EdgeStrength(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
