package relations

import (
	"errors"
	"testing"

	"polymarket-relations/models"
)

func TestCorrelationBoundsAndSymmetry(t *testing.T) {
	idx := BuildIndex([]models.TradeRecord{
		trade("0xa", "m1", "Yes", 0, 10, 0.5),
		trade("0xa", "m2", "No", 10, 20, 0.4),
		trade("0xa", "m3", "Yes", 20, 5, 0.6),
		trade("0xb", "m1", "Yes", 15, 10, 0.5),
		trade("0xb", "m2", "Yes", 25, 20, 0.4),
		trade("0xb", "m3", "No", 35, 5, 0.6),
	})
	correlator := NewCorrelator(2)

	ab, err := correlator.Score("0xa", "0xb", idx)
	if err != nil {
		t.Fatalf("Score(a,b) error: %v", err)
	}
	ba, err := correlator.Score("0xb", "0xa", idx)
	if err != nil {
		t.Fatalf("Score(b,a) error: %v", err)
	}

	if ab.Score < 0 || ab.Score > 1 {
		t.Errorf("score %v out of [0,1]", ab.Score)
	}
	if ab.Score != ba.Score {
		t.Errorf("correlation not symmetric: %v vs %v", ab.Score, ba.Score)
	}
	if ab.TraderA != "0xa" || ab.TraderB != "0xb" {
		t.Errorf("pair not canonical: (%s, %s)", ab.TraderA, ab.TraderB)
	}
	if ba.TraderA != "0xa" || ba.TraderB != "0xb" {
		t.Errorf("reversed pair not canonical: (%s, %s)", ba.TraderA, ba.TraderB)
	}
	if ab.SharedMarkets != 3 {
		t.Errorf("shared markets = %d, want 3", ab.SharedMarkets)
	}
}

func TestCorrelationInsufficientSharedMarkets(t *testing.T) {
	idx := BuildIndex([]models.TradeRecord{
		trade("0xa", "m1", "Yes", 0, 10, 0.5),
		trade("0xb", "m1", "Yes", 5, 10, 0.5),
		trade("0xb", "m2", "Yes", 5, 10, 0.5),
	})
	correlator := NewCorrelator(2)

	_, err := correlator.Score("0xa", "0xb", idx)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestCorrelationZeroSharedMarkets(t *testing.T) {
	idx := BuildIndex([]models.TradeRecord{
		trade("0xa", "m1", "Yes", 0, 10, 0.5),
		trade("0xb", "m2", "Yes", 5, 10, 0.5),
	})
	correlator := NewCorrelator(1)

	_, err := correlator.Score("0xa", "0xb", idx)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("pair with no shared markets must be excluded, got err = %v", err)
	}
}

func TestOutcomeAgreementCaseInsensitive(t *testing.T) {
	idx := BuildIndex([]models.TradeRecord{
		trade("0xa", "m1", "YES", 0, 10, 0.5),
		trade("0xb", "m1", "yes", 5, 10, 0.5),
	})

	shared := idx.SharedMarkets("0xa", "0xb")
	if got := outcomeAgreement(shared); got != 1 {
		t.Errorf("outcomeAgreement = %v, want 1 for case-only difference", got)
	}
}

func TestTimingSimilarityHorizon(t *testing.T) {
	tests := []struct {
		name      string
		offsetMin int
		want      float64
	}{
		{"simultaneous entries", 0, 1},
		{"twelve hours apart", 12 * 60, 0.5},
		{"beyond the horizon", 48 * 60, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := BuildIndex([]models.TradeRecord{
				trade("0xa", "m1", "Yes", 0, 10, 0.5),
				trade("0xb", "m1", "Yes", tt.offsetMin, 10, 0.5),
			})
			shared := idx.SharedMarkets("0xa", "0xb")
			got := timingSimilarity(shared)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("timingSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarketOverlapJaccard(t *testing.T) {
	idx := BuildIndex([]models.TradeRecord{
		trade("0xa", "m1", "Yes", 0, 10, 0.5),
		trade("0xa", "m2", "Yes", 0, 10, 0.5),
		trade("0xa", "m3", "Yes", 0, 10, 0.5),
		trade("0xb", "m2", "Yes", 5, 10, 0.5),
		trade("0xb", "m3", "Yes", 5, 10, 0.5),
		trade("0xb", "m4", "Yes", 5, 10, 0.5),
	})

	// 2 shared over a union of 4
	got := marketOverlap(idx.Markets("0xa"), idx.Markets("0xb"))
	if diff := got - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("marketOverlap = %v, want 0.5", got)
	}
}

func TestCorrelationBands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.85, "very high"},
		{0.8, "very high"},
		{0.65, "high"},
		{0.45, "moderate"},
		{0.25, "low"},
		{0.1, "independent"},
	}
	for _, tt := range tests {
		if got := models.CorrelationBand(tt.score); got != tt.want {
			t.Errorf("CorrelationBand(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
