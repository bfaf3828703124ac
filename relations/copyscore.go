package relations

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"polymarket-relations/models"
)

// Weights combine the four copy-score components. They must sum to 1.
type Weights struct {
	TimeConsistency   float64 `yaml:"time_consistency"`
	OutcomeMatching   float64 `yaml:"outcome_matching"`
	OrderPreservation float64 `yaml:"order_preservation"`
	VolumeCorrelation float64 `yaml:"volume_correlation"`
}

// DefaultWeights returns the standard 0.4/0.3/0.2/0.1 weighting.
func DefaultWeights() Weights {
	return Weights{
		TimeConsistency:   0.4,
		OutcomeMatching:   0.3,
		OrderPreservation: 0.2,
		VolumeCorrelation: 0.1,
	}
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.TimeConsistency + w.OutcomeMatching + w.OrderPreservation + w.VolumeCorrelation
}

// CopyScorer turns a directed pair's lag samples into a copy score. Scoring
// A->B and B->A are independent computations; copying is not symmetric.
type CopyScorer struct {
	weights    Weights
	minSamples int
}

// NewCopyScorer builds a scorer with the given weights and evidence minimum.
func NewCopyScorer(weights Weights, minSamples int) *CopyScorer {
	return &CopyScorer{weights: weights, minSamples: minSamples}
}

// Score produces the directed edge for leader -> follower. Pairs with fewer
// than the minimum sample count return ErrInsufficientData: one perfect
// sample is not enough evidence to call anyone a copier.
func (s *CopyScorer) Score(leader, follower string, samples []LagSample, shared []SharedMarket) (models.RelationshipEdge, error) {
	if len(samples) < s.minSamples {
		return models.RelationshipEdge{}, ErrInsufficientData
	}

	lags := make([]float64, len(samples))
	for i, sm := range samples {
		lags[i] = sm.Lag.Hours()
	}

	components := models.CopyScoreComponents{
		TimeConsistency:   timeConsistency(lags),
		OutcomeMatching:   outcomeAgreement(shared),
		OrderPreservation: orderPreservation(shared),
		VolumeCorrelation: volumeCorrelation(samples),
	}

	score := s.weights.TimeConsistency*components.TimeConsistency +
		s.weights.OutcomeMatching*components.OutcomeMatching +
		s.weights.OrderPreservation*components.OrderPreservation +
		s.weights.VolumeCorrelation*components.VolumeCorrelation
	score = clamp01(score)

	first := samples[0].Follower.Timestamp
	last := samples[0].Follower.Timestamp
	for _, sm := range samples[1:] {
		if sm.Follower.Timestamp.Before(first) {
			first = sm.Follower.Timestamp
		}
		if sm.Follower.Timestamp.After(last) {
			last = sm.Follower.Timestamp
		}
	}

	return models.RelationshipEdge{
		Leader:      leader,
		Follower:    follower,
		CopyScore:   score,
		Components:  components,
		SampleCount: len(samples),
		AvgLagHours: stat.Mean(lags, nil),
		FirstSeen:   first,
		LastSeen:    last,
		Strength:    models.EdgeStrength(score),
	}, nil
}

// timeConsistency is the inverse of the coefficient of variation of the lag
// durations: a tight, repeatable lag scores near 1, a wildly varying lag
// near 0.
func timeConsistency(lags []float64) float64 {
	if len(lags) == 0 {
		return 0
	}
	mean := stat.Mean(lags, nil)
	if mean <= 0 {
		return 0
	}
	if len(lags) == 1 {
		return 1
	}
	cv := stat.StdDev(lags, nil) / mean
	return clamp01(1 - cv)
}

// orderPreservation is the fraction of shared markets where the follower's
// first entry strictly trailed the leader's. Markets where the "follower"
// moved first drag the score down.
func orderPreservation(shared []SharedMarket) float64 {
	if len(shared) == 0 {
		return 0
	}
	preserved := 0
	for _, sm := range shared {
		if sm.Follower[0].Timestamp.After(sm.Leader[0].Timestamp) {
			preserved++
		}
	}
	return float64(preserved) / float64(len(shared))
}

// volumeCorrelation measures how close the follower's notional tracks the
// leader's across matched samples. The ratio is capped at 2x so one outsized
// trade cannot dominate.
func volumeCorrelation(samples []LagSample) float64 {
	diffs := make([]float64, 0, len(samples))
	for _, sm := range samples {
		leaderNotional := sm.Leader.Notional()
		if leaderNotional <= 0 {
			continue
		}
		ratio := math.Min(sm.Follower.Notional()/leaderNotional, 2)
		diffs = append(diffs, math.Abs(1-ratio))
	}
	if len(diffs) == 0 {
		return 0
	}
	return clamp01(1 - stat.Mean(diffs, nil))
}
