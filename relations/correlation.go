package relations

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"polymarket-relations/models"
)

// Correlation weights. Outcome agreement dominates because two traders who
// keep landing on the same side of the same markets are the strongest
// similarity signal; raw market overlap is the weakest.
const (
	overlapWeight   = 0.3
	agreementWeight = 0.5
	timingWeight    = 0.2

	// Entry-time deltas at or beyond a full day contribute zero similarity.
	timingHorizonHours = 24.0
)

// Correlator computes the symmetric behavioral similarity for trader pairs.
// It is the coarse screen in front of the expensive lag matching.
type Correlator struct {
	minSharedMarkets int
}

// NewCorrelator returns a correlator that refuses to score pairs with fewer
// than minSharedMarkets shared markets.
func NewCorrelator(minSharedMarkets int) *Correlator {
	return &Correlator{minSharedMarkets: minSharedMarkets}
}

// Score computes the pair correlation from the shared-market set. The result
// is symmetric and in [0,1]. Pairs below the shared-market minimum return
// ErrInsufficientData and must be excluded from output, not scored as zero.
func (c *Correlator) Score(traderA, traderB string, idx *TraderMarketIndex) (models.PairCorrelation, error) {
	if traderA > traderB {
		traderA, traderB = traderB, traderA
	}

	shared := idx.SharedMarkets(traderA, traderB)
	if len(shared) < c.minSharedMarkets {
		return models.PairCorrelation{}, ErrInsufficientData
	}

	overlap := marketOverlap(idx.Markets(traderA), idx.Markets(traderB))
	agreement := outcomeAgreement(shared)
	timing := timingSimilarity(shared)

	score := overlapWeight*overlap + agreementWeight*agreement + timingWeight*timing
	score = clamp01(score)

	return models.PairCorrelation{
		TraderA:          traderA,
		TraderB:          traderB,
		MarketOverlap:    overlap,
		OutcomeAgreement: agreement,
		TimingSimilarity: timing,
		Score:            score,
		SharedMarkets:    len(shared),
		Band:             models.CorrelationBand(score),
	}, nil
}

// marketOverlap is the Jaccard similarity of the two traded-market sets.
func marketOverlap(a, b map[string][]models.TradeRecord) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for id := range a {
		if _, ok := b[id]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// outcomeAgreement is the fraction of shared markets where both traders'
// dominant outcome matches (case-insensitive).
func outcomeAgreement(shared []SharedMarket) float64 {
	if len(shared) == 0 {
		return 0
	}
	matches := 0
	for _, sm := range shared {
		if dominantOutcome(sm.Leader) == dominantOutcome(sm.Follower) {
			matches++
		}
	}
	return float64(matches) / float64(len(shared))
}

// dominantOutcome is the trader's most frequent outcome on a market, ties
// broken lexicographically so reruns agree.
func dominantOutcome(trades []models.TradeRecord) string {
	counts := make(map[string]int)
	for _, t := range trades {
		counts[strings.ToLower(t.Outcome)]++
	}
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)

	best, bestCount := "", -1
	for _, o := range outcomes {
		if counts[o] > bestCount {
			best, bestCount = o, counts[o]
		}
	}
	return best
}

// timingSimilarity converts the average gap between the two traders' first
// entries on each shared market into a [0,1] closeness score.
func timingSimilarity(shared []SharedMarket) float64 {
	if len(shared) == 0 {
		return 0
	}
	diffs := make([]float64, 0, len(shared))
	for _, sm := range shared {
		// Trades are timestamp-sorted, so index 0 is first entry.
		delta := sm.Leader[0].Timestamp.Sub(sm.Follower[0].Timestamp).Hours()
		diffs = append(diffs, math.Abs(delta))
	}
	avg := stat.Mean(diffs, nil)
	return 1 - math.Min(avg/timingHorizonHours, 1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
