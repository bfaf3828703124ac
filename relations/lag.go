package relations

import (
	"strings"
	"time"

	"polymarket-relations/models"
)

// LagSample is one matched (leader trade, follower trade) pair on the same
// market and outcome. Lag is always strictly positive: a sample where the
// follower did not trade after the leader is not evidence of copying and is
// never produced.
type LagSample struct {
	Leader   models.TradeRecord
	Follower models.TradeRecord
	Lag      time.Duration
}

// MatchLagSamples extracts causally ordered samples for a directed pair
// across its shared markets. Matching is greedy one-to-one per market and
// outcome: leader trades are processed in timestamp order and each claims the
// nearest unmatched follower trade that comes strictly after it within the
// lookback window. Leader trades with no qualifying match contribute nothing.
func MatchLagSamples(shared []SharedMarket, lookback time.Duration) []LagSample {
	var samples []LagSample
	for _, sm := range shared {
		samples = append(samples, matchMarket(sm, lookback)...)
	}
	return samples
}

func matchMarket(sm SharedMarket, lookback time.Duration) []LagSample {
	used := make([]bool, len(sm.Follower))
	var samples []LagSample

	for _, lead := range sm.Leader {
		deadline := lead.Timestamp.Add(lookback)
		// Follower trades are timestamp-sorted, so the first unmatched trade
		// after the leader is also the closest in time.
		for i, fol := range sm.Follower {
			if used[i] {
				continue
			}
			if !fol.Timestamp.After(lead.Timestamp) {
				continue
			}
			if fol.Timestamp.After(deadline) {
				break
			}
			if !strings.EqualFold(fol.Outcome, lead.Outcome) {
				continue
			}
			used[i] = true
			samples = append(samples, LagSample{
				Leader:   lead,
				Follower: fol,
				Lag:      fol.Timestamp.Sub(lead.Timestamp),
			})
			break
		}
	}
	return samples
}
