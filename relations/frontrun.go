package relations

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"polymarket-relations/models"
)

// MarketLookup resolves market titles for opportunity output. Implementations
// are injected (typically a read-through cache over the store); the detector
// itself holds no mutable lookup state.
type MarketLookup interface {
	MarketTitle(ctx context.Context, marketID string) (string, error)
}

// Notional at or above this contributes full magnitude.
const magnitudeNotionalScale = 1000.0

// FrontRunDetector scans recent leader trades for replication gaps: a leader
// has acted, enough of their classified followers have not. It emits derived,
// read-only signals and performs no trading action.
type FrontRunDetector struct {
	lookback     time.Duration
	lagTolerance time.Duration
	minFollowers int
	markets      MarketLookup
}

// NewFrontRunDetector builds a detector. markets may be nil, in which case
// opportunities carry the market id as title.
func NewFrontRunDetector(lookback, lagTolerance time.Duration, minFollowers int, markets MarketLookup) *FrontRunDetector {
	return &FrontRunDetector{
		lookback:     lookback,
		lagTolerance: lagTolerance,
		minFollowers: minFollowers,
		markets:      markets,
	}
}

// Detect walks every LEADER's trades inside the lookback window and emits an
// opportunity when at least minFollowers qualifying followers have not placed
// a matching trade within the pair's historical average lag plus tolerance.
func (d *FrontRunDetector) Detect(ctx context.Context, idx *TraderMarketIndex, qualified []models.RelationshipEdge, roles map[string]models.TraderRole, now time.Time) []models.FrontRunOpportunity {
	edgesByLeader := make(map[string][]models.RelationshipEdge)
	for _, e := range qualified {
		edgesByLeader[e.Leader] = append(edgesByLeader[e.Leader], e)
	}

	cutoff := now.Add(-d.lookback)
	var opportunities []models.FrontRunOpportunity

	for _, leader := range idx.Traders() {
		if roles[leader] != models.RoleLeader {
			continue
		}
		followerEdges := edgesByLeader[leader]
		if len(followerEdges) == 0 {
			continue
		}

		seen := make(map[string]struct{})
		for _, trade := range idx.TradesSince(leader, cutoff) {
			if trade.Timestamp.After(now) {
				continue
			}
			// One opportunity per market/outcome: the earliest in-window
			// trade is the start of the cascade.
			key := trade.MarketID + "|" + strings.ToLower(trade.Outcome)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if opp, ok := d.evaluate(ctx, idx, followerEdges, trade, now); ok {
				opportunities = append(opportunities, opp)
			}
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		if opportunities[i].Score != opportunities[j].Score {
			return opportunities[i].Score > opportunities[j].Score
		}
		if opportunities[i].Leader != opportunities[j].Leader {
			return opportunities[i].Leader < opportunities[j].Leader
		}
		return opportunities[i].MarketID < opportunities[j].MarketID
	})
	return opportunities
}

func (d *FrontRunDetector) evaluate(ctx context.Context, idx *TraderMarketIndex, followerEdges []models.RelationshipEdge, trade models.TradeRecord, now time.Time) (models.FrontRunOpportunity, bool) {
	var pending []string
	var pendingLags []float64

	for _, edge := range followerEdges {
		deadline := trade.Timestamp.
			Add(time.Duration(edge.AvgLagHours * float64(time.Hour))).
			Add(d.lagTolerance)
		if d.replicated(idx, edge.Follower, trade, deadline) {
			continue
		}
		pending = append(pending, edge.Follower)
		pendingLags = append(pendingLags, edge.AvgLagHours)
	}

	if len(pending) < d.minFollowers {
		return models.FrontRunOpportunity{}, false
	}
	sort.Strings(pending)

	avgLag := 0.0
	for _, l := range pendingLags {
		avgLag += l
	}
	avgLag /= float64(len(pendingLags))

	elapsed := now.Sub(trade.Timestamp).Hours()
	urgency := 0.0
	if avgLag > 0 {
		urgency = clamp01(elapsed / avgLag)
	}

	pendingShare := float64(len(pending)) / float64(len(followerEdges))
	notionalPart := math.Min(trade.Notional()/magnitudeNotionalScale, 1)
	magnitude := 0.5*pendingShare + 0.5*notionalPart

	return models.FrontRunOpportunity{
		Leader:           trade.TraderID,
		MarketID:         trade.MarketID,
		MarketTitle:      d.title(ctx, trade.MarketID),
		Outcome:          trade.Outcome,
		LeaderTradeTime:  trade.Timestamp,
		LeaderNotional:   trade.Notional(),
		PendingFollowers: pending,
		Urgency:          urgency,
		Magnitude:        magnitude,
		Score:            urgency * magnitude,
	}, true
}

// replicated reports whether the follower placed a matching trade on the same
// market and outcome strictly after the leader's trade and no later than the
// deadline.
func (d *FrontRunDetector) replicated(idx *TraderMarketIndex, follower string, lead models.TradeRecord, deadline time.Time) bool {
	for _, t := range idx.Trades(follower, lead.MarketID) {
		if !t.Timestamp.After(lead.Timestamp) {
			continue
		}
		if t.Timestamp.After(deadline) {
			return false
		}
		if strings.EqualFold(t.Outcome, lead.Outcome) {
			return true
		}
	}
	return false
}

func (d *FrontRunDetector) title(ctx context.Context, marketID string) string {
	if d.markets == nil {
		return marketID
	}
	title, err := d.markets.MarketTitle(ctx, marketID)
	if err != nil || title == "" {
		return marketID
	}
	return title
}
