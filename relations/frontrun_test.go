package relations

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"polymarket-relations/models"
)

type stubMarketLookup struct {
	titles map[string]string
	err    error
}

func (s *stubMarketLookup) MarketTitle(_ context.Context, marketID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.titles[marketID], nil
}

func lagEdge(leader, follower string, score, avgLagHours float64) models.RelationshipEdge {
	return models.RelationshipEdge{
		Leader:      leader,
		Follower:    follower,
		CopyScore:   score,
		AvgLagHours: avgLagHours,
	}
}

// frontRunFixture: a leader trade 15 minutes ago with three qualifying
// followers on a 30-minute average lag. One follower has replicated, two
// have not.
func frontRunFixture(now time.Time) (*TraderMarketIndex, []models.RelationshipEdge, map[string]models.TraderRole) {
	leadTime := now.Add(-15 * time.Minute)

	records := []models.TradeRecord{
		{TraderID: "0xlead", MarketID: "m9", Outcome: "Yes", Side: "BUY", Timestamp: leadTime, Shares: 1000, Price: 0.5},
		{TraderID: "0xfa", MarketID: "m9", Outcome: "Yes", Side: "BUY", Timestamp: leadTime.Add(10 * time.Minute), Shares: 900, Price: 0.5},
	}
	idx := BuildIndex(records)

	edges := []models.RelationshipEdge{
		lagEdge("0xlead", "0xfa", 0.8, 0.5),
		lagEdge("0xlead", "0xfb", 0.7, 0.5),
		lagEdge("0xlead", "0xfc", 0.6, 0.5),
	}
	roles := map[string]models.TraderRole{
		"0xlead": models.RoleLeader,
		"0xfa":   models.RoleFollower,
		"0xfb":   models.RoleFollower,
		"0xfc":   models.RoleFollower,
	}
	return idx, edges, roles
}

func TestDetectMinFollowerBoundary(t *testing.T) {
	now := testBase
	idx, edges, roles := frontRunFixture(now)

	// Two pending followers: below a minimum of three, at a minimum of two.
	detector := NewFrontRunDetector(12*time.Hour, time.Hour, 3, nil)
	if opps := detector.Detect(context.Background(), idx, edges, roles, now); len(opps) != 0 {
		t.Fatalf("got %d opportunities with min 3, want 0", len(opps))
	}

	detector = NewFrontRunDetector(12*time.Hour, time.Hour, 2, nil)
	opps := detector.Detect(context.Background(), idx, edges, roles, now)
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities with min 2, want 1", len(opps))
	}

	opp := opps[0]
	if opp.Leader != "0xlead" || opp.MarketID != "m9" || opp.Outcome != "Yes" {
		t.Errorf("opportunity = %s/%s/%s, want 0xlead/m9/Yes", opp.Leader, opp.MarketID, opp.Outcome)
	}
	if want := []string{"0xfb", "0xfc"}; len(opp.PendingFollowers) != 2 ||
		opp.PendingFollowers[0] != want[0] || opp.PendingFollowers[1] != want[1] {
		t.Errorf("pending followers = %v, want %v", opp.PendingFollowers, want)
	}
	// 15 minutes elapsed over a 30-minute average lag.
	if math.Abs(opp.Urgency-0.5) > 1e-9 {
		t.Errorf("urgency = %v, want 0.5", opp.Urgency)
	}
	// 2 of 3 followers pending, $500 notional against the $1000 scale.
	wantMagnitude := 0.5*(2.0/3.0) + 0.5*0.5
	if math.Abs(opp.Magnitude-wantMagnitude) > 1e-9 {
		t.Errorf("magnitude = %v, want %v", opp.Magnitude, wantMagnitude)
	}
	if math.Abs(opp.Score-opp.Urgency*opp.Magnitude) > 1e-9 {
		t.Errorf("score = %v, want urgency*magnitude = %v", opp.Score, opp.Urgency*opp.Magnitude)
	}
}

func TestDetectSkipsNonLeaders(t *testing.T) {
	now := testBase
	idx, edges, roles := frontRunFixture(now)
	roles["0xlead"] = models.RoleMixed

	detector := NewFrontRunDetector(12*time.Hour, time.Hour, 2, nil)
	if opps := detector.Detect(context.Background(), idx, edges, roles, now); len(opps) != 0 {
		t.Errorf("got %d opportunities for a MIXED trader, want 0", len(opps))
	}
}

func TestDetectIgnoresTradesOutsideLookback(t *testing.T) {
	now := testBase
	idx, edges, roles := frontRunFixture(now)

	// Lookback shorter than the trade's age.
	detector := NewFrontRunDetector(10*time.Minute, time.Hour, 2, nil)
	if opps := detector.Detect(context.Background(), idx, edges, roles, now); len(opps) != 0 {
		t.Errorf("got %d opportunities outside lookback, want 0", len(opps))
	}
}

func TestDetectDeduplicatesMarketOutcome(t *testing.T) {
	now := testBase
	idx, edges, roles := frontRunFixture(now)

	// A second leader trade on the same market and outcome must not produce a
	// second opportunity.
	extra := models.TradeRecord{
		TraderID: "0xlead", MarketID: "m9", Outcome: "YES", Side: "BUY",
		Timestamp: now.Add(-5 * time.Minute), Shares: 500, Price: 0.5,
	}
	idx = BuildIndex(append([]models.TradeRecord{extra},
		models.TradeRecord{TraderID: "0xlead", MarketID: "m9", Outcome: "Yes", Side: "BUY", Timestamp: now.Add(-15 * time.Minute), Shares: 1000, Price: 0.5},
		models.TradeRecord{TraderID: "0xfa", MarketID: "m9", Outcome: "Yes", Side: "BUY", Timestamp: now.Add(-5 * time.Minute), Shares: 900, Price: 0.5},
	))

	detector := NewFrontRunDetector(12*time.Hour, time.Hour, 2, nil)
	opps := detector.Detect(context.Background(), idx, edges, roles, now)
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1 (one per market/outcome)", len(opps))
	}
	// The earliest in-window trade starts the cascade.
	if got := opps[0].LeaderTradeTime; !got.Equal(now.Add(-15 * time.Minute)) {
		t.Errorf("leader trade time = %v, want the earliest in-window trade", got)
	}
}

func TestDetectMarketTitleFallback(t *testing.T) {
	now := testBase
	idx, edges, roles := frontRunFixture(now)

	tests := []struct {
		name   string
		lookup MarketLookup
		want   string
	}{
		{"nil lookup", nil, "m9"},
		{"lookup error", &stubMarketLookup{err: errors.New("down")}, "m9"},
		{"empty title", &stubMarketLookup{titles: map[string]string{}}, "m9"},
		{"resolved title", &stubMarketLookup{titles: map[string]string{"m9": "Will it rain?"}}, "Will it rain?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := NewFrontRunDetector(12*time.Hour, time.Hour, 2, tt.lookup)
			opps := detector.Detect(context.Background(), idx, edges, roles, now)
			if len(opps) != 1 {
				t.Fatalf("got %d opportunities, want 1", len(opps))
			}
			if opps[0].MarketTitle != tt.want {
				t.Errorf("market title = %q, want %q", opps[0].MarketTitle, tt.want)
			}
		})
	}
}
