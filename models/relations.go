package models

import "time"

// TradeRecord is a single trade from the snapshot. Immutable once loaded.
type TradeRecord struct {
	TraderID  string    `json:"trader_id"`
	MarketID  string    `json:"market_id"`
	Outcome   string    `json:"outcome"`
	Side      string    `json:"side"` // BUY or SELL
	Timestamp time.Time `json:"timestamp"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
}

// Notional returns the trade's USDC value (shares * price).
func (t TradeRecord) Notional() float64 {
	return t.Shares * t.Price
}

// TraderRole classifies a trader's position in the copy-trading network.
type TraderRole string

const (
	RoleLeader      TraderRole = "LEADER"
	RoleFollower    TraderRole = "FOLLOWER"
	RoleMixed       TraderRole = "MIXED"
	RoleIndependent TraderRole = "INDEPENDENT"
)

// PairCorrelation is the symmetric similarity between two traders.
// TraderA sorts before TraderB so a pair has exactly one representation.
type PairCorrelation struct {
	TraderA          string  `json:"trader_a"`
	TraderB          string  `json:"trader_b"`
	MarketOverlap    float64 `json:"market_overlap"`
	OutcomeAgreement float64 `json:"outcome_agreement"`
	TimingSimilarity float64 `json:"timing_similarity"`
	Score            float64 `json:"correlation_score"`
	SharedMarkets    int     `json:"shared_markets"`
	Band             string  `json:"band"`
}

// CorrelationBand maps a correlation score to its interpretation band.
func CorrelationBand(score float64) string {
	switch {
	case score >= 0.8:
		return "very high"
	case score >= 0.6:
		return "high"
	case score >= 0.4:
		return "moderate"
	case score >= 0.2:
		return "low"
	default:
		return "independent"
	}
}

// CopyScoreComponents are the four sub-signals behind a copy score.
type CopyScoreComponents struct {
	TimeConsistency   float64 `json:"time_consistency"`
	OutcomeMatching   float64 `json:"outcome_matching"`
	OrderPreservation float64 `json:"order_preservation"`
	VolumeCorrelation float64 `json:"volume_correlation"`
}

// RelationshipEdge is a directed leader -> follower copy relationship.
// A pair can carry one edge in each direction with different scores.
type RelationshipEdge struct {
	Leader      string              `json:"leader"`
	Follower    string              `json:"follower"`
	CopyScore   float64             `json:"copy_score"`
	Components  CopyScoreComponents `json:"components"`
	SampleCount int                 `json:"sample_count"`
	AvgLagHours float64             `json:"avg_lag_hours"`
	FirstSeen   time.Time           `json:"first_seen"`
	LastSeen    time.Time           `json:"last_seen"`
	Strength    string              `json:"strength"`
}

// EdgeStrength labels an edge by copy score, mirroring the report tiers.
func EdgeStrength(score float64) string {
	switch {
	case score >= 0.9:
		return "PERFECT"
	case score >= 0.7:
		return "STRONG"
	case score >= 0.5:
		return "MODERATE"
	default:
		return "WEAK"
	}
}

// FrontRunOpportunity flags a leader trade that qualifying followers have
// not replicated yet.
type FrontRunOpportunity struct {
	Leader           string    `json:"leader"`
	MarketID         string    `json:"market_id"`
	MarketTitle      string    `json:"market_title"`
	Outcome          string    `json:"outcome"`
	LeaderTradeTime  time.Time `json:"leader_trade_time"`
	LeaderNotional   float64   `json:"leader_notional"`
	PendingFollowers []string  `json:"pending_followers"`
	Urgency          float64   `json:"urgency"`
	Magnitude        float64   `json:"magnitude"`
	Score            float64   `json:"opportunity_score"`
}

// NetworkStats summarizes the relationship graph.
type NetworkStats struct {
	Traders               int     `json:"traders"`
	Leaders               int     `json:"leaders"`
	Followers             int     `json:"followers"`
	Mixed                 int     `json:"mixed"`
	Independent           int     `json:"independent"`
	Relationships         int     `json:"relationships"`
	AvgFollowersPerLeader float64 `json:"avg_followers_per_leader"`
}

// RunSummary captures one analysis run, including degraded-output counters.
type RunSummary struct {
	GeneratedAt    time.Time     `json:"generated_at"`
	Traders        int           `json:"traders"`
	TradesLoaded   int           `json:"trades_loaded"`
	SkippedRecords int           `json:"skipped_records"`
	PairsScreened  int           `json:"pairs_screened"`
	PairsPromoted  int           `json:"pairs_promoted"`
	EdgesScored    int           `json:"edges_scored"`
	EdgesQualified int           `json:"edges_qualified"`
	Opportunities  int           `json:"opportunities"`
	Duration       time.Duration `json:"duration"`
}

// Report is the full output of one analysis run, handed to the report sink.
type Report struct {
	Edges         []RelationshipEdge    `json:"edges"`
	Roles         map[string]TraderRole `json:"roles"`
	Opportunities []FrontRunOpportunity `json:"opportunities"`
	Correlations  []PairCorrelation     `json:"correlations"`
	Network       NetworkStats          `json:"network"`
	Summary       RunSummary            `json:"summary"`
}
