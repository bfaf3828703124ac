package relations

import (
	"sort"
	"time"

	"polymarket-relations/models"
)

// TraderMarketIndex holds every valid trade grouped by trader and market,
// timestamp-sorted within each market. It is built once per run from the
// immutable snapshot and is safe for unlimited concurrent readers.
type TraderMarketIndex struct {
	byTrader map[string]map[string][]models.TradeRecord
	traders  []string
	skipped  []IntegrityError
	loaded   int
}

// SharedMarket pairs both traders' trades on one market, ordered by time.
type SharedMarket struct {
	MarketID string
	Leader   []models.TradeRecord
	Follower []models.TradeRecord
}

// BuildIndex validates and indexes the trade snapshot. Records with a missing
// timestamp or non-positive shares/price are skipped and reported via
// Skipped(); they never reach downstream scoring.
func BuildIndex(records []models.TradeRecord) *TraderMarketIndex {
	idx := &TraderMarketIndex{
		byTrader: make(map[string]map[string][]models.TradeRecord),
	}

	for _, rec := range records {
		if reason := validate(rec); reason != "" {
			idx.skipped = append(idx.skipped, IntegrityError{
				TraderID: rec.TraderID,
				MarketID: rec.MarketID,
				Reason:   reason,
			})
			continue
		}

		markets, ok := idx.byTrader[rec.TraderID]
		if !ok {
			markets = make(map[string][]models.TradeRecord)
			idx.byTrader[rec.TraderID] = markets
		}
		markets[rec.MarketID] = append(markets[rec.MarketID], rec)
		idx.loaded++
	}

	// Sort trades within each market and fix the trader order so every run
	// over the same snapshot walks pairs identically.
	for trader, markets := range idx.byTrader {
		for _, trades := range markets {
			sortTrades(trades)
		}
		idx.traders = append(idx.traders, trader)
	}
	sort.Strings(idx.traders)

	return idx
}

func validate(rec models.TradeRecord) string {
	switch {
	case rec.TraderID == "":
		return "missing trader id"
	case rec.MarketID == "":
		return "missing market id"
	case rec.Timestamp.IsZero():
		return "missing timestamp"
	case rec.Shares <= 0:
		return "non-positive shares"
	case rec.Price <= 0:
		return "non-positive price"
	}
	return ""
}

func sortTrades(trades []models.TradeRecord) {
	sort.SliceStable(trades, func(i, j int) bool {
		if !trades[i].Timestamp.Equal(trades[j].Timestamp) {
			return trades[i].Timestamp.Before(trades[j].Timestamp)
		}
		if trades[i].Outcome != trades[j].Outcome {
			return trades[i].Outcome < trades[j].Outcome
		}
		return trades[i].Shares < trades[j].Shares
	})
}

// Traders returns all indexed trader ids in ascending order.
func (idx *TraderMarketIndex) Traders() []string {
	return idx.traders
}

// Markets returns the set of markets a trader has touched.
func (idx *TraderMarketIndex) Markets(trader string) map[string][]models.TradeRecord {
	return idx.byTrader[trader]
}

// Trades returns a trader's trades on one market, timestamp-sorted.
func (idx *TraderMarketIndex) Trades(trader, market string) []models.TradeRecord {
	return idx.byTrader[trader][market]
}

// SharedMarkets builds the shared-market set for a directed (leader,
// follower) pair. A pair with no shared markets yields an empty slice and is
// excluded from all downstream scoring.
func (idx *TraderMarketIndex) SharedMarkets(leader, follower string) []SharedMarket {
	leaderMarkets := idx.byTrader[leader]
	followerMarkets := idx.byTrader[follower]
	if len(leaderMarkets) == 0 || len(followerMarkets) == 0 {
		return nil
	}

	// Iterate the smaller side but collect ids first for deterministic order.
	ids := make([]string, 0, len(leaderMarkets))
	for id := range leaderMarkets {
		if _, ok := followerMarkets[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	shared := make([]SharedMarket, 0, len(ids))
	for _, id := range ids {
		shared = append(shared, SharedMarket{
			MarketID: id,
			Leader:   leaderMarkets[id],
			Follower: followerMarkets[id],
		})
	}
	return shared
}

// TradesSince returns a trader's trades across all markets at or after the
// cutoff, ordered by timestamp then market id.
func (idx *TraderMarketIndex) TradesSince(trader string, cutoff time.Time) []models.TradeRecord {
	var recent []models.TradeRecord
	for _, trades := range idx.byTrader[trader] {
		for _, t := range trades {
			if !t.Timestamp.Before(cutoff) {
				recent = append(recent, t)
			}
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		if !recent[i].Timestamp.Equal(recent[j].Timestamp) {
			return recent[i].Timestamp.Before(recent[j].Timestamp)
		}
		return recent[i].MarketID < recent[j].MarketID
	})
	return recent
}

// Skipped lists the records rejected during the build.
func (idx *TraderMarketIndex) Skipped() []IntegrityError {
	return idx.skipped
}

// Loaded reports how many records passed validation.
func (idx *TraderMarketIndex) Loaded() int {
	return idx.loaded
}
