package storage

import (
	"context"

	"polymarket-relations/models"
)

// DataStore is the boundary between the analysis core and persistence. The
// core only ever reads a full snapshot and hands back finished reports;
// ingestion writes trades through the same interface.
type DataStore interface {
	Close() error

	// Trade snapshot operations
	SaveTrades(ctx context.Context, trades []models.TradeRecord) error
	LoadTradeSnapshot(ctx context.Context) ([]models.TradeRecord, error)

	// Market metadata
	SaveMarket(ctx context.Context, marketID, title string) error
	MarketTitle(ctx context.Context, marketID string) (string, error)

	// Report sink
	SaveReport(ctx context.Context, report *models.Report) error
	LatestReport(ctx context.Context) (*models.Report, error)
}

// Ensure all implementations satisfy the interface
var _ DataStore = (*Store)(nil)
var _ DataStore = (*PostgresStore)(nil)
var _ DataStore = (*MockStore)(nil)
