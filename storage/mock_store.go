package storage

import (
	"context"
	"sync"

	"polymarket-relations/models"
)

// MockStore is an in-memory DataStore for testing.
type MockStore struct {
	mu sync.Mutex

	Trades  []models.TradeRecord
	Markets map[string]string
	Reports []*models.Report

	// Call tracking for assertions
	Calls map[string]int

	// Error injection for testing error paths
	ErrorOnNext map[string]error
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		Markets:     make(map[string]string),
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

func (m *MockStore) track(method string) error {
	m.Calls[method]++
	if err, ok := m.ErrorOnNext[method]; ok {
		delete(m.ErrorOnNext, method)
		return err
	}
	return nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error { return nil }

// SaveTrades appends trades to the in-memory snapshot.
func (m *MockStore) SaveTrades(ctx context.Context, trades []models.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("SaveTrades"); err != nil {
		return err
	}
	m.Trades = append(m.Trades, trades...)
	return nil
}

// LoadTradeSnapshot returns a copy of the stored trades.
func (m *MockStore) LoadTradeSnapshot(ctx context.Context) ([]models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("LoadTradeSnapshot"); err != nil {
		return nil, err
	}
	out := make([]models.TradeRecord, len(m.Trades))
	copy(out, m.Trades)
	return out, nil
}

// SaveMarket stores market metadata.
func (m *MockStore) SaveMarket(ctx context.Context, marketID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("SaveMarket"); err != nil {
		return err
	}
	m.Markets[marketID] = title
	return nil
}

// MarketTitle returns the stored title, empty when unknown.
func (m *MockStore) MarketTitle(ctx context.Context, marketID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("MarketTitle"); err != nil {
		return "", err
	}
	return m.Markets[marketID], nil
}

// SaveReport appends the report.
func (m *MockStore) SaveReport(ctx context.Context, report *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("SaveReport"); err != nil {
		return err
	}
	m.Reports = append(m.Reports, report)
	return nil
}

// LatestReport returns the most recent saved report, or nil.
func (m *MockStore) LatestReport(ctx context.Context) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.track("LatestReport"); err != nil {
		return nil, err
	}
	if len(m.Reports) == 0 {
		return nil, nil
	}
	return m.Reports[len(m.Reports)-1], nil
}
