package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"polymarket-relations/config"
	"polymarket-relations/models"
	"polymarket-relations/relations"
	"polymarket-relations/storage"
)

// Service coordinates snapshot loading, the relationship engine, and the
// report sink. It keeps the latest report in memory so HTTP reads never wait
// on a recompute.
type Service struct {
	store  storage.DataStore
	engine *relations.Engine
	cfg    *config.Config

	mu         sync.RWMutex
	lastReport *models.Report
}

// NewService wires the engine against the store. The store doubles as the
// injected market-title lookup for front-run output.
func NewService(store storage.DataStore, cfg *config.Config) (*Service, error) {
	engine, err := relations.NewEngine(cfg.Engine(), marketLookup{store})
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return &Service{
		store:  store,
		engine: engine,
		cfg:    cfg,
	}, nil
}

// marketLookup adapts the DataStore to the engine's read-through interface.
type marketLookup struct {
	store storage.DataStore
}

func (m marketLookup) MarketTitle(ctx context.Context, marketID string) (string, error) {
	return m.store.MarketTitle(ctx, marketID)
}

// RunAnalysis executes one full analysis pass: load snapshot, run the engine,
// persist the report. Snapshot failures propagate unmodified; the service
// performs no retries.
func (s *Service) RunAnalysis(ctx context.Context) (*models.Report, error) {
	trades, err := s.store.LoadTradeSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: load snapshot: %w", err)
	}
	log.Printf("[service] loaded %d trades for analysis", len(trades))

	report, err := s.engine.Run(ctx, trades, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveReport(ctx, report); err != nil {
		// The run itself succeeded; keep serving it from memory.
		log.Printf("[service] failed to persist report: %v", err)
	}

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	return report, nil
}

// LatestReport serves the in-memory report, falling back to the store after
// a restart. Returns nil when no analysis has completed yet.
func (s *Service) LatestReport(ctx context.Context) (*models.Report, error) {
	s.mu.RLock()
	cached := s.lastReport
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	report, err := s.store.LatestReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: latest report: %w", err)
	}
	if report != nil {
		s.mu.Lock()
		s.lastReport = report
		s.mu.Unlock()
	}
	return report, nil
}
