package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"polymarket-relations/models"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite persistence for trades, markets, and analysis reports.
type Store struct {
	db *sql.DB
}

// New opens (and creates if needed) the SQLite database at dbPath.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("storage: db path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w", filepath.Dir(dbPath), err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	store := &Store{db: db}
	if err := store.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) runMigrations(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trader_address TEXT NOT NULL,
			market_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			side TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL,
			shares REAL NOT NULL,
			price REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_trader ON trades(trader_address, market_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS markets (
			market_id TEXT PRIMARY KEY,
			title TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS relationship_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			generated_at TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: migration failed: %w", err)
		}
	}
	return nil
}

// SaveTrades appends trade records to the snapshot.
func (s *Store) SaveTrades(ctx context.Context, trades []models.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (trader_address, market_id, outcome, side, timestamp, shares, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			t.TraderID, t.MarketID, t.Outcome, t.Side,
			t.Timestamp.UTC().Format(time.RFC3339Nano), t.Shares, t.Price,
		); err != nil {
			return fmt.Errorf("storage: insert trade: %w", err)
		}
	}

	return tx.Commit()
}

// LoadTradeSnapshot reads the full trade snapshot in a stable order.
func (s *Store) LoadTradeSnapshot(ctx context.Context) ([]models.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trader_address, market_id, outcome, side, timestamp, shares, price
		FROM trades
		ORDER BY timestamp, trader_address, market_id, id`)
	if err != nil {
		return nil, fmt.Errorf("storage: load snapshot: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		var t models.TradeRecord
		var ts string
		if err := rows.Scan(&t.TraderID, &t.MarketID, &t.Outcome, &t.Side, &ts, &t.Shares, &t.Price); err != nil {
			return nil, fmt.Errorf("storage: scan trade: %w", err)
		}
		// Unparseable timestamps stay zero; the index rejects and counts them.
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			t.Timestamp = parsed
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveMarket upserts market metadata.
func (s *Store) SaveMarket(ctx context.Context, marketID, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets (market_id, title) VALUES (?, ?)
		ON CONFLICT(market_id) DO UPDATE SET title = excluded.title`,
		marketID, title)
	if err != nil {
		return fmt.Errorf("storage: save market: %w", err)
	}
	return nil
}

// MarketTitle looks up the title for a market; empty string when unknown.
func (s *Store) MarketTitle(ctx context.Context, marketID string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM markets WHERE market_id = ?`, marketID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: market title: %w", err)
	}
	return title, nil
}

// SaveReport persists a finished analysis report as JSON.
func (s *Store) SaveReport(ctx context.Context, report *models.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("storage: marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationship_reports (generated_at, payload) VALUES (?, ?)`,
		report.Summary.GeneratedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("storage: save report: %w", err)
	}
	return nil
}

// LatestReport returns the most recently generated report, or nil when no
// analysis has run yet.
func (s *Store) LatestReport(ctx context.Context) (*models.Report, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM relationship_reports ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: latest report: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("storage: unmarshal report: %w", err)
	}
	return &report, nil
}
