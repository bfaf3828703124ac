package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"polymarket-relations/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	marketTitleCachePrefix = "relations:market:title:"
	latestReportCacheKey   = "relations:report:latest"
	marketTitleTTL         = 6 * time.Hour
	latestReportTTL        = 24 * time.Hour
)

// PostgresStore wraps PostgreSQL persistence with Redis caching. Market
// titles are served read-through: Redis first, then Postgres, then cached.
type PostgresStore struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

// NewPostgres creates a new PostgreSQL store with connection pooling and a
// Redis cache in front of it.
func NewPostgres() (*PostgresStore, error) {
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "relations")
	password := getEnv("POSTGRES_PASSWORD", "relations123")
	dbname := getEnv("POSTGRES_DB", "relations")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?pool_max_conns=20&pool_min_conns=2",
		user, password, host, port, dbname)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.RuntimeParams["statement_timeout"] = "30000"

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379")),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           0,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	store := &PostgresStore{pool: pool, redis: rdb}
	if err := store.ensureSchema(context.Background()); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Close releases the pool and the Redis client.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			trader_address TEXT NOT NULL,
			market_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			side TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL,
			shares DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_trader ON trades(trader_address, market_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS markets (
			market_id TEXT PRIMARY KEY,
			title TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS relationship_reports (
			id BIGSERIAL PRIMARY KEY,
			generated_at TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: schema: %w", err)
		}
	}
	return nil
}

// SaveTrades bulk-inserts trade records.
func (s *PostgresStore) SaveTrades(ctx context.Context, trades []models.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, []interface{}{
			t.TraderID, t.MarketID, t.Outcome, t.Side, t.Timestamp.UTC(), t.Shares, t.Price,
		})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"trades"},
		[]string{"trader_address", "market_id", "outcome", "side", "timestamp", "shares", "price"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("postgres: copy trades: %w", err)
	}
	return nil
}

// LoadTradeSnapshot reads the full trade snapshot in a stable order.
func (s *PostgresStore) LoadTradeSnapshot(ctx context.Context) ([]models.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT trader_address, market_id, outcome, side, timestamp, shares, price
		FROM trades
		ORDER BY timestamp, trader_address, market_id, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load snapshot: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		var t models.TradeRecord
		if err := rows.Scan(&t.TraderID, &t.MarketID, &t.Outcome, &t.Side, &t.Timestamp, &t.Shares, &t.Price); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveMarket upserts market metadata and refreshes the cache entry.
func (s *PostgresStore) SaveMarket(ctx context.Context, marketID, title string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO markets (market_id, title) VALUES ($1, $2)
		ON CONFLICT (market_id) DO UPDATE SET title = EXCLUDED.title`,
		marketID, title)
	if err != nil {
		return fmt.Errorf("postgres: save market: %w", err)
	}
	s.redis.Set(ctx, marketTitleCachePrefix+marketID, title, marketTitleTTL)
	return nil
}

// MarketTitle resolves a market title through the Redis cache.
func (s *PostgresStore) MarketTitle(ctx context.Context, marketID string) (string, error) {
	cacheKey := marketTitleCachePrefix + marketID
	if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
		return cached, nil
	}

	var title string
	err := s.pool.QueryRow(ctx, `SELECT title FROM markets WHERE market_id = $1`, marketID).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: market title: %w", err)
	}

	s.redis.Set(ctx, cacheKey, title, marketTitleTTL)
	return title, nil
}

// SaveReport persists the report and caches it as the latest.
func (s *PostgresStore) SaveReport(ctx context.Context, report *models.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("postgres: marshal report: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO relationship_reports (generated_at, payload) VALUES ($1, $2)`,
		report.Summary.GeneratedAt.UTC(), payload)
	if err != nil {
		return fmt.Errorf("postgres: save report: %w", err)
	}
	s.redis.Set(ctx, latestReportCacheKey, payload, latestReportTTL)
	return nil
}

// LatestReport serves the most recent report, preferring the Redis copy.
func (s *PostgresStore) LatestReport(ctx context.Context) (*models.Report, error) {
	if cached, err := s.redis.Get(ctx, latestReportCacheKey).Bytes(); err == nil {
		var report models.Report
		if err := json.Unmarshal(cached, &report); err == nil {
			return &report, nil
		}
	}

	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM relationship_reports ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: latest report: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal report: %w", err)
	}
	s.redis.Set(ctx, latestReportCacheKey, payload, latestReportTTL)
	return &report, nil
}
