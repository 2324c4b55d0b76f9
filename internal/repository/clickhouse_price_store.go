package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	domrepo "LunarPull/internal/domain/repository"
	pkgch "LunarPull/pkg/clickhouse"
	applogger "LunarPull/pkg/logger"
	"LunarPull/pkg/util"
)

// CHPriceStore implements PriceStore backed by a ClickHouse ReplacingMergeTree.
// Re-inserting a (symbol, d) row replaces it at merge time; reads use FINAL.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHPriceStore {
	if l == nil {
		l = applogger.NewNop()
	}
	table := "daily_prices"
	if database != "" {
		table = database + "." + table
	}
	return &CHPriceStore{db: ch.DB(), table: table, l: l}
}

func (s *CHPriceStore) schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol      LowCardinality(String),
            d           Date,
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            adj_close   Float64,
            volume      Float64,
            ingested_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (symbol, d)
    `, s.table)}
}

func (s *CHPriceStore) Init(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperr.Persistence("clickhouse init", err)
		}
	}
	return nil
}

func (s *CHPriceStore) StorePrices(ctx context.Context, prices []models.PricePoint) error {
	if len(prices) == 0 {
		return nil
	}
	start := time.Now()
	const chunkSize = 2000
	for lo := 0; lo < len(prices); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(prices) {
			hi = len(prices)
		}
		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*8)
		for _, p := range prices[lo:hi] {
			if p.Symbol == "" || p.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, p.Symbol, util.DateOf(p.Date), p.Open, p.High, p.Low, p.Close, p.AdjClose, p.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, d, open, high, low, close, adj_close, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store_prices error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return apperr.Persistence("clickhouse store prices", err)
		}
	}
	s.l.Info("clickhouse store_prices ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(prices)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// FetchPrices serves the warehouse as a price source.
func (s *CHPriceStore) FetchPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT symbol, d, open, high, low, close, adj_close, volume
        FROM %s FINAL
        WHERE symbol = ? AND d >= ? AND d <= ?
        ORDER BY d ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, util.DateOf(from), util.DateOf(to))
	if err != nil {
		s.l.Error("clickhouse fetch_prices query error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, apperr.Transport("clickhouse fetch prices", err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 1024)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.AdjClose, &p.Volume); err != nil {
			return nil, apperr.Schema("clickhouse scan price", err)
		}
		p.Date = util.DateOf(p.Date)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transport("clickhouse fetch prices", err)
	}
	s.l.Debug("clickhouse fetch_prices ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// LatestDate returns the newest stored day for symbol; ok is false when none exist.
func (s *CHPriceStore) LatestDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	q := fmt.Sprintf("SELECT max(d), count() FROM %s FINAL WHERE symbol = ?", s.table)
	var (
		latest time.Time
		n      uint64
	)
	if err := s.db.QueryRowContext(ctx, q, symbol).Scan(&latest, &n); err != nil {
		return time.Time{}, false, apperr.Transport("clickhouse latest date", err)
	}
	if n == 0 {
		return time.Time{}, false, nil
	}
	return util.DateOf(latest), true, nil
}

func (s *CHPriceStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}

var _ domrepo.PriceStore = (*CHPriceStore)(nil)
