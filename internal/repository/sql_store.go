package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	domrepo "LunarPull/internal/domain/repository"
	applogger "LunarPull/pkg/logger"
	"LunarPull/pkg/sqldb"
	"LunarPull/pkg/util"
)

// Statements bind at most this many parameters; SQL Server caps a request at 2100.
const maxParams = 2000

// SQLStore implements AnalysisStore on SQL Server or PostgreSQL.
// Identifiers are ANSI-quoted so both dialects share the same statements.
type SQLStore struct {
	db        *sqlx.DB
	driver    string
	batchSize int
	l         *applogger.Logger
}

func NewSQLStore(c *sqldb.Client, batchSize int, l *applogger.Logger) *SQLStore {
	if batchSize <= 0 {
		batchSize = 500
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &SQLStore{db: c.DB(), driver: c.Driver(), batchSize: batchSize, l: l}
}

func (s *SQLStore) ddl() []string {
	tables := []struct{ name, cols string }{
		{"LunarPhases", `"Date" DATE NOT NULL PRIMARY KEY, "Phase" VARCHAR(32) NOT NULL`},
		{"StockPrices", `"Symbol" VARCHAR(10) NOT NULL, "Date" DATE NOT NULL, "Open" FLOAT, "High" FLOAT, "Low" FLOAT,
			"Close" FLOAT NOT NULL, "AdjClose" FLOAT, "Volume" FLOAT, PRIMARY KEY ("Symbol", "Date")`},
		{"LunarPhaseReturns", `"AnalysisDate" DATE NOT NULL, "ETF" VARCHAR(10) NOT NULL, "LunarPhase" VARCHAR(32) NOT NULL,
			"AverageReturn" FLOAT, "StdDevReturn" FLOAT, "Count" INT, PRIMARY KEY ("AnalysisDate", "ETF", "LunarPhase")`},
		{"StockLunarAnalysisResults", `"AnalysisDate" DATE NOT NULL, "ETF" VARCHAR(10) NOT NULL PRIMARY KEY,
			"Correlation_Close" FLOAT NULL, "Correlation_Volume" FLOAT NULL, "Correlation_Return" FLOAT NULL,
			"ANOVA_F_Statistic" FLOAT NULL, "ANOVA_P_Value" FLOAT NULL, "Conclusion" VARCHAR(100)`},
	}
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if s.driver == sqldb.DriverSQLServer {
			out = append(out, fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE "%s" (%s)`, t.name, t.name, t.cols))
		} else {
			out = append(out, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (%s)`, t.name, t.cols))
		}
	}
	return out
}

func (s *SQLStore) Init(ctx context.Context) error {
	for _, stmt := range s.ddl() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperr.Persistence("sql init", err)
		}
	}
	return nil
}

// rowsPerStatement keeps each multi-row insert under the parameter cap.
func (s *SQLStore) rowsPerStatement(cols int) int {
	n := maxParams / cols
	if s.batchSize < n {
		n = s.batchSize
	}
	return n
}

func (s *SQLStore) insertBatches(ctx context.Context, tx *sqlx.Tx, table string, cols []string, rows [][]any) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	step := s.rowsPerStatement(len(cols))
	for start := 0; start < len(rows); start += step {
		end := start + step
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(cols))
		for _, r := range rows[start:end] {
			values = append(values, tuple)
			args = append(args, r...)
		}
		q := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES %s`, table, strings.Join(quoted, ", "), strings.Join(values, ", "))
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return fmt.Errorf("insert %s rows %d-%d: %w", table, start, end, err)
		}
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Persistence(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return apperr.Persistence(op, err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Persistence(op, err)
	}
	return nil
}

// SavePhaseCalendar replaces the stored calendar over the span of records.
func (s *SQLStore) SavePhaseCalendar(ctx context.Context, records []models.LunarPhaseRecord) error {
	if len(records) == 0 {
		return nil
	}
	from, to := records[0].Date, records[0].Date
	rows := make([][]any, len(records))
	for i, r := range records {
		if r.Date.Before(from) {
			from = r.Date
		}
		if r.Date.After(to) {
			to = r.Date
		}
		rows[i] = []any{util.DateOf(r.Date), r.Phase.String()}
	}

	start := time.Now()
	err := s.inTx(ctx, "save phase calendar", func(tx *sqlx.Tx) error {
		del := tx.Rebind(`DELETE FROM "LunarPhases" WHERE "Date" >= ? AND "Date" <= ?`)
		if _, err := tx.ExecContext(ctx, del, util.DateOf(from), util.DateOf(to)); err != nil {
			return fmt.Errorf("clear range: %w", err)
		}
		return s.insertBatches(ctx, tx, "LunarPhases", []string{"Date", "Phase"}, rows)
	})
	if err != nil {
		s.l.Error("sql save calendar failed", applogger.Int("rows", len(rows)), applogger.Error(err))
		return err
	}
	s.l.Info("sql calendar saved",
		applogger.Int("rows", len(rows)),
		applogger.Date("from", from),
		applogger.Date("to", to),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// SavePrices replaces each symbol's stored rows over the span it covers.
func (s *SQLStore) SavePrices(ctx context.Context, prices []models.PricePoint) error {
	if len(prices) == 0 {
		return nil
	}
	type span struct{ from, to time.Time }
	spans := map[string]*span{}
	order := []string{}
	rows := make([][]any, len(prices))
	for i, p := range prices {
		d := util.DateOf(p.Date)
		if sp, ok := spans[p.Symbol]; ok {
			if d.Before(sp.from) {
				sp.from = d
			}
			if d.After(sp.to) {
				sp.to = d
			}
		} else {
			spans[p.Symbol] = &span{d, d}
			order = append(order, p.Symbol)
		}
		rows[i] = []any{p.Symbol, d, p.Open, p.High, p.Low, p.Close, p.AdjClose, p.Volume}
	}

	return s.inTx(ctx, "save prices", func(tx *sqlx.Tx) error {
		del := tx.Rebind(`DELETE FROM "StockPrices" WHERE "Symbol" = ? AND "Date" >= ? AND "Date" <= ?`)
		for _, sym := range order {
			sp := spans[sym]
			if _, err := tx.ExecContext(ctx, del, sym, sp.from, sp.to); err != nil {
				return fmt.Errorf("clear %s: %w", sym, err)
			}
		}
		if err := s.insertBatches(ctx, tx, "StockPrices",
			[]string{"Symbol", "Date", "Open", "High", "Low", "Close", "AdjClose", "Volume"}, rows); err != nil {
			return err
		}
		s.l.Debug("sql prices saved", applogger.Int("rows", len(rows)), applogger.Int("symbols", len(order)))
		return nil
	})
}

// SavePhaseReturns upserts rows keyed by (AnalysisDate, ETF, LunarPhase).
// Each row is its own transaction so one failing row does not drop the others.
func (s *SQLStore) SavePhaseReturns(ctx context.Context, rows []models.PhaseReturnRow) error {
	var failed []string
	for _, r := range rows {
		err := s.inTx(ctx, "save phase return", func(tx *sqlx.Tx) error {
			upd := tx.Rebind(`UPDATE "LunarPhaseReturns" SET "AverageReturn" = ?, "StdDevReturn" = ?, "Count" = ?
				WHERE "AnalysisDate" = ? AND "ETF" = ? AND "LunarPhase" = ?`)
			res, err := tx.ExecContext(ctx, upd, r.AverageReturn, r.StdDevReturn, r.Count, util.DateOf(r.AnalysisDate), r.Symbol, r.LunarPhase)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				return nil
			}
			ins := tx.Rebind(`INSERT INTO "LunarPhaseReturns" ("AnalysisDate", "ETF", "LunarPhase", "AverageReturn", "StdDevReturn", "Count")
				VALUES (?, ?, ?, ?, ?, ?)`)
			_, err = tx.ExecContext(ctx, ins, util.DateOf(r.AnalysisDate), r.Symbol, r.LunarPhase, r.AverageReturn, r.StdDevReturn, r.Count)
			return err
		})
		if err != nil {
			s.l.Error("sql phase return upsert failed",
				applogger.String("symbol", r.Symbol),
				applogger.String("phase", r.LunarPhase),
				applogger.Error(err),
			)
			failed = append(failed, r.Symbol+"/"+r.LunarPhase)
		}
	}
	if len(failed) > 0 {
		return apperr.Persistence("save phase returns", fmt.Errorf("%d row(s) failed: %s", len(failed), strings.Join(failed, ", ")))
	}
	return nil
}

// UpsertSummary updates the ETF's summary row, inserting it when absent.
func (s *SQLStore) UpsertSummary(ctx context.Context, sum models.InstrumentSummary) error {
	return s.inTx(ctx, "upsert summary", func(tx *sqlx.Tx) error {
		upd := tx.Rebind(`UPDATE "StockLunarAnalysisResults" SET "AnalysisDate" = ?, "Correlation_Close" = ?, "Correlation_Volume" = ?,
			"Correlation_Return" = ?, "ANOVA_F_Statistic" = ?, "ANOVA_P_Value" = ?, "Conclusion" = ? WHERE "ETF" = ?`)
		res, err := tx.ExecContext(ctx, upd, util.DateOf(sum.AnalysisDate), sum.CorrelationClose, sum.CorrelationVolume,
			sum.CorrelationReturn, finiteOrNil(sum.FStatistic), sum.PValue, sum.Conclusion, sum.Symbol)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
		ins := tx.Rebind(`INSERT INTO "StockLunarAnalysisResults" ("AnalysisDate", "ETF", "Correlation_Close", "Correlation_Volume",
			"Correlation_Return", "ANOVA_F_Statistic", "ANOVA_P_Value", "Conclusion") VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		_, err = tx.ExecContext(ctx, ins, util.DateOf(sum.AnalysisDate), sum.Symbol, sum.CorrelationClose, sum.CorrelationVolume,
			sum.CorrelationReturn, finiteOrNil(sum.FStatistic), sum.PValue, sum.Conclusion)
		return err
	})
}

type phaseRow struct {
	Date  time.Time `db:"Date"`
	Phase string    `db:"Phase"`
}

func (s *SQLStore) ListPhases(ctx context.Context, from, to time.Time) ([]models.LunarPhaseRecord, error) {
	var rows []phaseRow
	q := s.db.Rebind(`SELECT "Date", "Phase" FROM "LunarPhases" WHERE "Date" >= ? AND "Date" <= ? ORDER BY "Date"`)
	if err := s.db.SelectContext(ctx, &rows, q, util.DateOf(from), util.DateOf(to)); err != nil {
		return nil, apperr.Persistence("list phases", err)
	}
	out := make([]models.LunarPhaseRecord, 0, len(rows))
	for _, r := range rows {
		p, err := models.ParsePhase(r.Phase)
		if err != nil {
			return nil, apperr.Schema("list phases", err)
		}
		out = append(out, models.LunarPhaseRecord{Date: util.DateOf(r.Date), Phase: p})
	}
	return out, nil
}

func (s *SQLStore) ListPhaseReturns(ctx context.Context, symbol string, limit int) ([]models.PhaseReturnRow, error) {
	var rows []models.PhaseReturnRow
	q := s.db.Rebind(`SELECT "AnalysisDate", "ETF", "LunarPhase", "AverageReturn", "StdDevReturn", "Count"
		FROM "LunarPhaseReturns" WHERE "ETF" = ?
		ORDER BY "AnalysisDate" DESC, "LunarPhase" OFFSET 0 ROWS FETCH NEXT ? ROWS ONLY`)
	if err := s.db.SelectContext(ctx, &rows, q, symbol, limit); err != nil {
		return nil, apperr.Persistence("list phase returns", err)
	}
	return rows, nil
}

func (s *SQLStore) ListSummaries(ctx context.Context, symbol string, limit int) ([]models.InstrumentSummary, error) {
	var (
		rows  []models.InstrumentSummary
		where string
		args  []any
	)
	if symbol != "" {
		where = `WHERE "ETF" = ?`
		args = append(args, symbol)
	}
	args = append(args, limit)
	q := s.db.Rebind(fmt.Sprintf(`SELECT "AnalysisDate", "ETF", "Correlation_Close", "Correlation_Volume", "Correlation_Return",
		"ANOVA_F_Statistic", "ANOVA_P_Value", "Conclusion"
		FROM "StockLunarAnalysisResults" %s
		ORDER BY "AnalysisDate" DESC, "ETF" OFFSET 0 ROWS FETCH NEXT ? ROWS ONLY`, where))
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, apperr.Persistence("list summaries", err)
	}
	return rows, nil
}

func (s *SQLStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close is a no-op; the pool belongs to the sqldb client.
func (s *SQLStore) Close() error { return nil }

// finiteOrNil stores an infinite F statistic as NULL; FLOAT columns reject Inf.
func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsInf(*v, 0) || math.IsNaN(*v) {
		return nil
	}
	return v
}

var _ domrepo.AnalysisStore = (*SQLStore)(nil)
