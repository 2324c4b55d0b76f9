package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LunarPull/internal/domain/apperr"
	"LunarPull/internal/domain/models"
	"LunarPull/pkg/sqldb"
)

func newMockStore(t *testing.T, batch int) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	c := sqldb.FromDB(sqlx.NewDb(raw, sqldb.DriverPostgres), sqldb.DriverPostgres)
	return NewSQLStore(c, batch, nil), mock
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestSQLStoreInit(t *testing.T) {
	store, mock := newMockStore(t, 500)
	for i := 0; i < 4; i++ {
		mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS`)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSqlServerDDL(t *testing.T) {
	s := &SQLStore{driver: sqldb.DriverSQLServer}
	for _, stmt := range s.ddl() {
		assert.Contains(t, stmt, "IF OBJECT_ID(N'")
	}
}

func TestSavePhaseCalendarReplacesRangeInBatches(t *testing.T) {
	store, mock := newMockStore(t, 2)
	recs := []models.LunarPhaseRecord{
		{Date: day(1), Phase: models.NewMoon},
		{Date: day(2), Phase: models.NewMoon},
		{Date: day(3), Phase: models.WaxingCrescent},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "LunarPhases"`)).
		WithArgs(day(1), day(3)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "LunarPhases" ("Date", "Phase") VALUES ($1, $2), ($3, $4)`)).
		WithArgs(day(1), "New Moon", day(2), "New Moon").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "LunarPhases" ("Date", "Phase") VALUES ($1, $2)`)).
		WithArgs(day(3), "Waxing Crescent").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SavePhaseCalendar(context.Background(), recs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePricesRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t, 500)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "StockPrices"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "StockPrices"`)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.SavePrices(context.Background(), []models.PricePoint{{Symbol: "SPY", Date: day(2), Close: 470}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPersistence))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSummaryInsertsWhenMissing(t *testing.T) {
	store, mock := newMockStore(t, 500)
	f, p := 1.5, 0.2
	sum := models.InstrumentSummary{AnalysisDate: day(5), Symbol: "SPY", FStatistic: &f, PValue: &p, Conclusion: "No significant returns variation by lunar phase"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "StockLunarAnalysisResults"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "StockLunarAnalysisResults"`)).
		WithArgs(day(5), "SPY", nil, nil, nil, 1.5, 0.2, sum.Conclusion).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, store.UpsertSummary(context.Background(), sum))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "StockLunarAnalysisResults"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, store.UpsertSummary(context.Background(), sum))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePhaseReturnsIsolatesRows(t *testing.T) {
	store, mock := newMockStore(t, 500)
	rows := []models.PhaseReturnRow{
		{AnalysisDate: day(5), Symbol: "SPY", LunarPhase: "New Moon", AverageReturn: 0.1, Count: 10},
		{AnalysisDate: day(5), Symbol: "SPY", LunarPhase: "Full Moon", AverageReturn: -0.1, Count: 9},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "LunarPhaseReturns"`)).WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "LunarPhaseReturns"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SavePhaseReturns(context.Background(), rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPersistence))
	assert.Contains(t, err.Error(), "SPY/New Moon")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSummariesScansNulls(t *testing.T) {
	store, mock := newMockStore(t, 500)
	cols := []string{"AnalysisDate", "ETF", "Correlation_Close", "Correlation_Volume", "Correlation_Return", "ANOVA_F_Statistic", "ANOVA_P_Value", "Conclusion"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "StockLunarAnalysisResults" WHERE "ETF" = $1`)).
		WithArgs("QQQ", 5).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(day(5), "QQQ", 0.01, nil, -0.02, nil, nil, "ANOVA not computed"))

	got, err := store.ListSummaries(context.Background(), "QQQ", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "QQQ", got[0].Symbol)
	require.NotNil(t, got[0].CorrelationClose)
	assert.InDelta(t, 0.01, *got[0].CorrelationClose, 1e-12)
	assert.Nil(t, got[0].CorrelationVolume)
	assert.Nil(t, got[0].PValue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPhasesRejectsUnknownPhase(t *testing.T) {
	store, mock := newMockStore(t, 500)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "LunarPhases"`)).
		WillReturnRows(sqlmock.NewRows([]string{"Date", "Phase"}).AddRow(day(1), "New Moon").AddRow(day(2), "Blue Moon"))

	_, err := store.ListPhases(context.Background(), day(1), day(2))
	assert.True(t, errors.Is(err, apperr.ErrSchema))
}
