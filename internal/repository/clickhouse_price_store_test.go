package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LunarPull/internal/domain/models"
	pkgch "LunarPull/pkg/clickhouse"
)

func newMockCH(t *testing.T) (*CHPriceStore, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewCHPriceStore(pkgch.FromDB(raw), "lunar", nil), mock
}

func TestCHInitCreatesReplacingTable(t *testing.T) {
	store, mock := newMockCH(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS lunar\.daily_prices .*ReplacingMergeTree\(ingested_at\) ORDER BY \(symbol, d\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHStorePricesSkipsIncompleteRows(t *testing.T) {
	store, mock := newMockCH(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lunar.daily_prices (symbol, d, open, high, low, close, adj_close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")).
		WithArgs("SPY", day(2), 1.0, 2.0, 0.5, 1.5, 1.5, 100.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.StorePrices(context.Background(), []models.PricePoint{
		{Symbol: "SPY", Date: day(2), Open: 1, High: 2, Low: 0.5, Close: 1.5, AdjClose: 1.5, Volume: 100},
		{Symbol: "", Date: day(3), Close: 1},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHFetchPricesReadsFinal(t *testing.T) {
	store, mock := newMockCH(t)
	cols := []string{"symbol", "d", "open", "high", "low", "close", "adj_close", "volume"}
	mock.ExpectQuery(`FROM lunar\.daily_prices FINAL`).
		WithArgs("SPY", day(1), day(9)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("SPY", day(2), 1.0, 2.0, 0.5, 1.5, 1.5, 100.0).
			AddRow("SPY", day(3), 1.5, 2.5, 1.0, 2.0, 2.0, 120.0))

	got, err := store.FetchPrices(context.Background(), "SPY", day(1), day(9))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(3), got[1].Date)
	assert.Equal(t, 2.0, got[1].Close)
}

func TestCHLatestDate(t *testing.T) {
	store, mock := newMockCH(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max(d), count() FROM lunar.daily_prices FINAL")).
		WillReturnRows(sqlmock.NewRows([]string{"max", "count"}).AddRow(day(7), uint64(4)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max(d), count() FROM lunar.daily_prices FINAL")).
		WillReturnRows(sqlmock.NewRows([]string{"max", "count"}).AddRow(day(1), uint64(0)))

	d, ok, err := store.LatestDate(context.Background(), "SPY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day(7), d)

	_, ok, err = store.LatestDate(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.False(t, ok)
}
