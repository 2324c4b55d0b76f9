package sqldb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesOptions(t *testing.T) {
	_, err := NewClient(context.Background())
	assert.ErrorContains(t, err, "dsn is required")

	_, err = NewClient(context.Background(), WithDSN("x"), WithDriver("mysql"))
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestFromDBHealth(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()

	c := FromDB(sqlx.NewDb(raw, DriverPostgres), DriverPostgres)
	require.NoError(t, c.Health(context.Background()))
	assert.Equal(t, DriverPostgres, c.Driver())
	require.NoError(t, c.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
