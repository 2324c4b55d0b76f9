package sqldb

import "time"

// Supported drivers.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds relational store configuration.
type ClientConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// WithDriver sets the database/sql driver name.
func WithDriver(driver string) ClientOption {
	return func(c *ClientConfig) {
		c.Driver = driver
	}
}

// WithDSN sets the connection string.
func WithDSN(dsn string) ClientOption {
	return func(c *ClientConfig) {
		c.DSN = dsn
	}
}

// WithPool sets pool limits.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		c.ConnMaxLifetime = lifetime
	}
}
