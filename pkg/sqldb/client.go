package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
)

// Client manages the relational connection pool.
type Client struct {
	db     *sqlx.DB
	driver string
}

// NewClient opens and pings a SQL Server or PostgreSQL pool.
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		Driver:          DriverSQLServer,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if cfg.Driver != DriverSQLServer && cfg.Driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s open: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", cfg.Driver, err)
	}

	return &Client{db: db, driver: cfg.Driver}, nil
}

// FromDB wraps an existing pool, e.g. one backed by sqlmock.
func FromDB(db *sqlx.DB, driver string) *Client { return &Client{db: db, driver: driver} }

// DB returns the sqlx handle.
func (c *Client) DB() *sqlx.DB { return c.db }

// Driver returns the configured driver name.
func (c *Client) Driver() string { return c.driver }

// Health performs health check.
func (c *Client) Health(ctx context.Context) error { return c.db.PingContext(ctx) }

// Close closes connection pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
