package repository

import (
	"context"
	"time"

	"LunarPull/internal/domain/models"
)

// PriceStore is the columnar price warehouse. Writes are idempotent per (symbol, date).
type PriceStore interface {
	PriceSource
	Init(ctx context.Context) error
	StorePrices(ctx context.Context, prices []models.PricePoint) error
	LatestDate(ctx context.Context, symbol string) (time.Time, bool, error)
	Close() error
}
