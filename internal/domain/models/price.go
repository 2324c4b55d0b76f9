package models

import "time"

// PricePoint is one instrument's OHLCV record for a trading day.
type PricePoint struct {
	Symbol   string    `json:"symbol" validate:"required"`
	Date     time.Time `json:"date" validate:"required"`
	Open     float64   `json:"open" validate:"gte=0"`
	High     float64   `json:"high" validate:"gte=0"`
	Low      float64   `json:"low" validate:"gte=0"`
	Close    float64   `json:"close" validate:"gt=0"`
	AdjClose float64   `json:"adj_close" validate:"gte=0"`
	Volume   float64   `json:"volume" validate:"gte=0"`
}

// ReturnPoint is the percent change of close against the previous trading day.
type ReturnPoint struct {
	Date          time.Time `json:"date"`
	PercentReturn float64   `json:"percent_return"`
}

// JoinedRecord is a trading day matched with its lunar phase.
type JoinedRecord struct {
	Date          time.Time `json:"date"`
	Symbol        string    `json:"symbol"`
	Close         float64   `json:"close"`
	Volume        float64   `json:"volume"`
	PercentReturn float64   `json:"percent_return"`
	Phase         Phase     `json:"phase"`
}

// Instrument is a tracked symbol with a human readable index name.
type Instrument struct {
	Symbol string `yaml:"symbol" json:"symbol" validate:"required,alphanum,max=10"`
	Name   string `yaml:"name" json:"name"`
}
