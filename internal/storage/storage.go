package storage

import "swapscope/internal/model"

// TradeSink persists executed trades as they are observed.
type TradeSink interface {
	PutTrades(trades []model.ExecutedTrade) error
}

// NopSink discards trades; used when no output path is configured.
type NopSink struct{}

func (NopSink) PutTrades([]model.ExecutedTrade) error { return nil }
