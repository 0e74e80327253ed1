package model

import "time"

// Snapshot is a consistent copy of the watcher state served to the dashboard
// and pushed to websocket clients.
type Snapshot struct {
	UpdatedAt    time.Time       `json:"updated_at"`
	LastBlock    uint64          `json:"last_block"`
	V2Spot       *float64        `json:"v2_spot"`
	V3Spot       *float64        `json:"v3_spot"`
	V2VWAP       *float64        `json:"v2_vwap"`
	V3VWAP       *float64        `json:"v3_vwap"`
	CombinedVWAP *float64        `json:"combined_vwap"`
	Reference    *float64        `json:"reference"`
	RecentTrades []ExecutedTrade `json:"recent_trades"`
	Series       []TickSample    `json:"series"`
}
