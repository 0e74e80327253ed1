package model

import "time"

// TickSample is a point on the dashboard time series. Fields are pointers so
// a value that could not be computed this round is encoded as null rather
// than zero.
type TickSample struct {
	Timestamp    time.Time `json:"ts"`
	V2Spot       *float64  `json:"v2_spot"`
	V3Spot       *float64  `json:"v3_spot"`
	V2VWAP       *float64  `json:"v2_vwap"`
	V3VWAP       *float64  `json:"v3_vwap"`
	CombinedVWAP *float64  `json:"combined_vwap"`
	Reference    *float64  `json:"reference"`
}
