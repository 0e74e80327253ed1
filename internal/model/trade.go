package model

import "time"

// Pool labels for the two watched pools.
const (
	PoolV2 = "v2"
	PoolV3 = "v3"
)

// ExecutedTrade is an ETH-to-USDT swap observed on chain.
type ExecutedTrade struct {
	Timestamp   time.Time `json:"ts"`
	BlockNumber uint64    `json:"block_number"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint64    `json:"log_index"`
	Pool        string    `json:"pool"`
	EthSize     float64   `json:"eth_size"`
	Price       float64   `json:"price"`
}
