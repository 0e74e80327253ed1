package storage

import (
	"path/filepath"
	"testing"
	"time"

	"swapscope/internal/model"
)

func TestJsonlSinkRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "trades.jsonl")
	sink := NewJsonlSink(path)

	first := []model.ExecutedTrade{
		{
			Timestamp:   time.Unix(1700000000, 0).UTC(),
			BlockNumber: 19000000,
			TxHash:      "0xaaa",
			LogIndex:    3,
			Pool:        model.PoolV2,
			EthSize:     1.5,
			Price:       3010.25,
		},
	}
	if err := sink.PutTrades(first); err != nil {
		t.Fatalf("put: %v", err)
	}

	second := []model.ExecutedTrade{
		{
			Timestamp:   time.Unix(1700000012, 0).UTC(),
			BlockNumber: 19000001,
			TxHash:      "0xbbb",
			LogIndex:    0,
			Pool:        model.PoolV3,
			EthSize:     0.25,
			Price:       3011.0,
		},
	}
	if err := sink.PutTrades(second); err != nil {
		t.Fatalf("put append: %v", err)
	}

	trades, err := ReadTrades(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("trade count mismatch: %d", len(trades))
	}
	if trades[0].TxHash != "0xaaa" || trades[1].TxHash != "0xbbb" {
		t.Fatalf("order mismatch: %+v", trades)
	}
	if trades[1].Pool != model.PoolV3 || trades[1].Price != 3011.0 {
		t.Fatalf("fields mismatch: %+v", trades[1])
	}
}

func TestPutTradesEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	sink := NewJsonlSink(path)

	if err := sink.PutTrades(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if _, err := ReadTrades(path); err == nil {
		t.Fatalf("file should not exist after empty batch")
	}
}
