package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapscope/internal/model"
)

// Store persists tick samples and executed trades to Postgres.
type Store struct {
	pool *pgxpool.Pool
	pair string
}

func NewStore(ctx context.Context, dsn, pair string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if pair == "" {
		pair = "ETH-USDT"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, pair: pair}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertTickSamples upserts tick samples keyed by (pair, sample_ts).
func (s *Store) InsertTickSamples(ctx context.Context, samples []model.TickSample) error {
	if len(samples) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sample := range samples {
		batch.Queue(`
			INSERT INTO price_ticks (
				pair, sample_ts, v2_spot, v3_spot, v2_vwap, v3_vwap, combined_vwap, reference_price, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (pair, sample_ts)
			DO UPDATE SET
				v2_spot = EXCLUDED.v2_spot,
				v3_spot = EXCLUDED.v3_spot,
				v2_vwap = EXCLUDED.v2_vwap,
				v3_vwap = EXCLUDED.v3_vwap,
				combined_vwap = EXCLUDED.combined_vwap,
				reference_price = EXCLUDED.reference_price
		`,
			s.pair,
			sample.Timestamp,
			sample.V2Spot,
			sample.V3Spot,
			sample.V2VWAP,
			sample.V3VWAP,
			sample.CombinedVWAP,
			sample.Reference,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range samples {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertTrades upserts executed trades keyed by (tx_hash, log_index).
func (s *Store) InsertTrades(ctx context.Context, trades []model.ExecutedTrade) error {
	if len(trades) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, trade := range trades {
		batch.Queue(`
			INSERT INTO executed_trades (
				pair, pool, tx_hash, log_index, block_number, trade_ts, eth_size, price, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (tx_hash, log_index) DO NOTHING
		`,
			s.pair,
			trade.Pool,
			trade.TxHash,
			int64(trade.LogIndex),
			int64(trade.BlockNumber),
			trade.Timestamp,
			trade.EthSize,
			trade.Price,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range trades {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
