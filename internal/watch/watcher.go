package watch

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapscope/internal/dex"
	"swapscope/internal/market"
	"swapscope/internal/model"
	"swapscope/internal/storage"
)

// ChainSource is the chain access the watcher needs.
type ChainSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// QuoteSource fetches the exchange reference price.
type QuoteSource interface {
	TickerPrice(ctx context.Context) (float64, error)
}

// TickStore persists tick samples; optional.
type TickStore interface {
	InsertTickSamples(ctx context.Context, samples []model.TickSample) error
	InsertTrades(ctx context.Context, trades []model.ExecutedTrade) error
}

// Broadcaster pushes snapshots to live subscribers; optional.
type Broadcaster interface {
	BroadcastSnapshot(snap model.Snapshot)
}

// Config holds runtime settings for the watcher.
type Config struct {
	V2Pool            common.Address
	V3Pool            common.Address
	VWAPWindow        int
	SeriesSize        int
	RecentTrades      int
	LookbackBlocks    uint64
	PollInterval      time.Duration
	SpotInterval      time.Duration
	DeviationWarnPct  float64
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	CheckpointPath    string
	CheckpointEnabled bool
}

// Watcher polls the chain for swap logs, maintains VWAP windows and the tick
// series, and periodically samples spot and reference prices.
type Watcher struct {
	cfg        Config
	chain      ChainSource
	quotes     QuoteSource
	sink       storage.TradeSink
	ticks      TickStore
	broadcast  Broadcaster
	logger     *zap.Logger
	checkpoint *CheckpointStore

	v2Topic common.Hash
	v3Topic common.Hash

	mu        sync.Mutex
	v2Window  *market.Window
	v3Window  *market.Window
	series    *market.Series
	recent    []model.ExecutedTrade
	lastBlock uint64
	v2Spot    *float64
	v3Spot    *float64
	reference *float64
	updatedAt time.Time

	seen map[string]struct{}
}

// New builds a Watcher. sink may be nil (trades are then not persisted),
// ticks and broadcast may be nil.
func New(cfg Config, chainSource ChainSource, quotes QuoteSource, sink storage.TradeSink, ticks TickStore, broadcast Broadcaster, logger *zap.Logger) (*Watcher, error) {
	if chainSource == nil {
		return nil, fmt.Errorf("chain source is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = storage.NopSink{}
	}
	if cfg.VWAPWindow <= 0 {
		cfg.VWAPWindow = 30
	}
	if cfg.SeriesSize <= 0 {
		cfg.SeriesSize = 600
	}
	if cfg.RecentTrades <= 0 {
		cfg.RecentTrades = 200
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SpotInterval <= 0 {
		cfg.SpotInterval = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2000
	}

	v2Topic, err := dex.V2SwapTopic()
	if err != nil {
		return nil, fmt.Errorf("v2 swap topic: %w", err)
	}
	v3Topic, err := dex.V3SwapTopic()
	if err != nil {
		return nil, fmt.Errorf("v3 swap topic: %w", err)
	}

	return &Watcher{
		cfg:        cfg,
		chain:      chainSource,
		quotes:     quotes,
		sink:       sink,
		ticks:      ticks,
		broadcast:  broadcast,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		v2Topic:    v2Topic,
		v3Topic:    v3Topic,
		v2Window:   market.NewWindow(cfg.VWAPWindow),
		v3Window:   market.NewWindow(cfg.VWAPWindow),
		series:     market.NewSeries(cfg.SeriesSize),
		seen:       make(map[string]struct{}),
	}, nil
}

// Run executes the poll loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	latest, err := w.latestBlockWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	from := uint64(1)
	if latest > w.cfg.LookbackBlocks {
		from = latest - w.cfg.LookbackBlocks
	}

	if cp, ok, err := w.checkpoint.Load(); err != nil {
		return err
	} else if ok && cp.LastBlock+1 > from {
		from = cp.LastBlock + 1
		w.logger.Info("resume from checkpoint", zap.Uint64("last_block", cp.LastBlock))
	}

	w.mu.Lock()
	w.lastBlock = from - 1
	w.mu.Unlock()

	w.logger.Info("watcher start",
		zap.Uint64("from", from),
		zap.Uint64("latest", latest),
		zap.String("v2_pool", w.cfg.V2Pool.Hex()),
		zap.String("v3_pool", w.cfg.V3Pool.Hex()),
		zap.Int("vwap_window", w.cfg.VWAPWindow),
	)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	var lastSpot time.Time
	for {
		if err := w.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("poll round failed", zap.Error(err))
		}

		if time.Since(lastSpot) >= w.cfg.SpotInterval {
			w.refreshTick(ctx)
			lastSpot = time.Now()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll fetches and processes logs from lastBlock+1 up to the head.
func (w *Watcher) poll(ctx context.Context) error {
	latest, err := w.latestBlockWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	w.mu.Lock()
	from := w.lastBlock + 1
	w.mu.Unlock()

	if latest < from {
		return nil
	}

	ranges, err := splitRange(from, latest, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	addresses := []common.Address{w.cfg.V2Pool, w.cfg.V3Pool}
	topics := []common.Hash{w.v2Topic, w.v3Topic}

	for _, br := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logs, err := w.filterLogsWithRetry(ctx, br.from, br.to, addresses, topics)
		if err != nil {
			return fmt.Errorf("filter logs [%d, %d]: %w", br.from, br.to, err)
		}

		trades := make([]model.ExecutedTrade, 0, len(logs))
		for _, lg := range logs {
			if lg.Removed || w.isDuplicate(lg) {
				continue
			}

			trade, err := w.tradeFromLog(ctx, lg)
			if err != nil {
				w.logger.Warn("decode swap log failed",
					zap.String("tx", lg.TxHash.Hex()),
					zap.Uint64("block", lg.BlockNumber),
					zap.Error(err))
				continue
			}
			if trade == nil {
				continue
			}
			trades = append(trades, *trade)
		}

		if err := w.ingest(ctx, trades); err != nil {
			return err
		}

		if err := w.checkpoint.Save(br.to); err != nil {
			return err
		}

		w.mu.Lock()
		w.lastBlock = br.to
		w.mu.Unlock()

		if len(trades) > 0 {
			w.logger.Info("swaps ingested",
				zap.Int("trades", len(trades)),
				zap.Uint64("from", br.from),
				zap.Uint64("to", br.to))
		}
	}

	return nil
}

// tradeFromLog decodes a swap log into an executed trade. A nil trade means
// the swap was not ETH-to-USDT.
func (w *Watcher) tradeFromLog(ctx context.Context, lg types.Log) (*model.ExecutedTrade, error) {
	var fill *dex.SwapFill
	var pool string
	var err error

	switch lg.Address {
	case w.cfg.V2Pool:
		pool = model.PoolV2
		fill, err = dex.DecodeV2Fill(lg)
	case w.cfg.V3Pool:
		pool = model.PoolV3
		fill, err = dex.DecodeV3Fill(lg)
	default:
		return nil, fmt.Errorf("log from unexpected address %s", lg.Address.Hex())
	}
	if err != nil {
		return nil, err
	}
	if fill == nil {
		return nil, nil
	}

	ts, err := w.blockTimestampWithRetry(ctx, lg.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("block timestamp %d: %w", lg.BlockNumber, err)
	}

	return &model.ExecutedTrade{
		Timestamp:   time.Unix(int64(ts), 0).UTC(),
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    uint64(lg.Index),
		Pool:        pool,
		EthSize:     fill.EthSize,
		Price:       fill.Price,
	}, nil
}

func (w *Watcher) ingest(ctx context.Context, trades []model.ExecutedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	w.mu.Lock()
	for _, trade := range trades {
		switch trade.Pool {
		case model.PoolV2:
			w.v2Window.Add(trade.Price, trade.EthSize)
		case model.PoolV3:
			w.v3Window.Add(trade.Price, trade.EthSize)
		}
		w.recent = append(w.recent, trade)
	}
	if over := len(w.recent) - w.cfg.RecentTrades; over > 0 {
		w.recent = append(w.recent[:0], w.recent[over:]...)
	}
	w.updatedAt = time.Now().UTC()
	w.mu.Unlock()

	if err := w.sink.PutTrades(trades); err != nil {
		return fmt.Errorf("store trades: %w", err)
	}
	if w.ticks != nil {
		if err := w.ticks.InsertTrades(ctx, trades); err != nil {
			w.logger.Warn("persist trades failed", zap.Error(err))
		}
	}

	return nil
}

// refreshTick samples spot and reference prices, appends a series point, and
// broadcasts the new snapshot. Individual source failures degrade the sample
// rather than aborting the loop.
func (w *Watcher) refreshTick(ctx context.Context) {
	var v2Spot, v3Spot, reference *float64

	if price, err := dex.V2SpotPrice(ctx, w.chain, w.cfg.V2Pool); err != nil {
		w.logger.Warn("v2 spot read failed", zap.Error(err))
	} else {
		v2Spot = &price
	}

	if price, err := dex.V3SpotPrice(ctx, w.chain, w.cfg.V3Pool); err != nil {
		w.logger.Warn("v3 spot read failed", zap.Error(err))
	} else {
		v3Spot = &price
	}

	if w.quotes != nil {
		if price, err := w.quotes.TickerPrice(ctx); err != nil {
			w.logger.Warn("reference quote failed", zap.Error(err))
		} else {
			reference = &price
		}
	}

	w.mu.Lock()
	v2VWAP := vwapPtr(w.v2Window.VWAP())
	v3VWAP := vwapPtr(w.v3Window.VWAP())
	combined := vwapPtr(market.CombinedVWAP(w.cfg.VWAPWindow, w.v2Window, w.v3Window))

	sample := model.TickSample{
		Timestamp:    time.Now().UTC(),
		V2Spot:       v2Spot,
		V3Spot:       v3Spot,
		V2VWAP:       v2VWAP,
		V3VWAP:       v3VWAP,
		CombinedVWAP: combined,
		Reference:    reference,
	}
	w.series.Add(sample)
	w.v2Spot = v2Spot
	w.v3Spot = v3Spot
	w.reference = reference
	w.updatedAt = sample.Timestamp
	w.mu.Unlock()

	w.warnOnDeviation(model.PoolV2, v2VWAP, v2Spot)
	w.warnOnDeviation(model.PoolV3, v3VWAP, v3Spot)

	if w.ticks != nil {
		if err := w.ticks.InsertTickSamples(ctx, []model.TickSample{sample}); err != nil {
			w.logger.Warn("persist tick failed", zap.Error(err))
		}
	}

	if w.broadcast != nil {
		w.broadcast.BroadcastSnapshot(w.Snapshot())
	}
}

func (w *Watcher) warnOnDeviation(pool string, vwap, spot *float64) {
	if w.cfg.DeviationWarnPct <= 0 || vwap == nil || spot == nil {
		return
	}
	diff, ok := market.PctDiff(*vwap, *spot)
	if !ok {
		return
	}
	if diff > w.cfg.DeviationWarnPct || diff < -w.cfg.DeviationWarnPct {
		w.logger.Warn("vwap deviates from spot",
			zap.String("pool", pool),
			zap.Float64("vwap", *vwap),
			zap.Float64("spot", *spot),
			zap.Float64("deviation_pct", diff))
	}
}

// Snapshot returns a consistent copy of the live state.
func (w *Watcher) Snapshot() model.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	recent := make([]model.ExecutedTrade, len(w.recent))
	copy(recent, w.recent)
	// newest first
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	return model.Snapshot{
		UpdatedAt:    w.updatedAt,
		LastBlock:    w.lastBlock,
		V2Spot:       copyFloat(w.v2Spot),
		V3Spot:       copyFloat(w.v3Spot),
		V2VWAP:       vwapPtr(w.v2Window.VWAP()),
		V3VWAP:       vwapPtr(w.v3Window.VWAP()),
		CombinedVWAP: vwapPtr(market.CombinedVWAP(w.cfg.VWAPWindow, w.v2Window, w.v3Window)),
		Reference:    copyFloat(w.reference),
		RecentTrades: recent,
		Series:       w.series.Samples(),
	}
}

func (w *Watcher) latestBlockWithRetry(ctx context.Context) (uint64, error) {
	var latest uint64
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = w.chain.LatestBlockNumber(ctx)
		if err != nil {
			w.logger.Warn("latest block fetch failed", zap.Error(err))
		}
		return err
	})
	return latest, err
}

func (w *Watcher) filterLogsWithRetry(ctx context.Context, from, to uint64, addresses []common.Address, topics []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = w.chain.FilterLogs(ctx, from, to, addresses, topics)
		if err != nil {
			w.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", from), zap.Uint64("to", to))
		}
		return err
	})
	return logs, err
}

func (w *Watcher) blockTimestampWithRetry(ctx context.Context, number uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = w.chain.BlockTimestamp(ctx, number)
		return err
	})
	return ts, err
}

func (w *Watcher) isDuplicate(lg types.Log) bool {
	// bound the dedupe set; old entries are out of filter reach anyway
	if len(w.seen) > 1<<16 {
		w.seen = make(map[string]struct{})
	}
	id := fmt.Sprintf("%d:%s:%d", lg.BlockNumber, lg.TxHash.Hex(), lg.Index)
	if _, ok := w.seen[id]; ok {
		return true
	}
	w.seen[id] = struct{}{}
	return false
}

func vwapPtr(value float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &value
}

func copyFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}
