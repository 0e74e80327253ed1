package watch

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapscope/internal/dex"
	"swapscope/internal/model"
)

type fakeChain struct {
	latest uint64
	logs   []types.Log

	reservesResp []byte
	slot0Resp    []byte

	filterCalls int
}

func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeChain) FilterLogs(_ context.Context, _, _ uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	f.filterCalls++
	return f.logs, nil
}

func (f *fakeChain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1700000000 + number, nil
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To != nil && *msg.To == dex.DefaultV2Pool {
		return f.reservesResp, nil
	}
	return f.slot0Resp, nil
}

type fakeQuotes struct{ price float64 }

func (f *fakeQuotes) TickerPrice(context.Context) (float64, error) {
	return f.price, nil
}

func packV2Swap(t *testing.T, amount0In, amount1Out *big.Int, block uint64, tx common.Hash, index uint) types.Log {
	t.Helper()

	pairABI, err := dex.V2PairABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := pairABI.Events["Swap"].Inputs.NonIndexed().Pack(
		amount0In, big.NewInt(0), big.NewInt(0), amount1Out,
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	addr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	return types.Log{
		Address: dex.DefaultV2Pool,
		Topics: []common.Hash{
			pairABI.Events["Swap"].ID,
			common.BytesToHash(addr.Bytes()),
			common.BytesToHash(addr.Bytes()),
		},
		Data:        data,
		BlockNumber: block,
		TxHash:      tx,
		Index:       index,
	}
}

func packV3Swap(t *testing.T, amount0, amount1 *big.Int, block uint64, tx common.Hash, index uint) types.Log {
	t.Helper()

	poolABI, err := dex.V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(
		amount0, amount1, big.NewInt(1), big.NewInt(1), big.NewInt(0),
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	addr := common.HexToAddress("0x5555555555555555555555555555555555555555")
	return types.Log{
		Address: dex.DefaultV3Pool,
		Topics: []common.Hash{
			poolABI.Events["Swap"].ID,
			common.BytesToHash(addr.Bytes()),
			common.BytesToHash(addr.Bytes()),
		},
		Data:        data,
		BlockNumber: block,
		TxHash:      tx,
		Index:       index,
	}
}

func newTestWatcher(t *testing.T, chainSource ChainSource, quotes QuoteSource) *Watcher {
	t.Helper()

	w, err := New(Config{
		V2Pool:     dex.DefaultV2Pool,
		V3Pool:     dex.DefaultV3Pool,
		VWAPWindow: 10,
	}, chainSource, quotes, nil, nil, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	return w
}

func TestPollIngestsTrades(t *testing.T) {
	chainSource := &fakeChain{
		latest: 100,
		logs: []types.Log{
			// 1 ETH -> 3000 USDT on V2
			packV2Swap(t, big.NewInt(1e18), big.NewInt(3000e6), 99, common.HexToHash("0x01"), 0),
			// USDT -> ETH on V2: ignored
			packV2Swap(t, big.NewInt(0), big.NewInt(0), 99, common.HexToHash("0x01"), 1),
			// 2 ETH -> 6200 USDT on V3
			packV3Swap(t, big.NewInt(2e18), big.NewInt(-6200e6), 100, common.HexToHash("0x02"), 0),
		},
	}

	w := newTestWatcher(t, chainSource, nil)
	w.lastBlock = 98

	if err := w.poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	snap := w.Snapshot()
	if snap.LastBlock != 100 {
		t.Fatalf("last block mismatch: %d", snap.LastBlock)
	}
	if len(snap.RecentTrades) != 2 {
		t.Fatalf("trade count mismatch: %d", len(snap.RecentTrades))
	}
	// newest first
	if snap.RecentTrades[0].Pool != model.PoolV3 {
		t.Fatalf("order mismatch: %+v", snap.RecentTrades)
	}

	if snap.V2VWAP == nil || math.Abs(*snap.V2VWAP-3000) > 1e-6 {
		t.Fatalf("v2 vwap mismatch: %v", snap.V2VWAP)
	}
	if snap.V3VWAP == nil || math.Abs(*snap.V3VWAP-3100) > 1e-6 {
		t.Fatalf("v3 vwap mismatch: %v", snap.V3VWAP)
	}
	// combined: (3000*1 + 3100*2) / 3
	wantCombined := (3000.0 + 6200.0) / 3.0
	if snap.CombinedVWAP == nil || math.Abs(*snap.CombinedVWAP-wantCombined) > 1e-6 {
		t.Fatalf("combined vwap mismatch: %v", snap.CombinedVWAP)
	}
}

func TestPollDeduplicatesLogs(t *testing.T) {
	lg := packV2Swap(t, big.NewInt(1e18), big.NewInt(3000e6), 99, common.HexToHash("0x01"), 0)
	chainSource := &fakeChain{latest: 100, logs: []types.Log{lg}}

	w := newTestWatcher(t, chainSource, nil)
	w.lastBlock = 98

	if err := w.poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	// same log delivered again for the next range
	chainSource.latest = 101
	if err := w.poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	snap := w.Snapshot()
	if len(snap.RecentTrades) != 1 {
		t.Fatalf("duplicate not dropped: %d trades", len(snap.RecentTrades))
	}
	if snap.LastBlock != 101 {
		t.Fatalf("last block mismatch: %d", snap.LastBlock)
	}
}

func TestPollSkipsWhenNoNewBlocks(t *testing.T) {
	chainSource := &fakeChain{latest: 100}
	w := newTestWatcher(t, chainSource, nil)
	w.lastBlock = 100

	if err := w.poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if chainSource.filterCalls != 0 {
		t.Fatalf("filter should not be called: %d", chainSource.filterCalls)
	}
}

func TestRefreshTickSamplesAllSources(t *testing.T) {
	pairABI, err := dex.V2PairABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	poolABI, err := dex.V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	// V2 reserves: 10,000 ETH vs 30,000,000 USDT => 3000
	reserve0, _ := new(big.Int).SetString("10000000000000000000000", 10)
	reservesResp, err := pairABI.Methods["getReserves"].Outputs.Pack(
		reserve0, big.NewInt(30_000_000_000_000), uint32(1700000000),
	)
	if err != nil {
		t.Fatalf("pack reserves: %v", err)
	}

	// V3 slot0 for ~3000
	raw := new(big.Float).Quo(big.NewFloat(3000), big.NewFloat(1e12))
	sqrt := new(big.Float).Sqrt(raw)
	sqrt.Mul(sqrt, new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96)))
	sqrtPrice, _ := sqrt.Int(nil)
	slot0Resp, err := poolABI.Methods["slot0"].Outputs.Pack(
		sqrtPrice, big.NewInt(-196257), uint16(0), uint16(1), uint16(1), uint8(0), true,
	)
	if err != nil {
		t.Fatalf("pack slot0: %v", err)
	}

	chainSource := &fakeChain{latest: 100, reservesResp: reservesResp, slot0Resp: slot0Resp}
	w := newTestWatcher(t, chainSource, &fakeQuotes{price: 2998.5})

	w.refreshTick(context.Background())

	snap := w.Snapshot()
	if snap.V2Spot == nil || math.Abs(*snap.V2Spot-3000) > 1e-6 {
		t.Fatalf("v2 spot mismatch: %v", snap.V2Spot)
	}
	if snap.V3Spot == nil || math.Abs(*snap.V3Spot-3000) > 1e-3 {
		t.Fatalf("v3 spot mismatch: %v", snap.V3Spot)
	}
	if snap.Reference == nil || *snap.Reference != 2998.5 {
		t.Fatalf("reference mismatch: %v", snap.Reference)
	}
	if len(snap.Series) != 1 {
		t.Fatalf("series length mismatch: %d", len(snap.Series))
	}
	// no trades yet: VWAP fields stay null
	if snap.Series[0].V2VWAP != nil || snap.Series[0].CombinedVWAP != nil {
		t.Fatalf("vwap should be undefined without trades: %+v", snap.Series[0])
	}
}
