package dex

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestDecodeV2FillEthToUsdt(t *testing.T) {
	// 2 ETH in, 6000 USDT out
	lg := buildV2SwapLog(t,
		big.NewInt(2e18), big.NewInt(0),
		big.NewInt(0), big.NewInt(6000e6),
	)

	fill, err := DecodeV2Fill(lg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fill == nil {
		t.Fatalf("expected fill")
	}

	if math.Abs(fill.EthSize-2) > 1e-9 {
		t.Fatalf("eth size mismatch: %f", fill.EthSize)
	}
	if math.Abs(fill.Price-3000) > 1e-6 {
		t.Fatalf("price mismatch: %f", fill.Price)
	}
}

func TestDecodeV2FillIgnoresUsdtToEth(t *testing.T) {
	// USDT in, ETH out: not part of the VWAP
	lg := buildV2SwapLog(t,
		big.NewInt(0), big.NewInt(6000e6),
		big.NewInt(2e18), big.NewInt(0),
	)

	fill, err := DecodeV2Fill(lg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fill != nil {
		t.Fatalf("expected no fill, got %+v", fill)
	}
}

func TestDecodeV2FillRejectsWrongTopic(t *testing.T) {
	lg := buildV2SwapLog(t, big.NewInt(1), big.NewInt(0), big.NewInt(0), big.NewInt(1))
	lg.Topics[0] = common.HexToHash("0xdead")

	if _, err := DecodeV2Fill(lg); err == nil {
		t.Fatalf("expected error for wrong topic0")
	}
}

func TestDecodeV3FillEthToUsdt(t *testing.T) {
	// pool receives 1 ETH, sends 3100 USDT
	lg := buildV3SwapLog(t, big.NewInt(1e18), big.NewInt(-3100e6))

	fill, err := DecodeV3Fill(lg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fill == nil {
		t.Fatalf("expected fill")
	}

	if math.Abs(fill.EthSize-1) > 1e-9 {
		t.Fatalf("eth size mismatch: %f", fill.EthSize)
	}
	if math.Abs(fill.Price-3100) > 1e-6 {
		t.Fatalf("price mismatch: %f", fill.Price)
	}
}

func TestDecodeV3FillIgnoresUsdtToEth(t *testing.T) {
	lg := buildV3SwapLog(t, big.NewInt(-1e18), big.NewInt(3100e6))

	fill, err := DecodeV3Fill(lg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fill != nil {
		t.Fatalf("expected no fill, got %+v", fill)
	}
}

func TestDecodeV3FillBadData(t *testing.T) {
	lg := buildV3SwapLog(t, big.NewInt(1e18), big.NewInt(-3100e6))
	lg.Data = lg.Data[:10]

	if _, err := DecodeV3Fill(lg); err == nil {
		t.Fatalf("expected error for truncated data")
	}
}

func buildV2SwapLog(t *testing.T, amount0In, amount1In, amount0Out, amount1Out *big.Int) types.Log {
	t.Helper()

	pairABI, err := V2PairABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	data, err := pairABI.Events["Swap"].Inputs.NonIndexed().Pack(
		amount0In, amount1In, amount0Out, amount1Out,
	)
	if err != nil {
		t.Fatalf("pack v2 swap: %v", err)
	}

	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	return types.Log{
		Address: DefaultV2Pool,
		Topics: []common.Hash{
			pairABI.Events["Swap"].ID,
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        data,
		BlockNumber: 19000000,
		TxHash:      common.HexToHash("0xabc"),
		Index:       1,
	}
}

func buildV3SwapLog(t *testing.T, amount0, amount1 *big.Int) types.Log {
	t.Helper()

	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	data, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(
		amount0,
		amount1,
		big.NewInt(4295128739),
		big.NewInt(1e18),
		big.NewInt(-200000),
	)
	if err != nil {
		t.Fatalf("pack v3 swap: %v", err)
	}

	sender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	recipient := common.HexToAddress("0x3333333333333333333333333333333333333333")

	return types.Log{
		Address: DefaultV3Pool,
		Topics: []common.Hash{
			poolABI.Events["Swap"].ID,
			common.BytesToHash(sender.Bytes()),
			common.BytesToHash(recipient.Bytes()),
		},
		Data:        data,
		BlockNumber: 19000000,
		TxHash:      common.HexToHash("0xdef"),
		Index:       2,
	}
}
