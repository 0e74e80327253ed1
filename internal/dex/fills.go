package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// SwapFill is an executed ETH-to-USDT trade extracted from a Swap log.
type SwapFill struct {
	Price   float64 // USDT per ETH
	EthSize float64
}

// DecodeV2Fill extracts an ETH-to-USDT fill from a V2 pair Swap log. Swaps in
// the other direction (or with an empty ETH leg) return (nil, nil); they do
// not contribute to the VWAP.
func DecodeV2Fill(lg types.Log) (*SwapFill, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return nil, err
	}
	event := pairABI.Events["Swap"]

	if len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
		return nil, fmt.Errorf("not a v2 swap log")
	}

	values, err := event.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack v2 swap: %w", err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected v2 swap values: %d", len(values))
	}

	amount0In, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	amount1Out, err := asBigInt(values[3])
	if err != nil {
		return nil, err
	}

	// token0=WETH in, token1=USDT out
	if amount0In.Sign() <= 0 || amount1Out.Sign() <= 0 {
		return nil, nil
	}

	eth := tokenAmount(amount0In, WETHDecimals)
	usdt := tokenAmount(amount1Out, USDTDecimals)
	if eth == 0 {
		return nil, nil
	}

	return &SwapFill{Price: usdt / eth, EthSize: eth}, nil
}

// DecodeV3Fill extracts an ETH-to-USDT fill from a V3 pool Swap log. The pool
// receives ETH (amount0 > 0) and sends USDT (amount1 < 0); anything else
// returns (nil, nil).
func DecodeV3Fill(lg types.Log) (*SwapFill, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}
	event := poolABI.Events["Swap"]

	if len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
		return nil, fmt.Errorf("not a v3 swap log")
	}

	values, err := event.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack v3 swap: %w", err)
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("unexpected v3 swap values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	if amount0.Sign() <= 0 || amount1.Sign() >= 0 {
		return nil, nil
	}

	eth := tokenAmount(amount0, WETHDecimals)
	usdt := tokenAmount(new(big.Int).Abs(amount1), USDTDecimals)
	if eth == 0 {
		return nil, nil
	}

	return &SwapFill{Price: usdt / eth, EthSize: eth}, nil
}

// tokenAmount converts a raw token amount to its human value.
func tokenAmount(raw *big.Int, decimals uint8) float64 {
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	value := new(big.Float).SetInt(raw)
	value.Quo(value, new(big.Float).SetInt(denom))
	out, _ := value.Float64()
	return out
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
