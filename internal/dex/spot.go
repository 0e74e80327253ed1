package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

// V2SpotPrice derives the mid price (USDT per ETH) from the V2 pair reserves.
func V2SpotPrice(ctx context.Context, caller ContractCaller, pool common.Address) (float64, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return 0, err
	}

	values, err := callPool(ctx, caller, pool, pairABI, "getReserves")
	if err != nil {
		return 0, err
	}
	if len(values) != 3 {
		return 0, fmt.Errorf("unexpected getReserves values: %d", len(values))
	}

	reserve0, err := asBigInt(values[0])
	if err != nil {
		return 0, err
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return 0, err
	}

	if reserve0.Sign() == 0 {
		return 0, fmt.Errorf("zero token0 reserve")
	}

	eth := tokenAmount(reserve0, WETHDecimals)
	usdt := tokenAmount(reserve1, USDTDecimals)
	return usdt / eth, nil
}

// V3SpotPrice derives the mid price (USDT per ETH) from the V3 pool slot0.
// The raw token1/token0 ratio is (sqrtPriceX96 / 2^96)^2, scaled by
// 10^(decimals0 - decimals1). Computed in big.Float since sqrtPriceX96 is a
// uint160.
func V3SpotPrice(ctx context.Context, caller ContractCaller, pool common.Address) (float64, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return 0, err
	}

	values, err := callPool(ctx, caller, pool, poolABI, "slot0")
	if err != nil {
		return 0, err
	}
	if len(values) < 1 {
		return 0, fmt.Errorf("empty slot0 result")
	}

	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return 0, err
	}
	if sqrtPrice.Sign() == 0 {
		return 0, fmt.Errorf("zero sqrt price")
	}

	ratio := new(big.Float).SetInt(sqrtPrice)
	ratio.Quo(ratio, q96)
	ratio.Mul(ratio, ratio)

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(WETHDecimals-USDTDecimals), nil)
	ratio.Mul(ratio, new(big.Float).SetInt(scale))

	price, _ := ratio.Float64()
	return price, nil
}

func callPool(ctx context.Context, caller ContractCaller, pool common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pool, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
