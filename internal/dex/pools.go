package dex

import (
	"github.com/ethereum/go-ethereum/common"
)

// Token decimals for the watched pair. Both mainnet pools have token0=WETH
// and token1=USDT.
const (
	WETHDecimals = 18
	USDTDecimals = 6
)

// Mainnet WETH/USDT pools.
var (
	DefaultV2Pool = common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852")
	DefaultV3Pool = common.HexToAddress("0x11b815efB8f581194ae79006d24E0d814B7697F6") // 0.05% fee tier
)

// V2SwapTopic returns topic0 of the V2 pair Swap event.
func V2SwapTopic() (common.Hash, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return common.Hash{}, err
	}
	return pairABI.Events["Swap"].ID, nil
}

// V3SwapTopic returns topic0 of the V3 pool Swap event.
func V3SwapTopic() (common.Hash, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return common.Hash{}, err
	}
	return poolABI.Events["Swap"].ID, nil
}
