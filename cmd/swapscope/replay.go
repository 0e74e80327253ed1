package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapscope/internal/config"
	"swapscope/internal/market"
	"swapscope/internal/model"
	"swapscope/internal/storage"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	trades, err := storage.ReadTrades(cfg.In)
	if err != nil {
		return fmt.Errorf("read trades: %w", err)
	}

	v2 := market.NewWindow(cfg.VWAPWindow)
	v3 := market.NewWindow(cfg.VWAPWindow)
	var v2Count, v3Count int
	for _, tr := range trades {
		switch tr.Pool {
		case model.PoolV2:
			v2.Add(tr.Price, tr.EthSize)
			v2Count++
		case model.PoolV3:
			v3.Add(tr.Price, tr.EthSize)
			v3Count++
		default:
			logger.Warn("unknown pool in trade record",
				zap.String("pool", tr.Pool),
				zap.String("tx_hash", tr.TxHash),
			)
		}
	}

	fields := []zap.Field{
		zap.String("in", cfg.In),
		zap.Int("trades", len(trades)),
		zap.Int("v2_trades", v2Count),
		zap.Int("v3_trades", v3Count),
		zap.Int("vwap_window", cfg.VWAPWindow),
	}
	if v, ok := v2.VWAP(); ok {
		fields = append(fields, zap.Float64("v2_vwap", v))
	}
	if v, ok := v3.VWAP(); ok {
		fields = append(fields, zap.Float64("v3_vwap", v))
	}
	if v, ok := market.CombinedVWAP(cfg.VWAPWindow, v2, v3); ok {
		fields = append(fields, zap.Float64("combined_vwap", v))
	}

	logger.Info("replay complete", fields...)
	return nil
}
