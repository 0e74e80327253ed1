package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapscope/internal/chain"
	"swapscope/internal/config"
	"swapscope/internal/dex"
	"swapscope/internal/exchange"
	"swapscope/internal/server"
	"swapscope/internal/storage"
	"swapscope/internal/storage/postgres"
	"swapscope/internal/watch"
)

func main() {
	root := &cobra.Command{
		Use:          "swapscope",
		Short:        "ETH/USDT swap watcher and price dashboard",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live watcher and dashboard server",
		RunE:  runWatch,
	}

	runCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	runCmd.Flags().String("v2-pool", dex.DefaultV2Pool.Hex(), "Uniswap V2 ETH/USDT pair address")
	runCmd.Flags().String("v3-pool", dex.DefaultV3Pool.Hex(), "Uniswap V3 ETH/USDT pool address")
	runCmd.Flags().Int("vwap-window", 30, "trades per VWAP window")
	runCmd.Flags().Int("series-size", 600, "tick samples kept in memory")
	runCmd.Flags().Uint64("lookback-blocks", 50, "blocks to backfill on start")
	runCmd.Flags().Duration("poll-interval", 2*time.Second, "swap log poll interval")
	runCmd.Flags().Duration("spot-interval", 10*time.Second, "spot/reference price refresh interval")
	runCmd.Flags().Float64("deviation-warn-pct", 1.0, "warn when VWAP deviates from reference by this percent")
	runCmd.Flags().String("exchange-url", exchange.DefaultBaseURL, "exchange REST base URL")
	runCmd.Flags().String("exchange-symbol", exchange.DefaultSymbol, "exchange ticker symbol")
	runCmd.Flags().Duration("exchange-timeout", 5*time.Second, "exchange HTTP timeout")
	runCmd.Flags().String("listen", ":8080", "dashboard listen address")
	runCmd.Flags().String("out", "./data/trades.jsonl", "trades JSONL path (empty disables)")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (empty disables)")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per getLogs batch")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompute VWAPs from a recorded trades file",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input trades JSONL")
	replayCmd.Flags().Int("vwap-window", 30, "trades per VWAP window")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRun(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.V2Pool) {
		return fmt.Errorf("invalid v2 pool address: %s", cfg.V2Pool)
	}
	if !common.IsHexAddress(cfg.V3Pool) {
		return fmt.Errorf("invalid v3 pool address: %s", cfg.V3Pool)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	quotes := exchange.NewClient(cfg.ExchangeURL, cfg.ExchangeSymbol, cfg.ExchangeTimeout)

	var sink storage.TradeSink = storage.NopSink{}
	if cfg.Out != "" {
		sink = storage.NewJsonlSink(cfg.Out)
	}

	var ticks watch.TickStore
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, "ETH/USDT")
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		ticks = store
	}

	broadcaster := server.NewBroadcaster(logger)

	watcher, err := watch.New(watch.Config{
		V2Pool:            common.HexToAddress(cfg.V2Pool),
		V3Pool:            common.HexToAddress(cfg.V3Pool),
		VWAPWindow:        cfg.VWAPWindow,
		SeriesSize:        cfg.SeriesSize,
		LookbackBlocks:    cfg.LookbackBlocks,
		PollInterval:      cfg.PollInterval,
		SpotInterval:      cfg.SpotInterval,
		DeviationWarnPct:  cfg.DeviationWarnPct,
		BatchSize:         cfg.BatchSize,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
	}, chainClient, quotes, sink, ticks, broadcaster, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg.ListenAddr, watcher, broadcaster, logger)

	logger.Info("swapscope start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("v2_pool", cfg.V2Pool),
		zap.String("v3_pool", cfg.V3Pool),
		zap.Int("vwap_window", cfg.VWAPWindow),
		zap.Uint64("lookback_blocks", cfg.LookbackBlocks),
		zap.String("listen", cfg.ListenAddr),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	errCh := make(chan error, 2)
	go func() {
		errCh <- watcher.Run(ctx)
	}()
	go func() {
		errCh <- srv.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}

	if errors.Is(runErr, http.ErrServerClosed) || errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return runErr
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
