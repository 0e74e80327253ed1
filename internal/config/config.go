package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunConfig holds settings for the run command, merged from config file,
// environment (SWAPSCOPE_*), and flags.
type RunConfig struct {
	RPCURL            string
	V2Pool            string
	V3Pool            string
	VWAPWindow        int
	SeriesSize        int
	LookbackBlocks    uint64
	PollInterval      time.Duration
	SpotInterval      time.Duration
	DeviationWarnPct  float64
	ExchangeURL       string
	ExchangeSymbol    string
	ExchangeTimeout   time.Duration
	ListenAddr        string
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// LoadRun merges config file, environment variables, and flags.
func LoadRun(cfgFile string, flags *pflag.FlagSet) (RunConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return RunConfig{}, err
	}

	v.SetDefault("v2-pool", "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852")
	v.SetDefault("v3-pool", "0x11b815efB8f581194ae79006d24E0d814B7697F6")
	v.SetDefault("vwap-window", 30)
	v.SetDefault("series-size", 600)
	v.SetDefault("lookback-blocks", uint64(50))
	v.SetDefault("poll-interval", 2*time.Second)
	v.SetDefault("spot-interval", 10*time.Second)
	v.SetDefault("deviation-warn-pct", 1.0)
	v.SetDefault("exchange-url", "https://api.binance.com")
	v.SetDefault("exchange-symbol", "ETHUSDT")
	v.SetDefault("exchange-timeout", 5*time.Second)
	v.SetDefault("listen", ":8080")
	v.SetDefault("out", "./data/trades.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	cfg := RunConfig{
		RPCURL:            v.GetString("rpc"),
		V2Pool:            v.GetString("v2-pool"),
		V3Pool:            v.GetString("v3-pool"),
		VWAPWindow:        v.GetInt("vwap-window"),
		SeriesSize:        v.GetInt("series-size"),
		LookbackBlocks:    v.GetUint64("lookback-blocks"),
		PollInterval:      v.GetDuration("poll-interval"),
		SpotInterval:      v.GetDuration("spot-interval"),
		DeviationWarnPct:  v.GetFloat64("deviation-warn-pct"),
		ExchangeURL:       v.GetString("exchange-url"),
		ExchangeSymbol:    v.GetString("exchange-symbol"),
		ExchangeTimeout:   v.GetDuration("exchange-timeout"),
		ListenAddr:        v.GetString("listen"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		BatchSize:         v.GetUint64("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// ReplayConfig holds settings for the replay command.
type ReplayConfig struct {
	In         string
	VWAPWindow int
	LogLevel   string
}

// LoadReplay merges config file, environment variables, and flags.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ReplayConfig{}, err
	}

	v.SetDefault("vwap-window", 30)
	v.SetDefault("log-level", "info")

	cfg := ReplayConfig{
		In:         v.GetString("in"),
		VWAPWindow: v.GetInt("vwap-window"),
		LogLevel:   v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
