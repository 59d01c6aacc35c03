package utils

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL           string
	WSURL            string
	ProgramID        solana.PublicKey
	AmmConfigIndex   uint16
	SlippageBps      uint16
	MaxArrays        int
	TicksPerArray    int64
	BitmapOffset     int64
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	BitmapExtension  bool
	WrapSol          bool
	LogLevel         string
}

// Load merges defaults, config file, environment variables and flags into Config.
// Environment variables use the CLMM_ prefix; SOLANA_RPC_URL and SOLANA_WS_RPC_URL
// are honoured as fallbacks for the endpoints.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("rpc-url", "CLMM_RPC_URL", "SOLANA_RPC_URL"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("ws-url", "CLMM_WS_URL", "SOLANA_WS_RPC_URL"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	v.SetDefault("rpc-url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("ws-url", "")
	v.SetDefault("program-id", raydium.RAYDIUM_CLMM_PROGRAM_ID.String())
	v.SetDefault("amm-config-index", 0)
	v.SetDefault("slippage-bps", 50)
	v.SetDefault("max-arrays", 5)
	v.SetDefault("ticks-per-array", raydium.TICK_ARRAY_SIZE)
	v.SetDefault("bitmap-offset", raydium.TICK_ARRAY_BITMAP_SIZE)
	v.SetDefault("compute-unit-limit", 0)
	v.SetDefault("compute-unit-price", 0)
	v.SetDefault("bitmap-extension", false)
	v.SetDefault("wrap-sol", false)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	programID, err := solana.PublicKeyFromBase58(v.GetString("program-id"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid program-id: %w", err)
	}

	cfg := Config{
		RPCURL:           v.GetString("rpc-url"),
		WSURL:            v.GetString("ws-url"),
		ProgramID:        programID,
		AmmConfigIndex:   v.GetUint16("amm-config-index"),
		SlippageBps:      v.GetUint16("slippage-bps"),
		MaxArrays:        v.GetInt("max-arrays"),
		TicksPerArray:    v.GetInt64("ticks-per-array"),
		BitmapOffset:     v.GetInt64("bitmap-offset"),
		ComputeUnitLimit: v.GetUint32("compute-unit-limit"),
		ComputeUnitPrice: v.GetUint64("compute-unit-price"),
		BitmapExtension:  v.GetBool("bitmap-extension"),
		WrapSol:          v.GetBool("wrap-sol"),
		LogLevel:         v.GetString("log-level"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc-url is required")
	}
	if c.SlippageBps >= 10000 {
		return fmt.Errorf("slippage-bps must be below 10000, got %d", c.SlippageBps)
	}
	if c.MaxArrays < 0 {
		return fmt.Errorf("max-arrays must not be negative, got %d", c.MaxArrays)
	}
	if c.TicksPerArray <= 0 {
		return fmt.Errorf("ticks-per-array must be positive, got %d", c.TicksPerArray)
	}
	return nil
}
