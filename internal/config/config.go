// Package config loads server configuration from defaults, an optional YAML
// file and QUANTDESK_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quantdesk/quant-backend/pkg/types"
)

// Config is the full application configuration.
type Config struct {
	Server   types.ServerConfig
	LogLevel string
	Backtest BacktestDefaults
	Quant    QuantConfig
}

// BacktestDefaults fill BacktestConfig fields the request leaves at zero.
type BacktestDefaults struct {
	InitialCapital float64
	PositionPct    float64
	MaxLeverage    float64
	StopLossPct    float64
	FeeRate        float64
	SlippageRate   float64
}

// QuantConfig configures the live signal generator.
type QuantConfig struct {
	MaxDrawdownPct float64
	BaseRiskPct    float64
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.websocketPath", "/ws")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.dataDir", "./data")
	v.SetDefault("logLevel", "info")

	v.SetDefault("backtest.initialCapital", 10000)
	v.SetDefault("backtest.positionPct", 5)
	v.SetDefault("backtest.maxLeverage", 10)
	v.SetDefault("backtest.stopLossPct", 2)
	v.SetDefault("backtest.feeRate", 0.0004)
	v.SetDefault("backtest.slippageRate", 0.0005)

	v.SetDefault("quant.maxDrawdownPct", 10)
	v.SetDefault("quant.baseRiskPct", 2)

	v.SetEnvPrefix("QUANTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: types.ServerConfig{
			Host:          v.GetString("server.host"),
			Port:          v.GetInt("server.port"),
			WebSocketPath: v.GetString("server.websocketPath"),
			ReadTimeout:   v.GetDuration("server.readTimeout"),
			WriteTimeout:  v.GetDuration("server.writeTimeout"),
			DataDir:       v.GetString("server.dataDir"),
		},
		LogLevel: v.GetString("logLevel"),
		Backtest: BacktestDefaults{
			InitialCapital: v.GetFloat64("backtest.initialCapital"),
			PositionPct:    v.GetFloat64("backtest.positionPct"),
			MaxLeverage:    v.GetFloat64("backtest.maxLeverage"),
			StopLossPct:    v.GetFloat64("backtest.stopLossPct"),
			FeeRate:        v.GetFloat64("backtest.feeRate"),
			SlippageRate:   v.GetFloat64("backtest.slippageRate"),
		},
		Quant: QuantConfig{
			MaxDrawdownPct: v.GetFloat64("quant.maxDrawdownPct"),
			BaseRiskPct:    v.GetFloat64("quant.baseRiskPct"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.Backtest.InitialCapital)
	}
	if c.Backtest.MaxLeverage < 1 {
		return fmt.Errorf("max leverage must be at least 1, got %v", c.Backtest.MaxLeverage)
	}
	return nil
}
