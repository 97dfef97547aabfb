package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Finnhub  FinnhubConfig  `mapstructure:"finnhub"`
	Pairs    []PairMapping  `mapstructure:"pairs"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PairMapping binds an internal pair symbol to the upstream Finnhub symbol
// subscribed for it (e.g. "ETH/USDT" -> "BINANCE:ETHUSDT").
type PairMapping struct {
	Pair   string `mapstructure:"pair"`
	Symbol string `mapstructure:"symbol"`
}

type FinnhubConfig struct {
	WSURL         string        `mapstructure:"ws_url"`
	Token         string        `mapstructure:"token"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReconnectBase time.Duration `mapstructure:"reconnect_base"`
	ReconnectMax  time.Duration `mapstructure:"reconnect_max"`
	AuthRetry     time.Duration `mapstructure:"auth_retry"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	QueueSize int    `mapstructure:"queue_size"` // per-subscriber outbound queue capacity
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	// Support environment variables with dot notation (e.g., FINNHUB_TOKEN)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("finnhub.ws_url", "wss://ws.finnhub.io")
	v.SetDefault("finnhub.dial_timeout", 10*time.Second)
	v.SetDefault("finnhub.reconnect_base", time.Second)
	v.SetDefault("finnhub.reconnect_max", 30*time.Second)
	v.SetDefault("finnhub.auth_retry", time.Minute)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.queue_size", 100)
}

// TrackedPairs returns the configured internal pair symbols.
func (c *Config) TrackedPairs() []string {
	pairs := make([]string, 0, len(c.Pairs))
	for _, m := range c.Pairs {
		pairs = append(pairs, m.Pair)
	}
	return pairs
}

// SymbolMap returns the Finnhub symbol -> internal pair mapping used to
// translate incoming trade messages.
func (c *Config) SymbolMap() map[string]string {
	m := make(map[string]string, len(c.Pairs))
	for _, p := range c.Pairs {
		m[p.Symbol] = p.Pair
	}
	return m
}
