// Package config loads runtime configuration from flags, environment
// variables, and an optional YAML file, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sharkspread/internal/domain"
)

// Mode selects the adapter transport.
type Mode string

const (
	ModeDirect  Mode = "direct"  // call venue APIs from this process
	ModeBackend Mode = "backend" // call a sharkspread gateway
	ModeHybrid  Mode = "hybrid"  // backend first, direct fallback
	ModeAuto    Mode = "auto"    // alias for hybrid
)

// IsValid checks if the mode is a valid value.
func (m Mode) IsValid() bool {
	switch m {
	case ModeDirect, ModeBackend, ModeHybrid, ModeAuto:
		return true
	}
	return false
}

// TokenSpec is one tracked token as declared in configuration.
type TokenSpec struct {
	Symbol      string `mapstructure:"symbol"`
	Chain       string `mapstructure:"chain"`
	Mint        string `mapstructure:"mint"`
	Address     string `mapstructure:"address"`
	PairAddress string `mapstructure:"pair_address"`
	Decimals    int    `mapstructure:"decimals"`
}

// Config holds every knob the binaries read. Zero values fall back to
// the defaults set in Load.
type Config struct {
	// Server
	HTTPAddr     string        `mapstructure:"http_addr"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	ProxyRPS     int           `mapstructure:"proxy_rps"`
	ProxyBurst   int           `mapstructure:"proxy_burst"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Adapter
	Mode       Mode   `mapstructure:"mode"`
	BackendURL string `mapstructure:"backend_url"`

	// Prober
	WSURL          string        `mapstructure:"ws_url"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`
	ProbeHandshake time.Duration `mapstructure:"probe_handshake"`

	// Collector
	PollInterval time.Duration `mapstructure:"poll_interval"`
	HistoryKeep  time.Duration `mapstructure:"history_keep"`

	// Venues
	MEXCBaseURL      string `mapstructure:"mexc_base_url"`
	MEXCWSURL        string `mapstructure:"mexc_ws_url"`
	MEXCKeyedBaseURL string `mapstructure:"mexc_keyed_base_url"`
	MEXCAPIKey       string `mapstructure:"mexc_api_key"`
	JupiterBaseURL   string `mapstructure:"jupiter_base_url"`
	DexScreenerURL   string `mapstructure:"dexscreener_base_url"`
	BSCRPCURL        string `mapstructure:"bsc_rpc_url"`
	VenueRPS         int    `mapstructure:"venue_rps"`

	// Storage (empty DSN disables the backend, memory is used instead)
	PostgresDSN   string        `mapstructure:"postgres_dsn"`
	ClickHouseDSN string        `mapstructure:"clickhouse_dsn"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	// Kafka (empty broker list disables publishing)
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	// Tokens
	Tokens []TokenSpec `mapstructure:"tokens"`

	LogLevel string `mapstructure:"log_level"`
}

// Load merges .env, environment variables, optional config file, and
// bound flags into a Config. Flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Best effort: a missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SHARKSPREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
		v.SetConfigName("sharkspread")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("proxy_rps", 10)
	v.SetDefault("proxy_burst", 20)
	v.SetDefault("read_timeout", 15*time.Second)
	v.SetDefault("write_timeout", 35*time.Second)
	v.SetDefault("idle_timeout", 60*time.Second)

	v.SetDefault("mode", string(ModeDirect))

	v.SetDefault("probe_interval", 30*time.Second)
	v.SetDefault("probe_handshake", 10*time.Second)

	v.SetDefault("poll_interval", 10*time.Second)
	v.SetDefault("history_keep", 7*24*time.Hour)

	v.SetDefault("mexc_base_url", "https://api.mexc.com")
	v.SetDefault("mexc_ws_url", "wss://wbs.mexc.com/ws")
	v.SetDefault("mexc_keyed_base_url", "https://api.mexc.com")
	v.SetDefault("jupiter_base_url", "https://api.jup.ag")
	v.SetDefault("dexscreener_base_url", "https://api.dexscreener.com")
	v.SetDefault("venue_rps", 5)

	v.SetDefault("cache_ttl", 60*time.Second)
	v.SetDefault("kafka_topic", "sharkspread.points")

	v.SetDefault("log_level", "info")
}

// Validate rejects configurations no component could run with.
func (c *Config) Validate() error {
	if !c.Mode.IsValid() {
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	if (c.Mode == ModeBackend || c.Mode == ModeHybrid || c.Mode == ModeAuto) && c.BackendURL == "" {
		return fmt.Errorf("mode %q requires backend_url", c.Mode)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	for _, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("token with empty symbol")
		}
		if !domain.Chain(t.Chain).IsValid() {
			return fmt.Errorf("token %s: unknown chain %q", t.Symbol, t.Chain)
		}
	}
	return nil
}

// DomainTokens converts the configured token specs into domain tokens.
func (c *Config) DomainTokens() []domain.Token {
	out := make([]domain.Token, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		out = append(out, domain.Token{
			Symbol:      strings.ToUpper(t.Symbol),
			MEXCSymbol:  strings.ToUpper(t.Symbol) + "USDT",
			Chain:       domain.Chain(t.Chain),
			Mint:        t.Mint,
			Address:     t.Address,
			PairAddress: t.PairAddress,
			Decimals:    t.Decimals,
			Enabled:     true,
		})
	}
	return out
}

// splitList expands comma-joined entries viper leaves intact when the
// value came from a single environment variable.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
