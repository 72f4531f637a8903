package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"paca-stakes/internal/logging"
	"paca-stakes/internal/network"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig          `mapstructure:"app"`
	Logging     logging.Config     `mapstructure:"logging"`
	Networks    []network.Override `mapstructure:"networks"`
	RPC         RPCConfig          `mapstructure:"rpc"`
	Polling     PollingConfig      `mapstructure:"polling"`
	AddressBook AddressBookConfig  `mapstructure:"addressbook"`
	Database    DatabaseConfig     `mapstructure:"database"`
	Alerting    AlertingConfig     `mapstructure:"alerting"`
	Server      ServerConfig       `mapstructure:"server"`
	Calculator  CalculatorConfig   `mapstructure:"calculator"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// RPCConfig covers on-chain data access.
type RPCConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	Burst          int           `mapstructure:"burst"`
	PoolRateTTL    time.Duration `mapstructure:"pool_rate_ttl"`
	LogFromBlock   uint64        `mapstructure:"log_from_block"`
}

// PollingConfig governs refresh cadence.
type PollingConfig struct {
	RewardsInterval time.Duration `mapstructure:"rewards_interval"`
	FullEvery       int           `mapstructure:"full_every"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AddressBookConfig locates the local address book.
type AddressBookConfig struct {
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN keeps the
// bolt file backend.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// AlertingConfig defines reward alert thresholds and routing.
type AlertingConfig struct {
	Enabled         bool           `mapstructure:"enabled"`
	RewardThreshold float64        `mapstructure:"reward_threshold"`
	Cooldown        time.Duration  `mapstructure:"cooldown"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
}

// Threshold returns the reward threshold as a decimal.
func (a AlertingConfig) Threshold() decimal.Decimal {
	return decimal.NewFromFloat(a.RewardThreshold)
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// CalculatorConfig sets calculator defaults.
type CalculatorConfig struct {
	DailyRate float64 `mapstructure:"daily_rate"`
	Days      int     `mapstructure:"days"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PACASTAKES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pacastakes")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("rpc.request_timeout", "10s")
	v.SetDefault("rpc.rate_limit", 10.0)
	v.SetDefault("rpc.burst", 5)
	v.SetDefault("rpc.pool_rate_ttl", "5m")
	v.SetDefault("rpc.log_from_block", 0)

	v.SetDefault("polling.rewards_interval", "60s")
	v.SetDefault("polling.full_every", 5)
	v.SetDefault("polling.startup_delay", "0s")

	v.SetDefault("addressbook.path", "pacastakes.db")
	v.SetDefault("addressbook.max_entries", 10)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.advisory_lock_key", int64(0x70616361))

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.reward_threshold", 25.0)
	v.SetDefault("alerting.cooldown", "6h")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("calculator.daily_rate", 0.33)
	v.SetDefault("calculator.days", 250)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if _, err := network.NewRegistry(c.Networks); err != nil {
		return fmt.Errorf("networks: %w", err)
	}
	if c.RPC.RequestTimeout <= 0 {
		return fmt.Errorf("rpc.request_timeout must be greater than zero")
	}
	if c.RPC.RateLimit < 0 {
		return fmt.Errorf("rpc.rate_limit cannot be negative")
	}
	if c.Polling.RewardsInterval <= 0 {
		return fmt.Errorf("polling.rewards_interval must be greater than zero")
	}
	if c.Polling.FullEvery < 1 {
		return fmt.Errorf("polling.full_every must be at least 1")
	}
	if c.AddressBook.MaxEntries < 1 {
		return fmt.Errorf("addressbook.max_entries must be at least 1")
	}
	if c.Database.DSN == "" && c.AddressBook.Path == "" {
		return fmt.Errorf("addressbook.path is required when database.dsn is empty")
	}
	if c.Alerting.RewardThreshold < 0 {
		return fmt.Errorf("alerting.reward_threshold cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if c.Calculator.Days < 0 || c.Calculator.DailyRate < 0 {
		return fmt.Errorf("calculator defaults cannot be negative")
	}
	return nil
}

// NetworkRegistry builds the chain registry from the configured overrides.
func (c *Config) NetworkRegistry() (*network.Registry, error) {
	return network.NewRegistry(c.Networks)
}
