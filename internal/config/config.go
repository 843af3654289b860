package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/krobus00/bitstamp-client/internal/constant"
	"github.com/spf13/viper"
)

var (
	ServiceName    = "bitstamp-client"
	ServiceVersion = ""
)

var (
	Env *EnvConfig
)

const defaultLogLevel = "info"

type EnvConfig struct {
	Env                     string                    `mapstructure:"env"`
	Log                     LogConfig                 `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration             `mapstructure:"graceful_shutdown_timeout"`
	APIKeys                 []APIKeyConfig            `mapstructure:"api_keys"`
	Port                    map[string]string         `mapstructure:"port"`
	Exchanges               map[string]ExchangeConfig `mapstructure:"exchanges"`
	Database                map[string]DatabaseConfig `mapstructure:"database"`
	Redis                   map[string]RedisConfig    `mapstructure:"redis"`
	NatsJetstream           NatsJetstreamConfig       `mapstructure:"nats_jetstream"`
	MarketData              MarketDataConfig          `mapstructure:"market_data"`
	UserTransactionSync     UserTransactionSyncConfig `mapstructure:"user_transaction_sync"`
}

type APIKeyConfig struct {
	Name      string `mapstructure:"name"`
	Key       string `mapstructure:"key"`
	Active    bool   `mapstructure:"active"`
	ExpiredAt any    `mapstructure:"expired_at"`
}

type NatsJetstreamConfig struct {
	URL             string                   `mapstructure:"url"`
	MaxRetries      int                      `mapstructure:"max_retries"`
	ReconnectFactor float64                  `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration            `mapstructure:"min_jitter"`
	MaxJitter       time.Duration            `mapstructure:"max_jitter"`
	TimeoutHandler  map[string]time.Duration `mapstructure:"timeout_handler"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	MaxRetry        int           `mapstructure:"max_retry"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxActiveConns  int           `mapstructure:"max_active_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

// ExchangeConfig holds the credentials of a single exchange account.
// Secrets must never be logged.
type ExchangeConfig struct {
	Name       string        `mapstructure:"name"`
	APIKey     string        `mapstructure:"api_key"`
	APISecret  string        `mapstructure:"api_secret"`
	CustomerID string        `mapstructure:"customer_id"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

type MarketDataConfig struct {
	Pairs        []string      `mapstructure:"pairs"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type UserTransactionSyncConfig struct {
	Pairs    []string      `mapstructure:"pairs"`
	Interval time.Duration `mapstructure:"interval"`
	PageSize int           `mapstructure:"page_size"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// credential env vars that override exchanges.bitstamp.*
var bitstampEnvBindings = map[string]string{
	"exchanges.bitstamp.api_key":     "BITSTAMP_APIKEY",
	"exchanges.bitstamp.api_secret":  "BITSTAMP_APISECRET",
	"exchanges.bitstamp.customer_id": "BITSTAMP_CUSTOMERID",
}

func LoadConfig(configPath string) error {
	viper.Reset()

	configPath = strings.TrimSpace(configPath)
	configDir := "."
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		configDir = filepath.Dir(configPath)
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	err := loadDotEnv(filepath.Join(configDir, ".env"))
	if err != nil {
		return err
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	for key, envName := range bitstampEnvBindings {
		if err := viper.BindEnv(key, envName); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", envName, err)
		}
	}

	viper.SetDefault("env", constant.DevelopmentEnvironment)
	viper.SetDefault("log.log_level", defaultLogLevel)

	// without --config the file is optional and env vars alone are enough
	err = viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && (configPath != "" || !errors.As(err, &notFound)) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg EnvConfig
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	Env = &cfg

	return nil
}

// loadDotEnv loads the optional .env file. Variables already present in the
// process environment win.
func loadDotEnv(path string) error {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat env file: %w", err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	return nil
}
