package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	MetricsPort    int  `mapstructure:"metrics_port"`
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

type ChainConfig struct {
	RPCEndpoint        string        `mapstructure:"rpc_endpoint"`
	ChainID            int64         `mapstructure:"chain_id"`
	StartBlock         uint64        `mapstructure:"start_block"`
	BlockBatchSize     uint64        `mapstructure:"block_batch_size"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MaxConcurrentCalls int64         `mapstructure:"max_concurrent_calls"`
	Confirmations      uint64        `mapstructure:"confirmations"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type ProcessorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Manifest     string        `mapstructure:"manifest"`
	ArchiveLogs  bool          `mapstructure:"archive_logs"`
}

// RedisConfig configures the token metadata cache.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

// RealtimeConfig configures the Centrifugo publisher.
type RealtimeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("chain.rpc_endpoint", "http://localhost:8545")
	v.SetDefault("chain.chain_id", 0)
	v.SetDefault("chain.start_block", 0)
	v.SetDefault("chain.block_batch_size", 500)
	v.SetDefault("chain.request_timeout", "30s")
	v.SetDefault("chain.max_concurrent_calls", 8)
	v.SetDefault("chain.confirmations", 0)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "emiswap")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("processor.poll_interval", "3s")
	v.SetDefault("processor.manifest", "manifests/emiswap-kcc.yaml")
	v.SetDefault("processor.archive_logs", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.metadata_ttl", "0s")

	v.SetDefault("realtime.enabled", false)
	v.SetDefault("realtime.api_url", "http://localhost:8000/api")
	v.SetDefault("realtime.api_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads configuration from configPath, if it exists, and INDEXER_*
// environment variables. Nested keys map to upper-case names with dots
// replaced by underscores, e.g. INDEXER_DATABASE_HOST.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("failed to read config: %w", err)
				}
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.Chain.RPCEndpoint == "" {
		return fmt.Errorf("chain.rpc_endpoint is required")
	}
	if c.Chain.BlockBatchSize == 0 {
		return fmt.Errorf("chain.block_batch_size must be positive")
	}
	if c.Processor.Manifest == "" {
		return fmt.Errorf("processor.manifest is required")
	}
	if c.Realtime.Enabled && c.Realtime.APIURL == "" {
		return fmt.Errorf("realtime.api_url is required when realtime is enabled")
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}
