package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "LEDGER"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	JournalStore = "store"
	JournalRedis = "redis"
	JournalTee   = "tee"
)

type Config struct {
	Server     ServerConfig   `mapstructure:"server"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Database   DatabaseConfig `mapstructure:"database"`
	Journal    JournalConfig  `mapstructure:"journal"`
	Sequence   SequenceConfig `mapstructure:"sequence"`
	Retry      RetryConfig    `mapstructure:"retry"`
	Log        LogConfig      `mapstructure:"log"`
	ConfigPath string         `mapstructure:"-"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// JournalConfig selects where failures are journaled. MaxConns sizes the
// PostgreSQL pool reserved for journal writes; it is separate from the
// business pool so a journal write never waits behind open units of work.
type JournalConfig struct {
	Driver       string        `mapstructure:"driver"`
	MaxConns     int           `mapstructure:"max_conns"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Redis        RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

type SequenceConfig struct {
	AccountBase     int64 `mapstructure:"account_base"`
	TransactionBase int64 `mapstructure:"transaction_base"`
	ErrorLogBase    int64 `mapstructure:"error_log_base"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("storage.driver", StorageMemory)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("journal.driver", JournalStore)
	v.SetDefault("journal.max_conns", 2)
	v.SetDefault("journal.write_timeout", 5*time.Second)
	v.SetDefault("journal.redis.addr", "localhost:6379")
	v.SetDefault("journal.redis.password", "")
	v.SetDefault("journal.redis.db", 0)
	v.SetDefault("journal.redis.stream", "ledger:error_logs")

	v.SetDefault("sequence.account_base", 1001)
	v.SetDefault("sequence.transaction_base", 5001)
	v.SetDefault("sequence.error_log_base", 1)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", 10*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the optional config file at path, then LEDGER_* environment
// variables (LEDGER_DATABASE_HOST overrides database.host).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if !stderrors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Journal.Driver {
	case JournalStore, JournalRedis, JournalTee:
	default:
		return fmt.Errorf("unknown journal.driver %q", c.Journal.Driver)
	}

	if c.Storage.Driver == StoragePostgres && c.Journal.Driver != JournalRedis && c.Journal.MaxConns < 1 {
		return fmt.Errorf("journal.max_conns must be at least 1")
	}

	if c.Sequence.AccountBase < 1 || c.Sequence.TransactionBase < 1 || c.Sequence.ErrorLogBase < 1 {
		return fmt.Errorf("sequence bases must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}

// GetDBConnectionString returns the lib/pq connection string.
func (c *Config) GetDBConnectionString() string {
	return c.Database.ConnectionString()
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
