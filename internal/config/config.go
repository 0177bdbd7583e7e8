package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Game     GameConfig     `mapstructure:"game"`
	Autosave AutosaveConfig `mapstructure:"autosave"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output lists zap sink URLs or file paths; empty keeps the encoder default.
	Output []string `mapstructure:"output"`
}

// CatalogConfig points at a deck directory or a single catalog file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	File     FileConfig     `mapstructure:"file"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	S3       S3Config       `mapstructure:"s3"`
}

type FileConfig struct {
	Directory string `mapstructure:"directory"`
}

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	Table    string `mapstructure:"table"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Prefix          string `mapstructure:"prefix"`
}

// GameConfig holds the defaults applied to start requests that leave a field
// unset.
type GameConfig struct {
	NumberOfSurvivors            int     `mapstructure:"number_of_survivors"`
	TokenProportion              float64 `mapstructure:"token_proportion"`
	NumberOfInitialSurvivorTurns int     `mapstructure:"number_of_initial_survivor_turns"`
	DistributionMode             string  `mapstructure:"distribution_mode"`
	ShuffleBiasFactor            float64 `mapstructure:"shuffle_bias_factor"`
	// Seed fixes the random source of every session when non-zero.
	Seed int64 `mapstructure:"seed"`
}

type AutosaveConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_buffer_size", 1024)
	v.SetDefault("server.write_buffer_size", 1024)
	v.SetDefault("server.max_message_size", 512*1024)
	v.SetDefault("server.ping_interval", 54*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("catalog.path", "decks")

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.file.directory", "saves")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.postgres.table", "save_slots")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "auto")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.prefix", "saves/")

	v.SetDefault("game.number_of_survivors", 1)
	v.SetDefault("game.token_proportion", 0.6)
	v.SetDefault("game.number_of_initial_survivor_turns", 3)
	v.SetDefault("game.distribution_mode", "geometric_boosted")
	v.SetDefault("game.shuffle_bias_factor", 0.0)
	v.SetDefault("game.seed", 0)

	v.SetDefault("autosave.enabled", false)
	v.SetDefault("autosave.interval", time.Minute)
}

// Load reads the YAML file at path on top of the defaults. A missing file
// is not an error. Every key can be overridden from the environment with the
// HORDE_ prefix, e.g. HORDE_STORAGE_DRIVER.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HORDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.File.Directory == "" {
			return fmt.Errorf("storage.file.directory is required for the file driver")
		}
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres driver")
		}
	case DriverS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Autosave.Enabled && c.Autosave.Interval <= 0 {
		return fmt.Errorf("autosave.interval must be positive, got %s", c.Autosave.Interval)
	}
	if c.Game.TokenProportion < 0 || c.Game.TokenProportion > 1 {
		return fmt.Errorf("game.token_proportion must be between 0 and 1, got %v", c.Game.TokenProportion)
	}
	return nil
}
