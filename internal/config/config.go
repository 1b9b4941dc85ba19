package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full service configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	StaticDir       string        `mapstructure:"static_dir" yaml:"static_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the driver and connection
type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver" yaml:"driver"` // sqlite3, sqlite or mysql
	Path           string        `mapstructure:"path" yaml:"path"`     // SQLite file
	DSN            string        `mapstructure:"dsn" yaml:"dsn"`       // MySQL DSN
	MaxOpenConns   int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnectRetries uint          `mapstructure:"connect_retries" yaml:"connect_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // json or console
}

// CacheConfig enables the Redis response cache
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
}

// AuthConfig guards the write endpoints. An empty secret disables auth.
//
// WARNING: Secret is sensitive and should not be logged.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// EnvPrefix namespaces environment overrides, e.g. CAMTRAP_DATABASE_DRIVER
const EnvPrefix = "CAMTRAP"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5005)
	v.SetDefault("server.static_dir", "web/static")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "data/image_info.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("database.retry_delay", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.prefix", "camtrap")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "camtrap")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
}

// New returns a viper instance with defaults and env bindings applied.
// When filePath is non-empty and exists it is read on top of the defaults.
func New(filePath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath == "" {
		return v, nil
	}

	v.SetConfigFile(filePath)
	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", filePath, err)
	}
	return v, nil
}

// Load reads the configuration from filePath, the environment and defaults
func Load(filePath string) (*Config, error) {
	v, err := New(filePath)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode unmarshals and validates the current viper state
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "mysql":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for mysql")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return errors.New("cache.addr is required when the cache is enabled")
	}
	return nil
}

// Watch calls fn with the re-decoded config each time the file changes.
// Decode failures are passed to onErr and the previous config stays in effect.
func Watch(v *viper.Viper, fn func(*Config), onErr func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Decode(v)
		if err != nil {
			onErr(err)
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
}
