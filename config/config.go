package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the service.
type Config struct {
	Server          ServerConfig   `mapstructure:"server"`
	Database        DatabaseConfig `mapstructure:"database"`
	JWT             JWTConfig      `mapstructure:"jwt"`
	Sweep           SweepConfig    `mapstructure:"sweep"`
	Redis           RedisConfig    `mapstructure:"redis"`
	Guard           GuardConfig    `mapstructure:"guard"`
	Log             LogConfig      `mapstructure:"log"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// DatabaseConfig selects and configures the task and user store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

// JWTConfig configures token issuance.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// SweepConfig configures the background expiry pass.
type SweepConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RedisConfig configures the optional Redis backend. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GuardConfig configures the per-action cooldown.
type GuardConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// LogConfig configures framework logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var (
	ErrUnknownDriver   = errors.New("database.driver must be sqlite or postgres")
	ErrMissingDSN      = errors.New("database.dsn is required for postgres")
	ErrMissingPath     = errors.New("database.path is required for sqlite")
	ErrMissingSecret   = errors.New("jwt.secret must not be empty")
	ErrInvalidInterval = errors.New("sweep.interval must be positive")
	ErrInvalidTimeout  = errors.New("sweep.timeout must be positive")
	ErrInvalidCooldown = errors.New("guard.cooldown must not be negative")
	ErrInvalidPort     = errors.New("server.port must be between 1 and 65535")
	ErrInvalidLogLevel = errors.New("log.level must be info or error")
)

// legacyEnv maps config keys to the plain environment names used by older
// deployments. The prefixed name always wins.
var legacyEnv = map[string]string{
	"server.port":         "PORT",
	"server.cors_origins": "CORS_ALLOWED_ORIGINS",
	"database.path":       "DB_PATH",
	"database.dsn":        "DATABASE_URL",
	"database.debug":      "DB_DEBUG",
	"jwt.secret":          "JWT_SECRET_KEY",
	"jwt.issuer":          "JWT_ISSUER",
	"redis.addr":          "REDIS_ADDR",
	"redis.password":      "REDIS_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "taskflow.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.debug", false)
	v.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	v.SetDefault("jwt.issuer", "taskflow")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.interval", time.Hour)
	v.SetDefault("sweep.timeout", 30*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("guard.cooldown", time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("shutdown_timeout", 30*time.Second)
}

// Load builds the configuration from defaults, an optional YAML file at path
// and TASKFLOW_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "TASKFLOW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
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

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return ErrMissingPath
		}
	case "postgres":
		if c.Database.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return ErrUnknownDriver
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrMissingSecret
	}
	if c.Sweep.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.Sweep.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Guard.Cooldown < 0 {
		return ErrInvalidCooldown
	}
	if c.Log.Level != "info" && c.Log.Level != "error" {
		return ErrInvalidLogLevel
	}
	return nil
}
