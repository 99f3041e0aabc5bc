package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "taskflow.db", cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.True(t, cfg.Sweep.Enabled)
	assert.Equal(t, time.Second, cfg.Guard.Cooldown)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskflow.yaml")
	content := `
server:
  port: 8080
database:
  path: /tmp/tasks.db
sweep:
  interval: 15m
guard:
  cooldown: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TASKFLOW_JWT_SECRET", "from-env")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TASKFLOW_SWEEP_INTERVAL", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/tmp/tasks.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 2*time.Second, cfg.Guard.Cooldown)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_PrefixedEnvBeatsLegacy(t *testing.T) {
	t.Setenv("DB_PATH", "legacy.db")
	t.Setenv("TASKFLOW_DATABASE_PATH", "prefixed.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsZeroSweepTimeout(t *testing.T) {
	t.Setenv("TASKFLOW_SWEEP_TIMEOUT", "0s")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 3000},
			Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
			JWT:      JWTConfig{Secret: "s"},
			Sweep:    SweepConfig{Interval: time.Hour, Timeout: time.Second},
			Log:      LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"valid", func(c *Config) {}, nil},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, ErrUnknownDriver},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, ErrMissingDSN},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, ErrMissingPath},
		{"empty secret", func(c *Config) { c.JWT.Secret = " " }, ErrMissingSecret},
		{"zero interval", func(c *Config) { c.Sweep.Interval = 0 }, ErrInvalidInterval},
		{"zero sweep timeout", func(c *Config) { c.Sweep.Timeout = 0 }, ErrInvalidTimeout},
		{"negative cooldown", func(c *Config) { c.Guard.Cooldown = -time.Second }, ErrInvalidCooldown},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, ErrInvalidPort},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), tt.want)
		})
	}
}
