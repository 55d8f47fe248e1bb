package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, "/tmp/connect_app.sqlite", cfg.Database.Path)
	require.True(t, cfg.Database.AutoMigrate)
	require.Equal(t, 8080, cfg.ServerPort)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.False(t, cfg.Auth.RequireToken)
	require.Equal(t, "none", cfg.MQ.Backend)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("JWT_SECRET", "  s3cret  ")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("AUTH_REQUIRE_TOKEN", "true")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.Equal(t, 6543, cfg.Database.Port)
	require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	require.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	require.True(t, cfg.Auth.RequireToken)
	require.Equal(t, 4, cfg.Auth.BcryptCost)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server_port: 9090
database:
  path: /var/lib/connectapp.sqlite
auth:
  token_ttl: 2h
mq:
  backend: redis
  redis:
    addr: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "9191")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.ServerPort)
	require.Equal(t, "/var/lib/connectapp.sqlite", cfg.Database.Path)
	require.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, "redis", cfg.MQ.Backend)
	require.Equal(t, "redis:6379", cfg.MQ.Redis.Addr)
	require.Equal(t, "connectapp.events", cfg.MQ.Channel)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty sqlite path", func(c *Config) { c.Database.Path = " " }},
		{"token required without secret", func(c *Config) { c.Auth.RequireToken = true }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, Defaults().Validate())
}
