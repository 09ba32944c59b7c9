package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMap(t *testing.T, vars map[string]string) (*Config, error) {
	t.Helper()
	return load(env.Options{Environment: vars})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "classroll", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "classroll.db", cfg.Database.SQLitePath)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Address())
	assert.False(t, cfg.Auth.Enabled())
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{
		"APP_TIMEZONE":        "Asia/Almaty",
		"DB_DRIVER":           "Postgres",
		"DATABASE_URL":        "postgres://u:p@localhost:5432/classroll",
		"REDIS_ENABLED":       "true",
		"HTTP_PORT":           "9000",
		"HTTP_CORS_ORIGINS":   "https://a.example,https://b.example",
		"ADMIN_PASSWORD_HASH": "$2a$10$abcdefghijklmnopqrstuv",
		"LOG_FORMAT":          "text",
	})
	require.NoError(t, err)

	assert.Equal(t, "Asia/Almaty", cfg.App.Location.String())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.True(t, cfg.Auth.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"bad driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER must be"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL is required"},
		{"bad port", map[string]string{"HTTP_PORT": "70000"}, "HTTP_PORT must be"},
		{"plain password", map[string]string{"ADMIN_PASSWORD_HASH": "secret"}, "must be a bcrypt hash"},
		{"production without auth", map[string]string{"APP_ENV": "production"}, "required in production"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"bad timezone", map[string]string{"APP_TIMEZONE": "Mars/Olympus"}, "APP_TIMEZONE"},
		{"not a number", map[string]string{"HTTP_PORT": "eighty"}, "parse env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMap(t, tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
