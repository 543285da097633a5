package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/schoolmed/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "env: development\n"))
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute+30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.API.Timeout)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, "smp_session", cfg.Session.CookieName)
	assert.Equal(t, 8*time.Hour, cfg.Session.TTL)
	assert.Equal(t, model.DefaultPageSize, cfg.Paging.PageSize)
	assert.Equal(t, 800*time.Millisecond, cfg.Paging.SearchDebounce)
	assert.Equal(t, 1500*time.Millisecond, cfg.Medication.CloseDelay)
	assert.Equal(t, "medication.alerts", cfg.Worker.Channel)
	assert.Equal(t, 24*time.Hour, cfg.Worker.DedupeWindow)

	periods, err := cfg.Medication.Periods()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultPeriodRanges(), periods)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
env: production
api:
  base_url: https://api.school.vn/api
  timeout: 30s
medication:
  period_hours:
    morning:
      start: 7
      end: 10
session:
  store: redis
  secret: file-secret
cors:
  allowed_origins:
    - https://portal.school.vn
`)
	t.Setenv("PORTAL_API_BASE_URL", "https://staging.school.vn/api")
	t.Setenv("PORTAL_SESSION_TTL", "2h")
	t.Setenv("PORTAL_WORKER_API_TOKEN", "svc-token")
	t.Setenv("PORTAL_CORS_ALLOWED_ORIGINS", "https://a.vn,https://b.vn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "https://staging.school.vn/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, "svc-token", cfg.Worker.APIToken)
	assert.Equal(t, []string{"https://a.vn", "https://b.vn"}, cfg.CORS.AllowedOrigins)

	periods, err := cfg.Medication.Periods()
	require.NoError(t, err)
	assert.Equal(t, model.PeriodRange{Start: 7, End: 10}, periods[model.PeriodMorning])
	assert.Equal(t, model.PeriodRange{Start: 14, End: 18}, periods[model.PeriodAfternoon])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			API:     APIConfig{BaseURL: "http://localhost"},
			Session: SessionConfig{Store: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no base url", mutate: func(c *Config) { c.API.BaseURL = " " }, wantErr: "api.base_url is required"},
		{name: "redis without secret", mutate: func(c *Config) { c.Session.Store = "redis" }, wantErr: "session.secret is required"},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Store = "file" }, wantErr: `unknown session store "file"`},
		{name: "unknown period", mutate: func(c *Config) {
			c.Medication.PeriodHours = map[string]model.PeriodRange{"night": {Start: 22, End: 23}}
		}, wantErr: `unknown period "night"`},
		{name: "unknown timezone", mutate: func(c *Config) { c.Medication.Timezone = "Mars/Olympus" }, wantErr: "medication.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMedicationTimezone(t *testing.T) {
	cfg, err := Load(writeConfig(t, "env: development\n"))
	require.NoError(t, err)
	loc, err := cfg.Medication.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", loc.String())

	t.Setenv("PORTAL_MEDICATION_TIMEZONE", "Asia/Bangkok")
	cfg, err = Load(writeConfig(t, "env: development\n"))
	require.NoError(t, err)
	loc, err = cfg.Medication.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Bangkok", loc.String())

	loc, err = MedicationConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestToBrokerConfig(t *testing.T) {
	rc := RedisConfig{URL: "redis://r:6379/1", MaxRetries: 2, RetryBackoff: time.Second, PoolSize: 4, MinIdleConns: 1}
	bc := rc.ToBrokerConfig()
	assert.Equal(t, "redis://r:6379/1", bc.URL)
	assert.Equal(t, 2, bc.MaxRetries)
	assert.Equal(t, time.Second, bc.RetryBackoff)
	assert.Equal(t, 4, bc.PoolSize)
	assert.Equal(t, 1, bc.MinIdleConns)
}
