package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	// school time zones must load on hosts without a zoneinfo database
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/pkg/messaging/redis"
)

// EnvPrefix prefixes every environment override, e.g. PORTAL_API_BASE_URL.
const EnvPrefix = "PORTAL"

type Config struct {
	Env        string           `mapstructure:"env" envconfig:"ENV"`
	Server     ServerConfig     `mapstructure:"server" envconfig:"SERVER"`
	API        APIConfig        `mapstructure:"api" envconfig:"API"`
	Session    SessionConfig    `mapstructure:"session" envconfig:"SESSION"`
	Redis      RedisConfig      `mapstructure:"redis" envconfig:"REDIS"`
	Log        LogConfig        `mapstructure:"log" envconfig:"LOG"`
	Paging     PagingConfig     `mapstructure:"paging" envconfig:"PAGING"`
	Medication MedicationConfig `mapstructure:"medication" envconfig:"MEDICATION"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" envconfig:"RATELIMIT"`
	CORS       CORSConfig       `mapstructure:"cors" envconfig:"CORS"`
	Worker     WorkerConfig     `mapstructure:"worker" envconfig:"WORKER"`
	SMTP       SMTPConfig       `mapstructure:"smtp" envconfig:"SMTP"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"PORT"`
	Mode            string        `mapstructure:"mode" envconfig:"MODE"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// APIConfig points at the school health REST API.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" envconfig:"BASE_URL"`
	Timeout   time.Duration `mapstructure:"timeout" envconfig:"TIMEOUT"`
	RateLimit float64       `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Burst     int           `mapstructure:"burst" envconfig:"BURST"`
}

type SessionConfig struct {
	// Store is "memory" or "redis".
	Store      string        `mapstructure:"store" envconfig:"STORE"`
	CookieName string        `mapstructure:"cookie_name" envconfig:"COOKIE_NAME"`
	TTL        time.Duration `mapstructure:"ttl" envconfig:"TTL"`
	Secret     string        `mapstructure:"secret" envconfig:"SECRET"`
	Secure     bool          `mapstructure:"secure" envconfig:"SECURE"`
	KeyPrefix  string        `mapstructure:"key_prefix" envconfig:"KEY_PREFIX"`
	// JWTSecret verifies bearer signatures when set; otherwise claims are read unverified.
	JWTSecret string `mapstructure:"jwt_secret" envconfig:"JWT_SECRET"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"URL"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"MAX_RETRIES"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"RETRY_BACKOFF"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"POOL_SIZE"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"MIN_IDLE_CONNS"`
}

type LogConfig struct {
	Level   string `mapstructure:"level" envconfig:"LEVEL"`
	Console bool   `mapstructure:"console" envconfig:"CONSOLE"`
}

type PagingConfig struct {
	PageSize       int           `mapstructure:"page_size" envconfig:"PAGE_SIZE"`
	SearchDebounce time.Duration `mapstructure:"search_debounce" envconfig:"SEARCH_DEBOUNCE"`
}

type MedicationConfig struct {
	// PeriodHours is keyed by morning, noon, afternoon and evening.
	PeriodHours map[string]model.PeriodRange `mapstructure:"period_hours" ignored:"true"`
	// CloseDelay is how long the administration dialog stays open after a success.
	CloseDelay time.Duration `mapstructure:"close_delay" envconfig:"CLOSE_DELAY"`
	// Timezone is the IANA zone of the school. Period hours, "today" and
	// zone-less upstream timestamps are read in it.
	Timezone string `mapstructure:"timezone" envconfig:"TIMEZONE"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"ENABLED"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	Burst             int     `mapstructure:"burst" envconfig:"BURST"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

type WorkerConfig struct {
	APIToken      string        `mapstructure:"api_token" envconfig:"API_TOKEN"`
	PollInterval  time.Duration `mapstructure:"poll_interval" envconfig:"POLL_INTERVAL"`
	DedupeWindow  time.Duration `mapstructure:"dedupe_window" envconfig:"DEDUPE_WINDOW"`
	Channel       string        `mapstructure:"channel" envconfig:"CHANNEL"`
	AlertEmail    string        `mapstructure:"alert_email" envconfig:"ALERT_EMAIL"`
	HealthPort    int           `mapstructure:"health_port" envconfig:"HEALTH_PORT"`
	PageSize      int           `mapstructure:"page_size" envconfig:"PAGE_SIZE"`
	RetryAttempts int           `mapstructure:"retry_attempts" envconfig:"RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" envconfig:"RETRY_DELAY"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"HOST"`
	Port     int    `mapstructure:"port" envconfig:"PORT"`
	Username string `mapstructure:"username" envconfig:"USERNAME"`
	Password string `mapstructure:"password" envconfig:"PASSWORD"`
	From     string `mapstructure:"from" envconfig:"FROM"`
}

var periodKeys = map[string]model.Period{
	"morning":   model.PeriodMorning,
	"noon":      model.PeriodNoon,
	"afternoon": model.PeriodAfternoon,
	"evening":   model.PeriodEvening,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "6m")
	v.SetDefault("server.request_timeout", "5m30s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout", "5m")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.burst", 10)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.cookie_name", "smp_session")
	v.SetDefault("session.ttl", "8h")
	v.SetDefault("session.key_prefix", "smp:session:")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", "100ms")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("log.level", "info")

	v.SetDefault("paging.page_size", model.DefaultPageSize)
	v.SetDefault("paging.search_debounce", "800ms")

	defaults := model.DefaultPeriodRanges()
	for key, p := range periodKeys {
		v.SetDefault("medication.period_hours."+key+".start", defaults[p].Start)
		v.SetDefault("medication.period_hours."+key+".end", defaults[p].End)
	}
	v.SetDefault("medication.close_delay", "1500ms")
	v.SetDefault("medication.timezone", "Asia/Ho_Chi_Minh")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("worker.poll_interval", "15m")
	v.SetDefault("worker.dedupe_window", "24h")
	v.SetDefault("worker.channel", "medication.alerts")
	v.SetDefault("worker.health_port", 8081)
	v.SetDefault("worker.page_size", 100)
	v.SetDefault("worker.retry_attempts", 3)
	v.SetDefault("worker.retry_delay", "2s")

	v.SetDefault("smtp.port", 587)
}

// Load reads config.yaml (or the file at path) over the defaults, then
// applies PORTAL_* environment overrides. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.Secret == "" {
			return fmt.Errorf("session.secret is required for the redis session store")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if _, err := c.Medication.Periods(); err != nil {
		return err
	}
	if _, err := c.Medication.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Periods converts the configured hour windows into model ranges.
func (m MedicationConfig) Periods() (model.PeriodRanges, error) {
	ranges := model.DefaultPeriodRanges()
	for key, pr := range m.PeriodHours {
		p, ok := periodKeys[strings.ToLower(key)]
		if !ok {
			return nil, fmt.Errorf("unknown period %q in medication.period_hours", key)
		}
		ranges[p] = pr
	}
	if err := ranges.Validate(); err != nil {
		return nil, fmt.Errorf("medication.period_hours: %w", err)
	}
	return ranges, nil
}

// Location loads the configured time zone. An empty value means the process zone.
func (m MedicationConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(m.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(m.Timezone))
	if err != nil {
		return nil, fmt.Errorf("medication.timezone: %w", err)
	}
	return loc, nil
}

func (r RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          r.URL,
		MaxRetries:   r.MaxRetries,
		RetryBackoff: r.RetryBackoff,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,
	}
}
