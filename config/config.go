package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// OKX endpoints
	OKXBaseURL string
	OKXWSURL   string
	WSEnabled  bool

	// Pipeline
	BarPeriod      string // e.g. "1H"
	CandleLimit    int
	RSVPeriod      int
	SeedStrategy   string
	ConcurrencyCap int
	RatePerSecond  int
	ComputeWorkers int

	// Universe
	InstrumentsCSV string // empty = discover live from OKX
	InstrumentType string // for live discovery, e.g. "SWAP"

	// Signals
	ConditionsFile string
	WebhookURL     string
	WebhookToken   string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	LogLevel      string

	// Scheduling: interval 0 = hourly aligned at OffsetSec past the hour
	ScheduleIntervalSec int
	ScheduleOffsetSec   int
	RunOnce             bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		OKXBaseURL: getEnv("OKX_BASE_URL", ""),
		OKXWSURL:   getEnv("OKX_WS_URL", ""),
		WSEnabled:  getEnv("OKX_WS_ENABLED", "") == "true",

		BarPeriod:      getEnv("BAR_PERIOD", "1H"),
		CandleLimit:    getEnvInt("CANDLE_LIMIT", 30),
		RSVPeriod:      getEnvInt("RSV_PERIOD", 9),
		SeedStrategy:   getEnv("SEED_STRATEGY", "classic"),
		ConcurrencyCap: getEnvInt("CONCURRENCY_CAP", 5),
		RatePerSecond:  getEnvInt("RATE_PER_SECOND", 5),
		ComputeWorkers: getEnvInt("COMPUTE_WORKERS", 0),

		InstrumentsCSV: getEnv("INSTRUMENTS_CSV", ""),
		InstrumentType: getEnv("INSTRUMENT_TYPE", "SWAP"),

		ConditionsFile: getEnv("CONDITIONS_FILE", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		WebhookToken:   getEnv("WEBHOOK_TOKEN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/kdj.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		ScheduleIntervalSec: getEnvInt("SCHEDULE_INTERVAL_SEC", 0),
		ScheduleOffsetSec:   getEnvInt("SCHEDULE_OFFSET_SEC", 30),
		RunOnce:             getEnv("RUN_ONCE", "") == "true",
	}
}

// Validate rejects configurations the pipeline cannot run with. An invalid
// configuration is the one fatal error class; everything downstream is
// recorded per instrument.
func (c *Config) Validate() error {
	if c.BarPeriod == "" {
		return fmt.Errorf("config: BAR_PERIOD must not be empty")
	}
	if c.CandleLimit < 1 {
		return fmt.Errorf("config: CANDLE_LIMIT must be >= 1, got %d", c.CandleLimit)
	}
	if c.RSVPeriod < 1 {
		return fmt.Errorf("config: RSV_PERIOD must be >= 1, got %d", c.RSVPeriod)
	}
	if c.ConcurrencyCap < 1 {
		return fmt.Errorf("config: CONCURRENCY_CAP must be >= 1, got %d", c.ConcurrencyCap)
	}
	if c.RatePerSecond < 1 {
		return fmt.Errorf("config: RATE_PER_SECOND must be >= 1, got %d", c.RatePerSecond)
	}
	if c.ScheduleIntervalSec < 0 || c.ScheduleOffsetSec < 0 {
		return fmt.Errorf("config: schedule values must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
