// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config is the full service configuration.
type Config struct {
	Server     Server
	Database   Database
	Redis      RedisConfig
	Kafka      Kafka
	Auth       Auth
	CHES       CHES
	Elicensing Elicensing
	BCCR       BCCR
	Compliance Compliance
	Scheduler  Scheduler
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `env:"BCIERS_ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"BCIERS_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"BCIERS_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout      time.Duration `env:"BCIERS_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout   time.Duration `env:"BCIERS_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// OpsToken protects /metrics when set.
	OpsToken string `env:"BCIERS_OPS_TOKEN"`
}

// Database configures the PostgreSQL pool.
type Database struct {
	URL             string        `env:"DATABASE_URL"`
	Schema          string        `env:"DATABASE_SCHEMA" envDefault:"erc"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout       time.Duration `env:"DATABASE_TX_TIMEOUT" envDefault:"10s"`
	// ApplyRoles disables SET LOCAL ROLE when false (local development without generated roles).
	ApplyRoles bool `env:"DATABASE_APPLY_ROLES" envDefault:"true"`
}

// RedisConfig configures the optional Redis cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	CacheTTL     time.Duration `env:"REDIS_CACHE_TTL" envDefault:"5m"`
}

// Kafka configures the audit outbox relay. No brokers disables publishing.
type Kafka struct {
	Brokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"bciers.audit"`
	ClientID   string   `env:"KAFKA_CLIENT_ID" envDefault:"bciers"`
	// CreateTopic creates the audit topic at startup when it is missing.
	CreateTopic bool  `env:"KAFKA_CREATE_TOPIC" envDefault:"true"`
	Partitions  int32 `env:"KAFKA_AUDIT_PARTITIONS" envDefault:"3"`
}

// Auth configures bearer token validation.
type Auth struct {
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer        string `env:"JWT_ISSUER" envDefault:"bciers"`
	Audience      string `env:"JWT_AUDIENCE" envDefault:"bciers-api"`
	// GUIDClaim names the claim holding the user GUID.
	GUIDClaim string `env:"JWT_GUID_CLAIM" envDefault:"user_guid"`
}

// CHES configures the Common Hosted Email Service client.
type CHES struct {
	BaseURL      string        `env:"CHES_API_URL"`
	TokenURL     string        `env:"CHES_TOKEN_URL"`
	ClientID     string        `env:"CHES_CLIENT_ID"`
	ClientSecret string        `env:"CHES_CLIENT_SECRET"`
	Sender       string        `env:"CHES_SENDER" envDefault:"ggirus@gov.bc.ca"`
	Timeout      time.Duration `env:"CHES_TIMEOUT" envDefault:"10s"`
	RatePerSec   float64       `env:"CHES_RATE_PER_SEC" envDefault:"5"`
}

// Elicensing configures the billing system client.
type Elicensing struct {
	BaseURL    string        `env:"ELICENSING_API_URL"`
	APIKey     string        `env:"ELICENSING_AUTH_TOKEN"`
	Timeout    time.Duration `env:"ELICENSING_TIMEOUT" envDefault:"10s"`
	RatePerSec float64       `env:"ELICENSING_RATE_PER_SEC" envDefault:"5"`
}

// BCCR configures the carbon registry client.
type BCCR struct {
	BaseURL      string        `env:"BCCR_API_URL"`
	TokenURL     string        `env:"BCCR_TOKEN_URL"`
	ClientID     string        `env:"BCCR_CLIENT_ID"`
	ClientSecret string        `env:"BCCR_CLIENT_SECRET"`
	Timeout      time.Duration `env:"BCCR_TIMEOUT" envDefault:"15s"`
	RatePerSec   float64       `env:"BCCR_RATE_PER_SEC" envDefault:"2"`
}

// Compliance holds the regulatory constants. Charge rates are keyed by
// reporting year, e.g. "2024:80.00,2025:95.00".
type Compliance struct {
	ChargeRates      map[int]string `env:"COMPLIANCE_CHARGE_RATES" envDefault:"2024:80.00,2025:95.00,2026:110.00,2027:125.00"`
	DailyPenaltyRate string         `env:"COMPLIANCE_DAILY_PENALTY_RATE" envDefault:"0.0038"`
	CompoundingDays  int            `env:"COMPLIANCE_COMPOUNDING_DAYS" envDefault:"30"`
	MaxUnitShare     string         `env:"COMPLIANCE_MAX_UNIT_SHARE" envDefault:"0.5"`
}

// Scheduler sets periodic job intervals. Zero disables a job.
type Scheduler struct {
	RefreshObligations time.Duration `env:"SCHEDULE_REFRESH_OBLIGATIONS" envDefault:"1h"`
	RelayAuditOutbox   time.Duration `env:"SCHEDULE_RELAY_AUDIT_OUTBOX" envDefault:"15s"`
	RefreshEmailStatus time.Duration `env:"SCHEDULE_REFRESH_EMAIL_STATUS" envDefault:"10m"`
	Workers            int           `env:"TASK_WORKERS" envDefault:"4"`
	QueueSize          int           `env:"TASK_QUEUE_SIZE" envDefault:"256"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates cross-field constraints.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Compliance.Rates(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Rates parses the configured charge rates into decimals.
func (c Compliance) Rates() (map[int]decimal.Decimal, error) {
	out := make(map[int]decimal.Decimal, len(c.ChargeRates))
	for year, raw := range c.ChargeRates {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("charge rate for %d: %w", year, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("charge rate for %d is negative", year)
		}
		out[year] = d
	}
	return out, nil
}
