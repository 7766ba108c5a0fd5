package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/segyhp/movie-rental/pkg/utils"
)

// Store backends
const (
	BackendPostgres = "postgres"
	BackendPgx      = "pgx"
	BackendMySQL    = "mysql"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port     string
	GRPCPort string
	Host     string
	Env      string
}

type StoreConfig struct {
	Backend  string
	SeedFile string
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DataKey  string
	CacheTTL string
}

type SchedulerConfig struct {
	OverdueSpec    string
	ReminderSpec   string
	ReminderWindow string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type BusinessConfig struct {
	LoanPeriodDays     int
	LateFeePolicy      string
	LateFeeAmount      string
	RecentRentalsLimit int
}

type HealthConfig struct {
	Timeout string
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist
	_ = godotenv.Load()

	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("GRPC_PORT", "9090")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DATA_KEY", "movierental:dataset")
	v.SetDefault("CACHE_TTL", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOAN_PERIOD_DAYS", 7)
	v.SetDefault("LATE_FEE_POLICY", "per_day")
	v.SetDefault("LATE_FEE_AMOUNT", "1.00")
	v.SetDefault("RECENT_RENTALS_LIMIT", 5)
	v.SetDefault("SCHEDULER_OVERDUE_SPEC", "0 0 0 * * *")
	v.SetDefault("SCHEDULER_REMINDER_SPEC", "0 0 9 * * *")
	v.SetDefault("REMINDER_WINDOW", "24h")
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	v.AutomaticEnv()

	return v
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	config := Config{
		Server: ServerConfig{
			Port:     v.GetString("SERVER_PORT"),
			GRPCPort: v.GetString("GRPC_PORT"),
			Host:     v.GetString("SERVER_HOST"),
			Env:      v.GetString("ENV"),
		},
		Store: StoreConfig{
			Backend:  strings.ToLower(v.GetString("STORE_BACKEND")),
			SeedFile: v.GetString("SEED_FILE"),
		},
		Database: DatabaseConfig{
			URL:          v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DATABASE_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			DataKey:  v.GetString("REDIS_DATA_KEY"),
			CacheTTL: v.GetString("CACHE_TTL"),
		},
		Scheduler: SchedulerConfig{
			OverdueSpec:    v.GetString("SCHEDULER_OVERDUE_SPEC"),
			ReminderSpec:   v.GetString("SCHEDULER_REMINDER_SPEC"),
			ReminderWindow: v.GetString("REMINDER_WINDOW"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Business: BusinessConfig{
			LoanPeriodDays:     v.GetInt("LOAN_PERIOD_DAYS"),
			LateFeePolicy:      strings.ToLower(v.GetString("LATE_FEE_POLICY")),
			LateFeeAmount:      v.GetString("LATE_FEE_AMOUNT"),
			RecentRentalsLimit: v.GetInt("RECENT_RENTALS_LIMIT"),
		},
		Health: HealthConfig{
			Timeout: v.GetString("HEALTH_CHECK_TIMEOUT"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Store.Backend {
	case BackendPostgres, BackendPgx, BackendMySQL:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_BACKEND=%s", c.Store.Backend)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for STORE_BACKEND=redis")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of postgres, pgx, mysql, redis, memory")
	}

	if c.Business.LoanPeriodDays <= 0 {
		return fmt.Errorf("LOAN_PERIOD_DAYS must be greater than 0")
	}

	switch c.Business.LateFeePolicy {
	case "flat", "per_day", "tiered":
	default:
		return fmt.Errorf("LATE_FEE_POLICY must be one of flat, per_day, tiered")
	}

	amount, err := decimal.NewFromString(c.Business.LateFeeAmount)
	if err != nil {
		return fmt.Errorf("LATE_FEE_AMOUNT must be a valid decimal: %w", err)
	}
	if amount.IsNegative() {
		return fmt.Errorf("LATE_FEE_AMOUNT must not be negative")
	}

	for key, value := range map[string]string{
		"CACHE_TTL":            c.Redis.CacheTTL,
		"REMINDER_WINDOW":      c.Scheduler.ReminderWindow,
		"HEALTH_CHECK_TIMEOUT": c.Health.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// UsesSQL reports whether the store backend is a SQL database
func (c *Config) UsesSQL() bool {
	switch c.Store.Backend {
	case BackendPostgres, BackendPgx, BackendMySQL:
		return true
	}
	return false
}

// GetLateFeeAmount returns the late fee amount as decimal
func (c *Config) GetLateFeeAmount() decimal.Decimal {
	amount, _ := decimal.NewFromString(c.Business.LateFeeAmount)
	return amount
}

// GetLoanPeriod returns the loan period as duration
func (c *Config) GetLoanPeriod() time.Duration {
	return utils.LoanPeriodFromDays(c.Business.LoanPeriodDays)
}

// GetCacheTTL returns the dashboard cache TTL as duration
func (c *Config) GetCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Redis.CacheTTL)
	return ttl
}

// GetReminderWindow returns how far ahead due-soon reminders look
func (c *Config) GetReminderWindow() time.Duration {
	window, _ := time.ParseDuration(c.Scheduler.ReminderWindow)
	return window
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}
