package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Lending   LendingConfig   `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"DATABASE_HOST"`
	Port            string        `mapstructure:"DATABASE_PORT"`
	Name            string        `mapstructure:"DATABASE_NAME"`
	User            string        `mapstructure:"DATABASE_USER"`
	Password        string        `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string        `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	ExpirySweepSpec string `mapstructure:"EXPIRY_SWEEP_SPEC"`
	OverdueScanSpec string `mapstructure:"OVERDUE_SCAN_SPEC"`
	Timezone        string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// LendingConfig carries the business rules of the lending engine.
type LendingConfig struct {
	// ReservationWindowDays is how long a hold stays active.
	ReservationWindowDays int `mapstructure:"RESERVATION_WINDOW_DAYS"`
	// LoanPeriodDays is the borrowing period a new loan gets.
	LoanPeriodDays int `mapstructure:"LOAN_PERIOD_DAYS"`
	// StudentLoanLimit caps concurrent open loans for students.
	// Teachers are never capped.
	StudentLoanLimit int `mapstructure:"STUDENT_LOAN_LIMIT"`
	// CountReservations includes active reservations in the student cap.
	CountReservations bool `mapstructure:"COUNT_RESERVATIONS_IN_LIMIT"`
	// BorrowPolicy is either "immediate" (direct borrows start borrowed)
	// or "approval" (direct borrows wait for staff confirmation).
	BorrowPolicy string `mapstructure:"BORROW_POLICY"`
	// ClearanceCacheTTL bounds staleness of cached clearance verdicts.
	ClearanceCacheTTL time.Duration `mapstructure:"CLEARANCE_CACHE_TTL"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Best-effort .env preload so locally exported variables win
	_ = godotenv.Load()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_NAME", "library_engine")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "postgres")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("RESERVATION_WINDOW_DAYS", 3)
	viper.SetDefault("LOAN_PERIOD_DAYS", 14)
	viper.SetDefault("STUDENT_LOAN_LIMIT", 3)
	viper.SetDefault("COUNT_RESERVATIONS_IN_LIMIT", false)
	viper.SetDefault("BORROW_POLICY", "immediate")
	viper.SetDefault("CLEARANCE_CACHE_TTL", "30s")
	viper.SetDefault("EXPIRY_SWEEP_SPEC", "0 0 * * * *")
	viper.SetDefault("OVERDUE_SCAN_SPEC", "0 0 0 * * *")
	viper.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
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

	if c.Database.Name == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if c.Lending.ReservationWindowDays <= 0 {
		return fmt.Errorf("RESERVATION_WINDOW_DAYS must be greater than 0")
	}

	if c.Lending.LoanPeriodDays <= 0 {
		return fmt.Errorf("LOAN_PERIOD_DAYS must be greater than 0")
	}

	if c.Lending.StudentLoanLimit <= 0 {
		return fmt.Errorf("STUDENT_LOAN_LIMIT must be greater than 0")
	}

	if c.Lending.BorrowPolicy != "immediate" && c.Lending.BorrowPolicy != "approval" {
		return fmt.Errorf("BORROW_POLICY must be either 'immediate' or 'approval'")
	}

	if c.Lending.ClearanceCacheTTL <= 0 {
		return fmt.Errorf("CLEARANCE_CACHE_TTL must be a positive duration")
	}

	return nil
}

// DSN builds the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// ReservationWindow returns the hold window as a duration.
func (c *Config) ReservationWindow() time.Duration {
	return time.Duration(c.Lending.ReservationWindowDays) * 24 * time.Hour
}

// LoanPeriod returns the borrowing period as a duration.
func (c *Config) LoanPeriod() time.Duration {
	return time.Duration(c.Lending.LoanPeriodDays) * 24 * time.Hour
}
