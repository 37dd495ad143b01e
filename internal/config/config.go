package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var DefaultEnvConfig *envConfig

type envConfig struct {
	// bot config
	BOT_TOKEN string `validate:"required"`
	BOT_DEBUG bool
	ADMIN_ID  int64 `validate:"gte=0"`
	// display label stored with the seeded admin
	ADMIN_USERNAME string
	// database config
	DATABASE_URL         string `validate:"required"`
	DB_CONN_MAX_LIFETIME time.Duration
	DB_MAX_IDLE_CONNS    int `validate:"gte=0"`
	DB_MAX_OPEN_CONNS    int `validate:"gte=1"`
	DB_CONNECT_RETRIES   int `validate:"gte=1"`
	DB_CONNECT_DELAY     time.Duration
	// app config
	APP_PORT             int    `validate:"gte=1,lte=65535"`
	APP_TIMEZONE         string `validate:"required"`
	SESSION_IDLE_TIMEOUT time.Duration
	ADMIN_CACHE          bool
	DISPATCH_WORKERS     int `validate:"gte=1"`
	EXPORT_TOKEN         string
	// logger config
	LOG_FILE_PATH string
	LOG_LEVEL     string `validate:"oneof=debug info warn error"`

	location *time.Location
	warnings []string
}

// LoadEnvConfig reads an optional .env file and the process environment into
// DefaultEnvConfig. It does not validate; see Validate and ValidateDatabase.
func LoadEnvConfig() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	DefaultEnvConfig = &envConfig{
		BOT_TOKEN:            getEnvString("BOT_TOKEN", ""),
		BOT_DEBUG:            getEnvBool("BOT_DEBUG", false),
		ADMIN_ID:             0,
		ADMIN_USERNAME:       getEnvString("ADMIN_USERNAME", ""),
		DATABASE_URL:         getEnvString("DATABASE_URL", ""),
		DB_CONN_MAX_LIFETIME: getEnvDuration("DB_CONN_MAX_LIFETIME", 20*time.Minute),
		DB_MAX_IDLE_CONNS:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DB_MAX_OPEN_CONNS:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DB_CONNECT_RETRIES:   getEnvInt("DB_CONNECT_RETRIES", 3),
		DB_CONNECT_DELAY:     getEnvDuration("DB_CONNECT_DELAY", 2*time.Second),
		APP_PORT:             getEnvInt("APP_PORT", 8080),
		APP_TIMEZONE:         getEnvString("APP_TIMEZONE", "UTC"),
		SESSION_IDLE_TIMEOUT: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		ADMIN_CACHE:          getEnvBool("ADMIN_CACHE", true),
		DISPATCH_WORKERS:     getEnvInt("DISPATCH_WORKERS", 4),
		EXPORT_TOKEN:         getEnvString("EXPORT_TOKEN", ""),
		LOG_FILE_PATH:        getEnvString("LOG_FILE_PATH", ""),
		LOG_LEVEL:            getEnvString("LOG_LEVEL", "info"),
	}
	if val := os.Getenv("ADMIN_ID"); val != "" {
		id, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			DefaultEnvConfig.warnings = append(DefaultEnvConfig.warnings, fmt.Sprintf("ADMIN_ID %q is not a number, no admin will be seeded", val))
		} else {
			DefaultEnvConfig.ADMIN_ID = id
		}
	}
	return nil
}

// Warnings lists non-fatal problems found while loading, for logging once the
// logger is up.
func (c *envConfig) Warnings() []string {
	return c.warnings
}

// Validate checks every field. A missing BOT_TOKEN or DATABASE_URL is fatal
// for the bot process.
func (c *envConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return c.loadLocation()
}

// ValidateDatabase checks only what the offline tools need.
func (c *envConfig) ValidateDatabase() error {
	if err := validator.New().StructPartial(c, "DATABASE_URL", "DB_MAX_OPEN_CONNS", "DB_CONNECT_RETRIES", "ADMIN_ID", "APP_TIMEZONE"); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return c.loadLocation()
}

// Location is the zone that decides which calendar day is "today".
func (c *envConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *envConfig) loadLocation() error {
	loc, err := time.LoadLocation(c.APP_TIMEZONE)
	if err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.APP_TIMEZONE, err)
	}
	c.location = loc
	return nil
}

func getEnvString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if i, err := strconv.Atoi(val); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
