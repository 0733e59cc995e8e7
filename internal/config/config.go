package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the service, loaded from the
// environment (optionally seeded from a .env file).
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Business  BusinessConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

// DatabaseConfig holds the PostgreSQL connection string.
type DatabaseConfig struct {
	URL string
}

// BusinessConfig carries the operational policy knobs of the restaurant.
type BusinessConfig struct {
	Name             string
	Currency         string
	Timezone         string
	GlassesPerBottle int
	// ClosePhrase gates the day-close and full-reset operations.
	ClosePhrase string
}

// StorageConfig holds Supabase Storage credentials for proof-of-payment and
// report uploads. All fields empty means uploads are disabled.
type StorageConfig struct {
	URL    string
	Key    string
	Bucket string
}

// SchedulerConfig holds the cron expression for the end-of-day summary job.
type SchedulerConfig struct {
	SummaryCron string
}

// Load reads environment variables and materializes a validated Config.
// A missing .env file is not an error; configuration may come from the
// environment directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	glasses := 4
	if v := os.Getenv("GLASSES_PER_BOTTLE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("GLASSES_PER_BOTTLE must be a positive integer, got %q", v)
		}
		glasses = n
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("SERVER_PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Business: BusinessConfig{
			Name:             getenvWithDefault("BUSINESS_NAME", "Cenáculo"),
			Currency:         getenvWithDefault("CURRENCY", "ARS"),
			Timezone:         getenvWithDefault("TIMEZONE", "America/Argentina/Buenos_Aires"),
			GlassesPerBottle: glasses,
			ClosePhrase:      os.Getenv("CLOSE_PHRASE"),
		},
		Storage: StorageConfig{
			URL:    os.Getenv("SUPABASE_URL"),
			Key:    os.Getenv("SUPABASE_KEY"),
			Bucket: getenvWithDefault("SUPABASE_BUCKET", "proofs"),
		},
		Scheduler: SchedulerConfig{
			SummaryCron: getenvWithDefault("SUMMARY_CRON", "0 23 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures required fields are populated and parseable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL must be provided")
	}
	if c.Business.ClosePhrase == "" {
		return errors.New("CLOSE_PHRASE must be provided")
	}
	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a valid IANA zone: %w", c.Business.Timezone, err)
	}
	return nil
}

// Location resolves the configured business timezone. Validate guarantees it
// parses, so errors here are impossible after Load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
