package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server, the migrator and ledgerctl read from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string
	StorageBucket             string

	RedisAddress  string
	RedisPassword string

	Timezone              string
	Location              *time.Location
	RequireShiftSnapshots bool

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	LogLevel  string
	LogFormat string

	SeedOwnerEmail    string
	SeedOwnerPassword string
	SeedOwnerName     string
}

// Load reads .env (if present) and the process environment.
// The returned bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	envLoaded := godotenv.Load() == nil

	cfg := &Config{
		Port:                      getEnv("PORT", "8080"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		JWTSecret:                 os.Getenv("APP_JWT_SECRET"),
		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		StorageBucket:             os.Getenv("FIREBASE_STORAGE_BUCKET"),
		RedisAddress:              os.Getenv("REDIS_ADDRESS"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		Timezone:                  getEnv("APP_TIMEZONE", "UTC"),
		TwilioAccountSID:          os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:           os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:          os.Getenv("TWILIO_FROM_NUMBER"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		LogFormat:                 getEnv("LOG_FORMAT", "json"),
		SeedOwnerEmail:            os.Getenv("SEED_OWNER_EMAIL"),
		SeedOwnerPassword:         os.Getenv("SEED_OWNER_PASSWORD"),
		SeedOwnerName:             getEnv("SEED_OWNER_NAME", "Owner"),
	}

	if cfg.DatabaseURL == "" {
		return nil, envLoaded, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, envLoaded, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if raw := strings.TrimSpace(os.Getenv("REQUIRE_SHIFT_SNAPSHOTS")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, envLoaded, fmt.Errorf("invalid REQUIRE_SHIFT_SNAPSHOTS %q: %w", raw, err)
		}
		cfg.RequireShiftSnapshots = v
	}

	return cfg, envLoaded, nil
}

// FirebaseEnabled reports whether any Firebase credentials were supplied.
func (c *Config) FirebaseEnabled() bool {
	return c.FirebaseCredentialsBase64 != "" || c.FirebaseCredentialsFile != ""
}

// TwilioEnabled reports whether the SMS relay can reach Twilio.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
