package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEventID is the event served by the reservation endpoints when
// EVENT_ID is not set.
const DefaultEventID = "node-meetup-2025"

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env      string // application environment (development, production)
	Port     string // HTTP port to listen on
	LogLevel string // zap level (debug, info, warn, error)

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	DBMaxOpenConns    int           // connection pool size
	DBAcquireTimeout  time.Duration // max wait for a pooled connection before ErrServiceBusy
	DBLockWaitTimeout time.Duration // innodb_lock_wait_timeout for row locks

	EventID         string        // event served by /api/reservations
	ShutdownTimeout time.Duration // grace period for in-flight requests
}

// Load reads a .env file when present and then builds Config from the
// environment.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load() Config {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	return Config{
		Env:      envStr("APP_ENV", "development"),
		Port:     envStr("APP_PORT", "8000"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: envStr("DB_PORT", "3306"),
		DBName: must("DB_NAME"),

		DBMaxOpenConns:    envInt("DB_POOL_MAX", 10),
		DBAcquireTimeout:  envDur("DB_ACQUIRE_TIMEOUT", 30*time.Second),
		DBLockWaitTimeout: envDur("DB_LOCK_WAIT_TIMEOUT", 10*time.Second),

		EventID:         envStr("EVENT_ID", DefaultEventID),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// IsProduction reports whether error details must be hidden from clients.
func (c Config) IsProduction() bool { return c.Env == "production" || c.Env == "prod" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
