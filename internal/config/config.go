package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"presupuesto/internal/core"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"

	// DefaultStorageKey is the single key the whole ledger is stored under.
	DefaultStorageKey = "organizadorFinanciero"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Persistence
	DataBackend     string
	StorageKey      string
	MemorySeedFile  string
	SQLiteDBPath    string
	MongoURI        string
	MongoDB         string
	MongoCollection string

	// Ledger
	SeedMonth string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Workers
	SyncConcurrency  int
	SyncInterval     time.Duration
	RolloverSchedule string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:     getEnv("DATA_BACKEND", BackendMemory),
		StorageKey:      getEnv("STORAGE_KEY", DefaultStorageKey),
		MemorySeedFile:  getEnv("MEMORY_SEED_FILE", ""),
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/presupuesto.db"),
		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGODB_DB", "presupuesto"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "ledgers"),

		SeedMonth: getEnv("SEED_MONTH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "presupuesto"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "month_changed"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		SyncConcurrency:  getEnvInt("SYNC_CONCURRENCY", 4),
		SyncInterval:     getEnvDuration("SYNC_INTERVAL", 15*time.Minute),
		RolloverSchedule: getEnv("ROLLOVER_SCHEDULE", "5 0 1 * *"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendMongo:
		if u, err := url.Parse(c.MongoURI); err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI '%s': must use mongodb:// or mongodb+srv://", c.MongoURI))
		}
		if c.MongoDB == "" || c.MongoCollection == "" {
			errors = append(errors, "MongoDB database and collection names are required when using mongo backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v",
			c.DataBackend, []string{BackendMemory, BackendSQLite, BackendMongo}))
	}

	if strings.TrimSpace(c.StorageKey) == "" {
		errors = append(errors, "storage key cannot be empty")
	}

	if c.SeedMonth != "" {
		if _, err := core.ParseMonthKey(c.SeedMonth); err != nil {
			errors = append(errors, fmt.Sprintf("invalid seed month '%s': must be YYYY-MM", c.SeedMonth))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncConcurrency < 1 || c.SyncConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be between 1 and 32", c.SyncConcurrency))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if _, err := cron.ParseStandard(c.RolloverSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rollover schedule '%s': %v", c.RolloverSchedule, err))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateSheetsExport checks the settings the Sheets exporter needs. Only
// processes that export call it.
func (c *Config) ValidateSheetsExport() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required to receive month updates")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for sheets export")
	}
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasFile && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("sheets export configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SeedMonthKey returns the configured seed month, or the month of now.
func (c *Config) SeedMonthKey(now time.Time) core.MonthKey {
	if k, err := core.ParseMonthKey(c.SeedMonth); err == nil {
		return k
	}
	return core.MonthKeyOf(now)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
