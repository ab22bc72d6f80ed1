package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Security settings
	APIAuthSecret      string // optional; when set, API requests require a bearer token
	MaxUploadSizeBytes int64

	// Engine defaults
	DefaultTaxYear int

	// Ticker registry lookup (company name / CNPJ). Empty base URL disables
	// the HTTP adapter and only the static table is consulted.
	TickerAPIBaseURL string
	TickerAPITimeout time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760") // 10MB default
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./declarab3.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		APIAuthSecret:      getEnv("API_AUTH_SECRET", ""),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		DefaultTaxYear: getEnvAsInt("DEFAULT_TAX_YEAR", time.Now().Year()-1),

		TickerAPIBaseURL: getEnv("TICKER_API_BASE_URL", ""),
		TickerAPITimeout: getEnvAsDuration("TICKER_API_TIMEOUT", 10*time.Second),
	}

	if Cfg.APIAuthSecret == "" {
		log.Println("WARNING: API_AUTH_SECRET not set; the API will accept unauthenticated requests.")
	} else if len(Cfg.APIAuthSecret) < 32 {
		log.Fatalf("FATAL: API_AUTH_SECRET must be at least 32 bytes when set.")
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, DefaultTaxYear=%d",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.DefaultTaxYear)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
