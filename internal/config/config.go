package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// CapacityPolicy selects how the budget capacity check is performed.
type CapacityPolicy string

const (
	// CapacityPolicyDebit rejects an expense whose amount exceeds the
	// budget's current total_amount and decrements the field on acceptance.
	CapacityPolicyDebit CapacityPolicy = "debit"

	// CapacityPolicyRecompute derives the net committed position from the
	// transaction history on every check and never mutates total_amount.
	CapacityPolicyRecompute CapacityPolicy = "recompute"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Budget validation
	BudgetCapacityPolicy CapacityPolicy
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get values from environment variables with defaults
	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "moneta"),
		DBPassword: getEnv("DB_PASSWORD", "moneta"),
		DBName:     getEnv("DB_NAME", "moneta"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	// Capacity policy: invalid values fall back to the debit policy
	switch policy := CapacityPolicy(getEnv("BUDGET_CAPACITY_POLICY", string(CapacityPolicyDebit))); policy {
	case CapacityPolicyDebit, CapacityPolicyRecompute:
		config.BudgetCapacityPolicy = policy
	default:
		log.Printf("Warning: unknown BUDGET_CAPACITY_POLICY '%s', falling back to debit\n", policy)
		config.BudgetCapacityPolicy = CapacityPolicyDebit
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
