package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every configuration parameter of the application.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Operator credentials for the single mutating account. The password is
	// stored as a bcrypt hash, never in the clear.
	OperatorUsername     string
	OperatorPasswordHash string

	// ChallongeAPIKey is optional; without it the challonge sync endpoints
	// answer 503.
	ChallongeAPIKey string
	// SyncInterval is how often the background sweep pulls challonge results
	// and refreshes pending rounds.
	SyncInterval time.Duration

	// Cloudflare R2 credentials for published snapshots. The block is
	// optional, but partial settings are a configuration mistake.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// R2Enabled reports whether the snapshot storage block is fully configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" &&
		c.R2AccessKeyID != "" &&
		c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" &&
		c.R2PublicBaseURL != ""
}

// Load reads the configuration from environment variables. A .env file is
// picked up when present, which is convenient for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	operatorUser := os.Getenv("OPERATOR_USERNAME")
	if operatorUser == "" {
		return nil, fmt.Errorf("OPERATOR_USERNAME environment variable is not set")
	}
	operatorHash := os.Getenv("OPERATOR_PASSWORD_HASH")
	if operatorHash == "" {
		return nil, fmt.Errorf("OPERATOR_PASSWORD_HASH environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	intervalStr := os.Getenv("SYNC_INTERVAL")
	if intervalStr == "" {
		intervalStr = "2m"
	}
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL environment variable: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("SYNC_INTERVAL must be positive, got %s", interval)
	}

	cfg := &Config{
		DatabaseURL:          dbURL,
		JWTSecretKey:         jwtKey,
		ServerPort:           port,
		OperatorUsername:     operatorUser,
		OperatorPasswordHash: operatorHash,
		ChallongeAPIKey:      os.Getenv("CHALLONGE_API_KEY"),
		SyncInterval:         interval,
		R2AccountID:          os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:        os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:    os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:         os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:      os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	if r2Any := cfg.R2AccountID + cfg.R2AccessKeyID + cfg.R2SecretAccessKey + cfg.R2BucketName + cfg.R2PublicBaseURL; r2Any != "" && !cfg.R2Enabled() {
		return nil, fmt.Errorf("R2 configuration is incomplete: set all of R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME, R2_PUBLIC_BASE_URL or none")
	}

	return cfg, nil
}
