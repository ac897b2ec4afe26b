package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Match Settings
	RegistrationCloseMinutes int // standard matches close registration this long before start
	CredentialsRevealMinutes int // room credentials revealed this long before start
	LeaveCutoffMinutes       int // leaving is blocked inside this window before start
	LeaveFeePercent          int // percentage of entry fee retained on leave
	MinEntryFee              int64
	MaxMatchSlots            int
	SweepIntervalMinutes     int // challenge auto-expiry sweep cadence

	// Wallet
	MaxChallengePrizePool int64
	ChallengeCreationFee  int64

	// Screenshot Uploads
	MaxScreenshotBytes     int64
	UploadRateLimitSeconds int
	S3Bucket               string
	S3Endpoint             string
	S3Region               string
	S3AccessKeyID          string
	S3AccessKeySecret      string
	CDNBaseURL             string

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/playarena?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Match Settings
		RegistrationCloseMinutes: getEnvInt("REGISTRATION_CLOSE_MINUTES", 30),
		CredentialsRevealMinutes: getEnvInt("CREDENTIALS_REVEAL_MINUTES", 15),
		LeaveCutoffMinutes:       getEnvInt("LEAVE_CUTOFF_MINUTES", 60),
		LeaveFeePercent:          getEnvInt("LEAVE_FEE_PERCENT", 10),
		MinEntryFee:              getEnvInt64("MIN_ENTRY_FEE", 10),
		MaxMatchSlots:            getEnvInt("MAX_MATCH_SLOTS", 100),
		SweepIntervalMinutes:     getEnvInt("SWEEP_INTERVAL_MINUTES", 5),

		// Wallet
		MaxChallengePrizePool: getEnvInt64("MAX_CHALLENGE_PRIZE_POOL", 100000),
		ChallengeCreationFee:  getEnvInt64("CHALLENGE_CREATION_FEE", 0),

		// Screenshot Uploads
		MaxScreenshotBytes:     getEnvInt64("MAX_SCREENSHOT_BYTES", 5<<20),
		UploadRateLimitSeconds: getEnvInt("UPLOAD_RATE_LIMIT_SECONDS", 10),
		S3Bucket:               getEnv("S3_BUCKET", ""),
		S3Endpoint:             getEnv("S3_ENDPOINT", ""),
		S3Region:               getEnv("S3_REGION", "auto"),
		S3AccessKeyID:          getEnv("S3_ACCESS_KEY_ID", ""),
		S3AccessKeySecret:      getEnv("S3_ACCESS_KEY_SECRET", ""),
		CDNBaseURL:             getEnv("CDN_BASE_URL", ""),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
