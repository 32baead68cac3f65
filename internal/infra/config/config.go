package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Sequence allocation modes and counter backends.
const (
	SequenceModeCounter = "counter"
	SequenceModeLatest  = "latest"

	SequenceCounterStore = "store"
	SequenceCounterRedis = "redis"
)

// Object storage providers.
const (
	StorageProviderLocal = "local"
	StorageProviderGCS   = "gcs"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	LogLevel    string
	Environment string

	StoreDriver  string
	DatabaseURL  string
	MongoURI     string
	MongoDB      string
	StoreTimeout time.Duration

	SequenceMode      string
	SequenceCounter   string
	SequenceYearReset bool
	RedisAddress      string
	RedisPassword     string
	RedisDB           int

	StorageProvider      string
	UploadDir            string
	StorageAccessBaseURL string
	GCSBucket            string
	GCSCredentialsJSON   string
	PhotoMaxDimension    int
	MaxUploadBytes       int64

	HTTPAddr           string
	CORSAllowedOrigins []string
	AuthJWTSecret      string
	APIToken           string
	AuthDisabled       bool

	TelegramToken     string // empty disables the bot
	AdminTelegramID   int64
	ManagerTelegramID int64

	CronSpecDigest     string
	CronSpecStaleCheck string
	StaleAfter         time.Duration
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case StoreDriverMongo:
		cfg.MongoURI = os.Getenv("MONGO_URI")
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is not set")
		}
		cfg.MongoDB = getEnv("MONGO_DB", "deversements")
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (want postgres, mongo or memory)", cfg.StoreDriver)
	}

	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.SequenceMode = strings.ToLower(getEnv("SEQUENCE_MODE", SequenceModeCounter))
	if cfg.SequenceMode != SequenceModeCounter && cfg.SequenceMode != SequenceModeLatest {
		return nil, fmt.Errorf("invalid SEQUENCE_MODE %q (want counter or latest)", cfg.SequenceMode)
	}
	cfg.SequenceCounter = strings.ToLower(getEnv("SEQUENCE_COUNTER", SequenceCounterStore))
	if cfg.SequenceCounter != SequenceCounterStore && cfg.SequenceCounter != SequenceCounterRedis {
		return nil, fmt.Errorf("invalid SEQUENCE_COUNTER %q (want store or redis)", cfg.SequenceCounter)
	}
	if cfg.SequenceYearReset, err = getBool("SEQUENCE_YEAR_RESET", false); err != nil {
		return nil, err
	}

	cfg.RedisAddress = getEnv("REDIS_ADDRESS", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.StorageProvider = strings.ToLower(getEnv("STORAGE_PROVIDER", StorageProviderLocal))
	cfg.UploadDir = getEnv("UPLOAD_DIR", "./uploads")
	cfg.StorageAccessBaseURL = os.Getenv("STORAGE_ACCESS_BASE_URL")
	switch cfg.StorageProvider {
	case StorageProviderLocal:
	case StorageProviderGCS:
		cfg.GCSBucket = os.Getenv("GCS_BUCKET")
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is not set")
		}
		cfg.GCSCredentialsJSON = os.Getenv("GCS_CREDENTIALS_JSON")
	default:
		return nil, fmt.Errorf("invalid STORAGE_PROVIDER %q (want local or gcs)", cfg.StorageProvider)
	}
	if cfg.PhotoMaxDimension, err = getInt("PHOTO_MAX_DIMENSION", 2048); err != nil {
		return nil, err
	}
	maxUpload, err := humanize.ParseBytes(getEnv("MAX_UPLOAD_SIZE", "20MiB"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	cfg.AuthJWTSecret = os.Getenv("AUTH_JWT_SECRET")
	cfg.APIToken = os.Getenv("API_TOKEN")
	if cfg.AuthDisabled, err = getBool("AUTH_DISABLED", false); err != nil {
		return nil, err
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.AdminTelegramID, err = getInt64("ADMIN_TELEGRAM_ID"); err != nil {
		return nil, err
	}
	if cfg.ManagerTelegramID, err = getInt64("MANAGER_TELEGRAM_ID"); err != nil {
		return nil, err
	}
	if cfg.TelegramToken != "" && cfg.ManagerTelegramID == 0 {
		return nil, fmt.Errorf("MANAGER_TELEGRAM_ID is not set")
	}

	cfg.CronSpecDigest = getEnv("CRON_SPEC_DIGEST", "0 8 * * 1-5") // Default: 8:00 AM on weekdays
	cfg.CronSpecStaleCheck = getEnv("CRON_SPEC_STALE_CHECK", "0 */4 * * *")
	if cfg.StaleAfter, err = getDuration("STALE_AFTER", 72*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateHTTPAuth checks that the HTTP API can authenticate callers. Only the
// server needs it; the CLI and MCP entry points never expose the API.
func (c *AppConfig) ValidateHTTPAuth() error {
	if c.AuthDisabled {
		if c.Environment == "production" {
			return fmt.Errorf("AUTH_DISABLED cannot be set in production")
		}
		return nil
	}
	if c.AuthJWTSecret == "" && c.APIToken == "" {
		return fmt.Errorf("AUTH_JWT_SECRET or API_TOKEN is not set")
	}
	if c.AuthJWTSecret != "" && len(c.AuthJWTSecret) < minJWTSecretLen {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", minJWTSecretLen)
	}
	return nil
}

const minJWTSecretLen = 32

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getInt64(key string) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
