package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so a developer's .env or shell
// cannot leak into the assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOG_LEVEL", "ENVIRONMENT", "STORE_DRIVER", "DATABASE_URL", "MONGO_URI", "MONGO_DB",
		"STORE_TIMEOUT", "SEQUENCE_MODE", "SEQUENCE_COUNTER", "SEQUENCE_YEAR_RESET",
		"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "STORAGE_PROVIDER", "UPLOAD_DIR",
		"STORAGE_ACCESS_BASE_URL", "GCS_BUCKET", "GCS_CREDENTIALS_JSON", "PHOTO_MAX_DIMENSION",
		"MAX_UPLOAD_SIZE", "HTTP_ADDR", "CORS_ALLOWED_ORIGINS", "TELEGRAM_TOKEN",
		"ADMIN_TELEGRAM_ID", "MANAGER_TELEGRAM_ID", "CRON_SPEC_DIGEST", "CRON_SPEC_STALE_CHECK",
		"STALE_AFTER", "AUTH_JWT_SECRET", "API_TOKEN", "AUTH_DISABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, SequenceModeCounter, cfg.SequenceMode)
	assert.Equal(t, SequenceCounterStore, cfg.SequenceCounter)
	assert.False(t, cfg.SequenceYearReset)
	assert.Equal(t, StorageProviderLocal, cfg.StorageProvider)
	assert.Equal(t, 2048, cfg.PhotoMaxDimension)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.TelegramToken)
	assert.Equal(t, 72*time.Hour, cfg.StaleAfter)
	assert.Equal(t, "0 8 * * 1-5", cfg.CronSpecDigest)
}

func TestLoadRequiresDriverSettings(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	assert.EqualError(t, err, "DATABASE_URL is not set")

	t.Setenv("STORE_DRIVER", "mongo")
	_, err = Load()
	assert.EqualError(t, err, "MONGO_URI is not set")

	t.Setenv("STORE_DRIVER", "sqlite")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/deversements?sslmode=disable")
	t.Setenv("SEQUENCE_MODE", "latest")
	t.Setenv("SEQUENCE_YEAR_RESET", "true")
	t.Setenv("STORE_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("MANAGER_TELEGRAM_ID", "777")
	t.Setenv("ADMIN_TELEGRAM_ID", "888")
	t.Setenv("MAX_UPLOAD_SIZE", "5 MB")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SequenceModeLatest, cfg.SequenceMode)
	assert.True(t, cfg.SequenceYearReset)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, int64(777), cfg.ManagerTelegramID)
	assert.Equal(t, int64(888), cfg.AdminTelegramID)
	assert.Equal(t, int64(5_000_000), cfg.MaxUploadBytes)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SEQUENCE_MODE":       "random",
		"SEQUENCE_COUNTER":    "etcd",
		"SEQUENCE_YEAR_RESET": "sometimes",
		"STORE_TIMEOUT":       "ten",
		"STORAGE_PROVIDER":    "s3",
		"ADMIN_TELEGRAM_ID":   "admin",
		"MAX_UPLOAD_SIZE":     "lots",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("STORE_DRIVER", "memory")
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadBotNeedsManager(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	_, err := Load()
	assert.EqualError(t, err, "MANAGER_TELEGRAM_ID is not set")
}

func TestValidateHTTPAuth(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.EqualError(t, cfg.ValidateHTTPAuth(), "AUTH_JWT_SECRET or API_TOKEN is not set")

	t.Setenv("API_TOKEN", "jeton")
	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateHTTPAuth())

	t.Setenv("AUTH_JWT_SECRET", "trop-court")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateHTTPAuth())

	t.Setenv("API_TOKEN", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_DISABLED", "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateHTTPAuth())

	t.Setenv("ENVIRONMENT", "production")
	cfg, err = Load()
	require.NoError(t, err)
	assert.EqualError(t, cfg.ValidateHTTPAuth(), "AUTH_DISABLED cannot be set in production")
}
