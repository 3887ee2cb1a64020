package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/medcrm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.GetEmailEnabled())
	assert.Equal(t, 15*time.Minute, cfg.GetQuoteExpiryInterval())
	assert.Equal(t, 5, cfg.GetQuoteNumberRetries())
	assert.Equal(t, "quote-pdfs", cfg.GetMinioBucketQuotePDFs())
	assert.Equal(t, "FR", cfg.GetPhoneRegion())
	assert.False(t, cfg.IsMinIOEnabled())
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/medcrm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/medcrm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
	t.Setenv("SMTP_PORT", "abc")
	t.Setenv("QUOTE_EXPIRY_INTERVAL", "soon")
	t.Setenv("MINIO_USE_SSL", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PORT")
	assert.Contains(t, err.Error(), "QUOTE_EXPIRY_INTERVAL")
	assert.Contains(t, err.Error(), "MINIO_USE_SSL")
}

func TestLoadClampsRetriesAndTrimsBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/medcrm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
	t.Setenv("QUOTE_NUMBER_RETRIES", "0")
	t.Setenv("APP_BASE_URL", "https://crm.example.fr/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.GetQuoteNumberRetries())
	assert.Equal(t, "https://crm.example.fr", cfg.GetAppBaseURL())
}
