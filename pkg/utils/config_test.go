package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile_Defaults(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 8, cfg.Booking.OpenHour)
	assert.Equal(t, 20, cfg.Booking.CloseHour)
	assert.Equal(t, "MAD", cfg.Currency.Local)
	assert.Equal(t, "USD", cfg.Currency.Settlement)
	assert.InDelta(t, 0.1, cfg.Currency.SettlementRate, 1e-9)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.App.CORSOrigins)
}

func TestLoadConfigFile_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "PORT=9090\nDB_NAME=cleaning\nSETTLEMENT_RATE=0.25\nCORS_ORIGINS=https://a.example, https://b.example\nPAYPAL_BASE_URL=https://paypal.example/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "cleaning", cfg.Database.Name)
	assert.InDelta(t, 0.25, cfg.Currency.SettlementRate, 1e-9)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigins)
	assert.Equal(t, "https://paypal.example", cfg.PayPal.BaseURL)
}

func TestLoadConfigFile_InvalidHours(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BUSINESS_OPEN_HOUR=20\nBUSINESS_CLOSE_HOUR=8\n"), 0o600))

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}
