package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("RECORD_SOURCE", "")
	t.Setenv("TIMEZONE", "Europe/Podgorica")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, RecordSourceCMS, cfg.RecordSource)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 50, cfg.LimitApartments)
	assert.Equal(t, 20, cfg.LimitReservations)
	assert.Equal(t, 5, cfg.LimitCleaningJobs)
	assert.Equal(t, "Europe/Podgorica", cfg.Location().String())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigEmptyValuesFallBack(t *testing.T) {
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("RECORD_SOURCE", "  ")
	t.Setenv("TIMEZONE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, RecordSourceCMS, cfg.RecordSource)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfigRejectsUnknownSource(t *testing.T) {
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("RECORD_SOURCE", "sheets")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "unknown record source")
}

func TestLoadConfigRejectsBadTimezone(t *testing.T) {
	t.Setenv("CSRF_SECRET", "csrf")
	t.Setenv("RECORD_SOURCE", "postgres")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "timezone")
}

func TestNilConfigLocation(t *testing.T) {
	var cfg *Config
	assert.Equal(t, time.UTC, cfg.Location())
}
