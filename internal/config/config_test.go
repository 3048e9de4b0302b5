package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "INSIGHT_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "INSIGHT_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "INSIGHT_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "INSIGHT_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "INSIGHT_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "errors on non-numeric", key: "INSIGHT_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("INSIGHT_TEST_DUR", "90s")

	got, err := getEnvDuration("INSIGHT_TEST_DUR", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, got)

	got, err = getEnvDuration("INSIGHT_TEST_DUR_UNSET", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, got)

	t.Setenv("INSIGHT_TEST_DUR_BAD", "soon")
	_, err = getEnvDuration("INSIGHT_TEST_DUR_BAD", time.Minute)
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Load / validate tests
// ---------------------------------------------------------------------------

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("INSIGHT_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSIGHT_JWT_SECRET")
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	t.Setenv("INSIGHT_JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INSIGHT_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("INSIGHT_DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 15*time.Minute, cfg.Engine.CheckInterval)
	assert.Equal(t, 14*24*time.Hour, cfg.Engine.BatchExpiryWindow)
	assert.InDelta(t, 10.0, cfg.RateLimit.RequestsPerSecond, 0.001)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.True(t, cfg.DevMode)
}

func TestDatabaseDSN(t *testing.T) {
	t.Parallel()

	c := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "insight", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=insight sslmode=require", c.DSN())
}

func strPtr(s string) *string { return &s }
