package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"DB_DRIVER", "DB_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"CACHE_TTL_SEC", "CACHE_MAX_ENTRIES", "MATCH_THRESHOLD", "LEARNED_THRESHOLD",
	"PARALLELISM", "RULES_PATH", "TEMPLATES_PATH", "LOG_LEVEL", "LOG_DEVELOPMENT",
	"OPENAI_API_KEY", "OPENAI_MODEL", "ENHANCE_RPS",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeEnv(t, ""))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheMaxEntries)
	assert.InDelta(t, 0.7, cfg.MatchThreshold, 1e-9)
	assert.InDelta(t, 0.9, cfg.LearnedThreshold, 1e-9)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.EnhancementEnabled())
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)

	path := writeEnv(t, "DB_DRIVER=Postgres\nDB_DSN=postgres://localhost/fm\nCACHE_TTL_SEC=60\nMATCH_THRESHOLD=0.8\nOPENAI_API_KEY=sk-test\nLOG_DEVELOPMENT=yes\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/fm", cfg.DBDSN)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.InDelta(t, 0.8, cfg.MatchThreshold, 1e-9)
	assert.True(t, cfg.EnhancementEnabled())
	assert.True(t, cfg.LogDevelopment)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_MAX_ENTRIES", "42")

	cfg, err := Load(writeEnv(t, "CACHE_MAX_ENTRIES=7\n"))
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.CacheMaxEntries)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{"driver", "DB_DRIVER=mongo\n"},
		{"threshold", "MATCH_THRESHOLD=1.5\n"},
		{"learned threshold", "LEARNED_THRESHOLD=-1\n"},
		{"ttl", "CACHE_TTL_SEC=-5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			_, err := Load(writeEnv(t, tt.env))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("FM_TEST_INT", "abc")
	t.Setenv("FM_TEST_BOOL", "maybe")

	assert.Equal(t, 3, getEnvInt("FM_TEST_INT", 3))
	assert.True(t, getEnvBool("FM_TEST_BOOL", true))
	assert.InDelta(t, 0.5, getEnvFloat("FM_TEST_UNSET", 0.5), 1e-9)
}

func writeEnv(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}
