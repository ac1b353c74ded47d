package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, 30*24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 200, cfg.SummaryMaxTokens)
	assert.Equal(t, 30*time.Second, cfg.PageLoadTimeoutDuration())
	assert.Equal(t, 120*time.Second, cfg.RequestTimeoutDuration())
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("CACHE_TTL_DAYS", "7")
	t.Setenv("BROWSER_API_TOKEN", "secret")
	t.Setenv("SUMMARY_MAX_TOKENS", "150")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, "secret", cfg.BrowserAPIToken)
	assert.Equal(t, 150, cfg.SummaryMaxTokens)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown backend", key: "CACHE_BACKEND", value: "memcached"},
		{name: "zero ttl", key: "CACHE_TTL_DAYS", value: "0"},
		{name: "negative max tokens", key: "SUMMARY_MAX_TOKENS", value: "-1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
