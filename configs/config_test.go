package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, p := range providerEnv {
		t.Setenv(p.prefix+"_API_KEY", "")
		t.Setenv(p.prefix+"_MODEL", "")
	}
	t.Setenv("RETRY_MAX_RETRIES", "")
	t.Setenv("CACHE_TTL_MS", "")
	t.Setenv("CACHE_KEY_PREFIX_BYTES", "")

	LoadConfig()

	require.Len(t, PROVIDERS, 6)
	assert.Equal(t, ProviderGemini, PROVIDERS[0].Name)
	assert.Equal(t, ProviderMistral, PROVIDERS[5].Name)
	for _, p := range PROVIDERS {
		assert.Empty(t, p.APIKey, p.Name)
		assert.Empty(t, p.Model, p.Name)
	}
	assert.Equal(t, 3, RETRY_MAX_RETRIES)
	assert.Equal(t, time.Second, RETRY_BASE_DELAY)
	assert.Equal(t, 15*time.Minute, CACHE_TTL)
	assert.Equal(t, 100, CACHE_MAX_ENTRIES)
	assert.Equal(t, 0, CACHE_KEY_PREFIX_BYTES)
	assert.True(t, CACHE_ENABLED)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEEPSEEK_API_KEY", "  sk-test  ")
	t.Setenv("DEEPSEEK_BASE_URL", "http://localhost:9999")
	t.Setenv("DEEPSEEK_RPM", "30")
	t.Setenv("LLAMA_MODEL", "llama-small")
	t.Setenv("RETRY_TIMEOUT_MS", "0")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_MAX_ENTRIES", "not-a-number")

	LoadConfig()

	deepseek := PROVIDERS[1]
	assert.Equal(t, "sk-test", deepseek.APIKey)
	assert.Equal(t, "http://localhost:9999", deepseek.BaseURL)
	assert.Equal(t, 30, deepseek.RequestsPerMinute)
	assert.Equal(t, "llama-small", PROVIDERS[4].Model)
	assert.Equal(t, time.Duration(0), RETRY_TIMEOUT)
	assert.False(t, CACHE_ENABLED)
	assert.Equal(t, 100, CACHE_MAX_ENTRIES)
}
