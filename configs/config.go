// config.go - Configuration loaded from environment variables

package configs

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProviderConfig holds the settings of one AI backend.
// An empty APIKey leaves the provider unconfigured; it is skipped during fallback.
type ProviderConfig struct {
	Name              string
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerMinute int
}

// Provider names in registration (fallback) order.
const (
	ProviderGemini   = "Gemini"
	ProviderDeepSeek = "DeepSeek"
	ProviderKimi     = "Kimi"
	ProviderMiniMax  = "MiniMax"
	ProviderLlama    = "Llama"
	ProviderMistral  = "Mistral"
)

// providerEnv maps provider names to their environment variable prefix.
// An unset <PREFIX>_MODEL leaves Model empty and the provider picks its default.
var providerEnv = []struct {
	name   string
	prefix string
}{
	{ProviderGemini, "GEMINI"},
	{ProviderDeepSeek, "DEEPSEEK"},
	{ProviderKimi, "KIMI"},
	{ProviderMiniMax, "MINIMAX"},
	{ProviderLlama, "LLAMA"},
	{ProviderMistral, "MISTRAL"},
}

var (
	// AI provider configuration, in fallback order
	PROVIDERS []ProviderConfig

	// Retry behaviour applied to every provider attempt
	RETRY_MAX_RETRIES int
	RETRY_BASE_DELAY  time.Duration
	RETRY_MAX_DELAY   time.Duration
	RETRY_MAX_JITTER  time.Duration
	RETRY_TIMEOUT     time.Duration

	// Result cache
	CACHE_ENABLED          bool
	CACHE_TTL              time.Duration
	CACHE_MAX_ENTRIES      int
	CACHE_KEY_PREFIX_BYTES int

	// Server Configuration
	PORT            string
	GIN_MODE        string
	ALLOWED_ORIGINS string

	// MongoDB Configuration (empty URI disables persistence)
	MONGO_URI     string
	MONGO_DB_NAME string

	// Document preprocessing
	MAX_DOCUMENT_BYTES         int
	ENABLE_IMAGE_PREPROCESSING bool
	MAX_IMAGE_DIMENSION        int
	ENHANCE_LOW_QUALITY_IMAGES bool
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	PROVIDERS = loadProviders()

	RETRY_MAX_RETRIES = getEnvInt("RETRY_MAX_RETRIES", 3)
	RETRY_BASE_DELAY = getEnvMillis("RETRY_BASE_DELAY_MS", 1000)
	RETRY_MAX_DELAY = getEnvMillis("RETRY_MAX_DELAY_MS", 10000)
	RETRY_MAX_JITTER = getEnvMillis("RETRY_JITTER_MS", 500)
	RETRY_TIMEOUT = getEnvMillis("RETRY_TIMEOUT_MS", 60000)

	CACHE_ENABLED = getEnvBool("CACHE_ENABLED", true)
	CACHE_TTL = getEnvMillis("CACHE_TTL_MS", 15*60*1000)
	CACHE_MAX_ENTRIES = getEnvInt("CACHE_MAX_ENTRIES", 100)
	CACHE_KEY_PREFIX_BYTES = getEnvInt("CACHE_KEY_PREFIX_BYTES", 0)

	PORT = getEnv("PORT", "8080")
	GIN_MODE = getEnv("GIN_MODE", "debug")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")

	MONGO_URI = getEnv("MONGO_URI", "")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "trade_compliance")

	MAX_DOCUMENT_BYTES = getEnvInt("MAX_DOCUMENT_BYTES", 20<<20)
	ENABLE_IMAGE_PREPROCESSING = getEnvBool("ENABLE_IMAGE_PREPROCESSING", true)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 2000)
	ENHANCE_LOW_QUALITY_IMAGES = getEnvBool("ENHANCE_LOW_QUALITY_IMAGES", false)

	configured := 0
	for _, p := range PROVIDERS {
		if p.APIKey != "" {
			configured++
		}
	}
	if configured == 0 {
		slog.Warn("no AI provider API key configured, every analysis will fail")
	}
	slog.Info("configuration loaded", "providers_configured", configured)
}

func loadProviders() []ProviderConfig {
	providers := make([]ProviderConfig, 0, len(providerEnv))
	for _, p := range providerEnv {
		providers = append(providers, ProviderConfig{
			Name:              p.name,
			APIKey:            strings.TrimSpace(os.Getenv(p.prefix + "_API_KEY")),
			BaseURL:           getEnv(p.prefix+"_BASE_URL", ""),
			Model:             getEnv(p.prefix+"_MODEL", ""),
			RequestsPerMinute: getEnvInt(p.prefix+"_RPM", 0),
		})
	}
	return providers
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}
