// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"mcp-food-log/internal/analyzer"
)

// Config holds settings that come from the environment. Flags for the
// listener and database live in main.
type Config struct {
	Analyzer    analyzer.Config
	JPEGQuality int
	LogLevel    string
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then builds the config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	provider := analyzer.Provider(getEnv("FOOD_LOG_PROVIDER", string(analyzer.ProviderOpenAI)))

	var apiKey, baseURL string
	switch provider {
	case analyzer.ProviderGateway:
		apiKey = getEnv("MCP_PROXY_API_KEY", os.Getenv("OPENAI_API_KEY"))
		baseURL = getEnv("MCP_PROXY_URL", analyzer.DefaultGatewayURL)
	default:
		apiKey = os.Getenv("OPENAI_API_KEY")
		baseURL = getEnv("OPENAI_BASE_URL", analyzer.DefaultOpenAIBaseURL)
	}

	freeText := false
	if v := os.Getenv("FOOD_LOG_STRUCTURED_OUTPUT"); v != "" {
		structured, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FOOD_LOG_STRUCTURED_OUTPUT: %w", err)
		}
		freeText = !structured
	}

	timeout := analyzer.DefaultHTTPTimeout
	if v := os.Getenv("FOOD_LOG_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FOOD_LOG_HTTP_TIMEOUT: %w", err)
		}
		timeout = d
	}

	maxTokens := 0
	if v := os.Getenv("FOOD_LOG_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid FOOD_LOG_MAX_TOKENS: %q", v)
		}
		maxTokens = n
	}

	quality := analyzer.DefaultJPEGQuality
	if v := os.Getenv("FOOD_LOG_JPEG_QUALITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return nil, fmt.Errorf("invalid FOOD_LOG_JPEG_QUALITY: %q must be between 1 and 100", v)
		}
		quality = n
	}

	return &Config{
		Analyzer: analyzer.Config{
			APIKey:      apiKey,
			Provider:    provider,
			Model:       getEnv("FOOD_LOG_MODEL", analyzer.DefaultModel),
			BaseURL:     baseURL,
			FreeText:    freeText,
			HTTPTimeout: timeout,
			MaxTokens:   maxTokens,
		},
		JPEGQuality: quality,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}, nil
}
