package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string
	// Database
	DatabaseURL string
	// Auth
	JWTSecret string
	TokenTTL  time.Duration
	// Optional LLM fallback for intent classification
	OpenAIAPIKey     string
	Model            string
	IntentLLMEnabled bool
	IntentPromptFile string
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:             getEnvDefault("PORT", "8080"),
		AllowedOrigin:    getEnvDefault("ALLOWED_ORIGIN", "*"),
		LogLevel:         getEnvDefault("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DB_URL"),
		JWTSecret:        getEnvDefault("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:         time.Duration(getEnvIntDefault("TOKEN_TTL_MINUTES", 1440)) * time.Minute,
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		Model:            getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		IntentLLMEnabled: getEnvBoolDefault("INTENT_LLM_ENABLED", false),
		IntentPromptFile: getEnvDefault("INTENT_PROMPT_FILE", "prompts/intent.yaml"),
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
