package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string
	LogFile  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string // optional, for proxies and compatible endpoints
	ModelID       string

	// Metrics
	MetricsDBPath string

	// Search
	SearchLimit       int
	SynthesizeAnswers bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		LogFile:           getEnv("LOG_FILE", ""),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		ModelID:           getEnv("MODEL_ID", "gpt-4o-mini"),
		MetricsDBPath:     getEnv("METRICS_DB_PATH", "metrics.db"),
		SearchLimit:       getEnvInt("SEARCH_LIMIT", 5),
		SynthesizeAnswers: getEnvBool("SYNTHESIZE_ANSWERS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.ModelID == "" {
		return fmt.Errorf("MODEL_ID is required")
	}
	if c.SearchLimit < 1 {
		return fmt.Errorf("SEARCH_LIMIT must be positive")
	}
	return nil
}

// LogSummary logs the effective configuration with secrets masked
func (c *Config) LogSummary(log *zap.Logger) {
	log.Info("configuration loaded",
		zap.String("env", c.Env),
		zap.String("port", c.Port),
		zap.String("neo4j_uri", c.Neo4jURI),
		zap.String("neo4j_user", c.Neo4jUser),
		zap.String("openai_api_key", mask(c.OpenAIAPIKey)),
		zap.String("openai_base_url", c.OpenAIBaseURL),
		zap.String("model_id", c.ModelID),
		zap.String("metrics_db", c.MetricsDBPath),
		zap.Int("search_limit", c.SearchLimit),
		zap.Bool("synthesize_answers", c.SynthesizeAnswers),
	)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
