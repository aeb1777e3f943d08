// Package config provides configuration management for DocAtlas. Settings
// load from environment variables with the DOCATLAS_ prefix, with sensible
// defaults for every option; an optional YAML file can overlay the
// environment for deployments that prefer file-based configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the DocAtlas application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Security  SecurityConfig  `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 7171)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string `yaml:"engine"`       // Storage engine: sqlite, postgres (default: sqlite)
	DataPath      string `yaml:"data_path"`    // Path to the data directory for SQLite (default: ./data)
	PostgresDSN   string `yaml:"postgres_dsn"` // PostgreSQL connection string when engine is postgres
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	Provider       string `yaml:"provider"`        // LLM provider: ollama, openai, anthropic (default: ollama)
	OllamaURL      string `yaml:"ollama_url"`      // Ollama API URL (default: http://localhost:11434)
	OllamaModel    string `yaml:"ollama_model"`    // Ollama model name (default: qwen2.5:7b)
	OpenAIAPIKey   string `yaml:"openai_api_key"`  // OpenAI API key
	OpenAIModel    string `yaml:"openai_model"`    // OpenAI model name (default: gpt-4o-mini)
	AnthropicKey   string `yaml:"anthropic_key"`   // Anthropic API key
	AnthropicModel string `yaml:"anthropic_model"` // Anthropic model name (default: claude-haiku-4-5-20251001)
}

// RetrievalConfig contains retrieval tuning options.
type RetrievalConfig struct {
	MaxDocuments int `yaml:"max_documents"` // Default cap on retrieval results (default: 5)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string `yaml:"mode"`      // Security mode: development, production (default: development)
	APIToken     string `yaml:"api_token"` // API authentication token, required in production mode
}

// LoadConfig loads configuration from environment variables with defaults.
// All environment variables use the DOCATLAS_ prefix.
func LoadConfig() (*Config, error) {
	return buildBaseConfig(), nil
}

// LoadConfigFromFile loads configuration from environment variables and then
// overlays values from a YAML file. File values take precedence over the
// environment for any key the file sets.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := buildBaseConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// buildBaseConfig constructs a Config from environment variables and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("DOCATLAS_PORT", 7171),
			Host: getEnv("DOCATLAS_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("DOCATLAS_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("DOCATLAS_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("DOCATLAS_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:       getEnv("DOCATLAS_LLM_PROVIDER", "ollama"),
			OllamaURL:      getEnv("DOCATLAS_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:    getEnv("DOCATLAS_OLLAMA_MODEL", "qwen2.5:7b"),
			OpenAIAPIKey:   getEnv("DOCATLAS_OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("DOCATLAS_OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicKey:   getEnv("DOCATLAS_ANTHROPIC_API_KEY", ""),
			AnthropicModel: getEnv("DOCATLAS_ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
		},
		Retrieval: RetrievalConfig{
			MaxDocuments: getEnvInt("DOCATLAS_MAX_DOCUMENTS", 5),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("DOCATLAS_SECURITY_MODE", "development"),
			APIToken:     getEnv("DOCATLAS_API_TOKEN", ""),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value, also on parse failure.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
