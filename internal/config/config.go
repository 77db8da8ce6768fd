// Package config layers chefai's configuration: defaults, then an optional
// .env file and YAML file, then the process environment. Environment
// variables always win; files only fill in what is unset.
//
// YAML file search order:
//  1. --config CLI flag (explicit path)
//  2. CHEFAI_CONFIG environment variable
//  3. ~/.chefai/config.yaml
//  4. ./chefai.yaml
//
// With no files present everything runs from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration file. Keys mirror the environment
// variable names they feed.
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Vector     VectorConfig     `yaml:"vector"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ModelConfig holds the generator and judge settings.
type ModelConfig struct {
	// Provider selects the backend: gemini, openai, azure, ollama, ark.
	Provider string `yaml:"provider"`
	// JudgeModel overrides the model used for grading.
	JudgeModel string `yaml:"judge_model"`
	// JudgeTemperature is the judge's sampling temperature.
	JudgeTemperature *float32 `yaml:"judge_temperature"`
	// Temperature is the optional answer temperature. Unset keeps the
	// model default.
	Temperature *float32 `yaml:"temperature"`
	// MaxTokens caps answer length on the eino backends.
	MaxTokens int `yaml:"max_tokens"`
	// MaxPromptTokens is the prompt budget warning threshold.
	MaxPromptTokens int `yaml:"max_prompt_tokens"`

	Gemini GeminiConfig `yaml:"gemini"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Azure  AzureConfig  `yaml:"azure"`
	Ollama OllamaConfig `yaml:"ollama"`
	Ark    ArkConfig    `yaml:"ark"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	// APIKey prefer env var GEMINI_API_KEY.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// OpenAIConfig holds OpenAI settings.
type OpenAIConfig struct {
	// APIKey prefer env var OPENAI_API_KEY.
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AzureConfig holds Azure OpenAI settings.
type AzureConfig struct {
	// APIKey prefer env var AZURE_OPENAI_API_KEY.
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// OllamaConfig holds local Ollama settings.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// ArkConfig holds Volcengine Ark settings.
type ArkConfig struct {
	// APIKey prefer env var ARK_API_KEY.
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds the encoder settings.
type EmbeddingConfig struct {
	// Provider selects the encoder: ollama, openai, gemini.
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// APIKey prefer env var EMBEDDING_API_KEY.
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

// VectorConfig selects and configures the vector store.
type VectorConfig struct {
	// Store is qdrant or sqlite.
	Store string `yaml:"store"`
	// Index is the collection (qdrant) or namespace (sqlite) name.
	Index  string       `yaml:"index"`
	Qdrant QdrantConfig `yaml:"qdrant"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// QdrantConfig holds the Qdrant connection settings.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// APIKey prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	TLS    bool   `yaml:"tls"`
}

// SQLiteConfig holds the local store settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig holds knowledge-base settings.
type IngestConfig struct {
	// KnowledgeBase is a file path or http(s) URL.
	KnowledgeBase string `yaml:"knowledge_base"`
}

// PromptsConfig points at a template override directory.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// EvaluationConfig holds batch runner settings.
type EvaluationConfig struct {
	ResultsFile string `yaml:"results_file"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// APIKey is the Bearer token for /api/ask. Prefer env var CHEFAI_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse settings.
type TracingConfig struct {
	// PublicKey prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	Host      string `yaml:"host"`
}

// envMapping maps YAML fields to the environment variables they feed.
// Empty values are skipped.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"JUDGE_MODEL", func(c *Config) string { return c.Model.JudgeModel }},
	{"JUDGE_TEMPERATURE", func(c *Config) string { return floatPtrStr(c.Model.JudgeTemperature) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return floatPtrStr(c.Model.Temperature) }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"CHEFAI_MAX_PROMPT_TOKENS", func(c *Config) string { return intStr(c.Model.MaxPromptTokens) }},
	{"GEMINI_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"OPENAI_BASE_URL", func(c *Config) string { return c.Model.OpenAI.BaseURL }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.Ark.BaseURL }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"VECTOR_STORE", func(c *Config) string { return c.Vector.Store }},
	{"VECTOR_INDEX", func(c *Config) string { return c.Vector.Index }},
	{"QDRANT_HOST", func(c *Config) string { return c.Vector.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Vector.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Vector.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Vector.Qdrant.TLS) }},
	{"CHEFAI_VECTOR_DB", func(c *Config) string { return c.Vector.SQLite.Path }},
	{"CHEFAI_KNOWLEDGE_BASE", func(c *Config) string { return c.Ingest.KnowledgeBase }},
	{"CHEFAI_PROMPTS_DIR", func(c *Config) string { return c.Prompts.Dir }},
	{"CHEFAI_RESULTS_FILE", func(c *Config) string { return c.Evaluation.ResultsFile }},
	{"CHEFAI_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// LoadDotenv loads KEY=VALUE pairs from path (".env" when empty) into the
// environment without overriding variables that are already set. A missing
// file is not an error. Returns whether a file was loaded.
func LoadDotenv(path string) (bool, error) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return true, nil
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten.
// Returns the path that was loaded, or "" if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return "", fmt.Errorf("config: %s: %w", explicitPath, fs.ErrNotExist)
		}
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		v := m.value(&cfg)
		if v == "" {
			continue
		}
		if _, set := os.LookupEnv(m.envKey); set {
			continue
		}
		if err := os.Setenv(m.envKey, v); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if exists(explicit) {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("CHEFAI_CONFIG"); envPath != "" && exists(envPath) {
		return envPath
	}

	if home, err := os.UserHomeDir(); err == nil {
		if p := filepath.Join(home, ".chefai", "config.yaml"); exists(p) {
			return p
		}
	}

	if exists("chefai.yaml") {
		return "chefai.yaml"
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// intStr formats v, returning "" for zero.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// floatPtrStr formats *v, returning "" for nil. An explicit 0 is kept so a
// file can pin a deterministic temperature.
func floatPtrStr(v *float32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*v), 'f', -1, 32)
}

// boolStr returns "true" or "".
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
