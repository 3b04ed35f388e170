package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danibustillo97/rpa-news/internal/classify"
)

type Config struct {
	// Text-generation service
	AIProvider       string // "openrouter" or "gemini"
	OpenRouterAPIKey string
	OpenRouterURL    string
	GeminiAPIKey     string
	Model            string

	// Persistent store
	DatabaseURL string

	// Sources / vocabularies
	SourcesConfigPath string

	// Run policy
	RunQuota       int           // max articles persisted per run
	PublishDelay   time.Duration // pause between successful saves
	IncludeUndated bool          // publish candidates without a discovery timestamp

	// Crawler
	FetchConcurrency int
	FetchTimeout     time.Duration
	UserAgent        string

	// AI call budget per run (0 = unlimited)
	MaxRewriteCalls  int
	MaxGenerateCalls int
	MaxAICalls       int

	// Telegram run report (optional)
	TelegramToken  string
	TelegramChatID string

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

func Load() (*Config, error) {
	// Local runs keep secrets in .env; missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		AIProvider:        "openrouter",
		OpenRouterURL:     "https://openrouter.ai/api/v1",
		Model:             "meta-llama/llama-3-70b-instruct",
		SourcesConfigPath: "configs/sources.yaml",
		RunQuota:          5,
		PublishDelay:      2 * time.Second,
		FetchConcurrency:  8,
		FetchTimeout:      10 * time.Second,
		UserAgent:         "Mozilla/5.0 (compatible; rpa-news/1.0)",
		MaxRewriteCalls:   0,
		MaxGenerateCalls:  0,
		MaxAICalls:        0,
		RequestTimeout:    30 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Second,
	}

	cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" {
		cfg.OpenRouterURL = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.Model = v
	}
	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.RunQuota = getEnvIntOrDefault("RUN_QUOTA", cfg.RunQuota)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.MaxRewriteCalls = getEnvIntOrDefault("MAX_REWRITE_CALLS", cfg.MaxRewriteCalls)
	cfg.MaxGenerateCalls = getEnvIntOrDefault("MAX_GENERATE_CALLS", cfg.MaxGenerateCalls)
	cfg.MaxAICalls = getEnvIntOrDefault("MAX_AI_CALLS", cfg.MaxAICalls)

	if v := os.Getenv("PUBLISH_DELAY_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.PublishDelay = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.FetchTimeout = time.Duration(val) * time.Second
		}
	}
	if os.Getenv("INCLUDE_UNDATED") == "true" {
		cfg.IncludeUndated = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.AIProvider {
	case "openrouter":
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("AI_PROVIDER must be 'openrouter' or 'gemini'")
	}
	if c.RunQuota <= 0 {
		return fmt.Errorf("RUN_QUOTA must be positive")
	}
	return nil
}

// Source is one configured news endpoint. Kind defaults to "html"; "rss"
// endpoints are parsed as feeds instead of scraped.
type Source struct {
	URL  string `yaml:"url"`
	Kind string `yaml:"kind"`
}

// SourcesFile is the YAML file holding sources, the image-host blocklist
// and optional vocabulary overrides.
type SourcesFile struct {
	Sources        []Source             `yaml:"sources"`
	ImageBlocklist []string             `yaml:"image_blocklist"`
	Vocabulary     *classify.Vocabulary `yaml:"vocabulary"`
}

// LoadSources reads the sources YAML file. The vocabulary falls back to the
// built-in tables when the file does not override it.
func LoadSources(path string) (*SourcesFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sf SourcesFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sf.Sources) == 0 {
		return nil, fmt.Errorf("%s lists no sources", path)
	}
	return &sf, nil
}

// Vocab returns the effective vocabulary for a run.
func (sf *SourcesFile) Vocab() classify.Vocabulary {
	if sf.Vocabulary != nil {
		return *sf.Vocabulary
	}
	return classify.Default()
}
