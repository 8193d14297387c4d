package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the matchengine service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Casual      CasualConfig      `yaml:"casual"`
	Collections CollectionsConfig `yaml:"collections"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	RequestDeadline int `yaml:"request_deadline_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// EmbeddingConfig holds the dense embedding provider settings.
type EmbeddingConfig struct {
	APIKey           string       `yaml:"api_key"`
	BaseURL          string       `yaml:"base_url"`
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	Budget           BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings shared by embedding and LLM usage.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// LLMConfig holds the chat-completion provider settings.
type LLMConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	RetryMax       int     `yaml:"retry_max"`
	RetryBackoffMS int     `yaml:"retry_backoff_ms"`
}

// TierConfig is one progressive-search tier.
type TierConfig struct {
	Breadth int `yaml:"breadth"`
}

// SearchConfig holds progressive search tuning.
type SearchConfig struct {
	Tiers           []TierConfig `yaml:"tiers"`
	MaxResults      int          `yaml:"max_results"`
	Fusion          string       `yaml:"fusion"` // rrf (default) | dbsf
	SparseTopTokens int          `yaml:"sparse_top_tokens"`
}

// CasualConfig holds casual-request pipeline settings.
type CasualConfig struct {
	RetentionDays   int `yaml:"retention_days"`
	ReapIntervalMin int `yaml:"reap_interval_min"`
	ReapPageSize    int `yaml:"reap_page_size"`
	SearchBreadth   int `yaml:"search_breadth"`
}

// CollectionsConfig names the vector collections.
type CollectionsConfig struct {
	Profiles string `yaml:"profiles"`
	Casual   string `yaml:"casual"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RequestDeadline <= 0 {
		c.HTTP.RequestDeadline = 45
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "matchengine:"
	}
	// RetryMax counts total attempts: 2 means one retry after a
	// transient failure.
	if c.LLM.RetryMax <= 0 {
		c.LLM.RetryMax = 2
	}
	if c.LLM.RetryBackoffMS <= 0 {
		c.LLM.RetryBackoffMS = 250
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2048
	}
	if len(c.Search.Tiers) == 0 {
		c.Search.Tiers = []TierConfig{{Breadth: 50}, {Breadth: 150}, {Breadth: 400}}
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 10
	}
	if c.Search.Fusion == "" {
		c.Search.Fusion = "rrf"
	}
	if c.Search.SparseTopTokens <= 0 {
		c.Search.SparseTopTokens = 24
	}
	if c.Casual.RetentionDays <= 0 {
		c.Casual.RetentionDays = 7
	}
	if c.Casual.ReapIntervalMin <= 0 {
		c.Casual.ReapIntervalMin = 60
	}
	if c.Casual.ReapPageSize <= 0 {
		c.Casual.ReapPageSize = 200
	}
	if c.Casual.SearchBreadth <= 0 {
		c.Casual.SearchBreadth = 20
	}
	if c.Collections.Profiles == "" {
		c.Collections.Profiles = "profiles"
	}
	if c.Collections.Casual == "" {
		c.Collections.Casual = "casual_requests"
	}
}

// Validate checks the configuration for correctness. This is the only place
// a missing credential or collection surfaces: at startup, never per-request.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Budget.Action)
	}
	switch c.Search.Fusion {
	case "rrf", "dbsf":
		// ok
	default:
		return fmt.Errorf("search.fusion must be \"rrf\" or \"dbsf\", got %q", c.Search.Fusion)
	}
	prev := 0
	for i, tier := range c.Search.Tiers {
		if tier.Breadth <= prev {
			return fmt.Errorf("search.tiers[%d].breadth must exceed the previous tier (%d <= %d)",
				i, tier.Breadth, prev)
		}
		prev = tier.Breadth
	}
	if len(c.Search.Tiers) > 3 {
		return fmt.Errorf("search.tiers supports at most 3 tiers, got %d", len(c.Search.Tiers))
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
