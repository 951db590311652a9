// Package config loads the YAML configuration for the API server and the catalog loader.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the shelfwise configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	Recommend RecommendConfig `yaml:"recommend"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port              int `yaml:"port"`
	ReadTimeoutSec    int `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int `yaml:"write_timeout_sec"`
	ShutdownSec       int `yaml:"shutdown_timeout_sec"`
	// SuggestRatePerMin caps autocomplete calls per client IP. Unset means 120;
	// an explicit 0 disables the limit.
	SuggestRatePerMin *int `yaml:"suggest_rate_per_min"`
}

// SuggestLimit returns the per-IP autocomplete limit, 0 when unlimited.
func (h HTTPConfig) SuggestLimit() int {
	if h.SuggestRatePerMin == nil {
		return 0
	}
	return *h.SuggestRatePerMin
}

// RecommendConfig holds similarity search settings.
type RecommendConfig struct {
	Neighbors int `yaml:"neighbors"` // similar books returned per resolved title
}

// DatabaseConfig holds catalog store settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres, valkey (default: postgres)

	// postgres
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`

	// valkey
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	KeyPrefix string   `yaml:"key_prefix"` // also names the search index

	Dimensions       int `yaml:"dimensions"`
	ReadinessTimeout int `yaml:"readiness_timeout_sec"`
	QueryTimeoutSec  int `yaml:"query_timeout_sec"`
}

// LLMConfig holds the generative model settings for the deep dive.
type LLMConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	SystemInstruction string        `yaml:"system_instruction"`
	TimeoutSec        int           `yaml:"timeout_sec"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float32       `yaml:"temperature"`
	HealthCheck       bool          `yaml:"health_check"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds the LLM circuit breaker settings.
type BreakerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	MaxFailures    uint32 `yaml:"max_failures"`     // consecutive failures before opening
	OpenTimeoutSec int    `yaml:"open_timeout_sec"` // time spent open before a probe
}

// EmbeddingConfig holds the encoder endpoint used by the catalog loader.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // metrics label only
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// AuthConfig holds access gate settings.
type AuthConfig struct {
	Provider         string    `yaml:"provider"` // oidc, hmac (default: oidc)
	Issuer           string    `yaml:"issuer"`
	Audience         string    `yaml:"audience"`
	JWKSURL          string    `yaml:"jwks_url"`
	FirebaseProject  string    `yaml:"firebase_project"`
	HMACSecret       string    `yaml:"hmac_secret"`
	AuthorizedEmails EmailList `yaml:"authorized_emails"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins        []string `yaml:"allowed_origins"`
	AllowedOriginPatterns []string `yaml:"allowed_origin_patterns"` // regular expressions
}

// EmailList accepts either a YAML sequence or a comma-separated scalar.
type EmailList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *EmailList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, e := range strings.Split(n.Value, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
		*l = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return fmt.Errorf("authorized_emails: %w", err)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("authorized_emails: unsupported yaml kind %d", n.Kind)
	}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.SuggestRatePerMin == nil {
		rate := 120
		c.HTTP.SuggestRatePerMin = &rate
	}

	if c.Recommend.Neighbors <= 0 {
		c.Recommend.Neighbors = 5
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "shelfwise:"
	}
	if c.Database.Dimensions <= 0 {
		c.Database.Dimensions = 384
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.QueryTimeoutSec <= 0 {
		c.Database.QueryTimeoutSec = 5
	}

	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-1.5-flash"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 45
	}
	if c.LLM.Breaker.MaxFailures == 0 {
		c.LLM.Breaker.MaxFailures = 5
	}
	if c.LLM.Breaker.OpenTimeoutSec <= 0 {
		c.LLM.Breaker.OpenTimeoutSec = 30
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = c.Database.Dimensions
	}

	if c.Auth.Provider == "" {
		c.Auth.Provider = "oidc"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if c.HTTP.SuggestLimit() < 0 {
		return fmt.Errorf("http.suggest_rate_per_min must not be negative, got %d", c.HTTP.SuggestLimit())
	}
	if c.Recommend.Neighbors > 50 {
		return fmt.Errorf("recommend.neighbors must be at most 50, got %d", c.Recommend.Neighbors)
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	case "valkey":
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required for the valkey driver")
		}
	default:
		return fmt.Errorf("database.driver must be \"postgres\" or \"valkey\", got %q", c.Database.Driver)
	}

	if c.Embedding.Dimensions != c.Database.Dimensions {
		return fmt.Errorf("embedding.dimensions (%d) must match database.dimensions (%d)",
			c.Embedding.Dimensions, c.Database.Dimensions)
	}

	switch c.Auth.Provider {
	case "oidc":
		if c.Auth.Issuer == "" && c.Auth.FirebaseProject == "" {
			return errors.New("auth.issuer or auth.firebase_project is required for the oidc provider")
		}
	case "hmac":
		if len(c.Auth.HMACSecret) < 16 {
			return errors.New("auth.hmac_secret must be at least 16 bytes")
		}
	default:
		return fmt.Errorf("auth.provider must be \"oidc\" or \"hmac\", got %q", c.Auth.Provider)
	}

	for _, p := range c.CORS.AllowedOriginPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("cors.allowed_origin_patterns: %q: %w", p, err)
		}
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
