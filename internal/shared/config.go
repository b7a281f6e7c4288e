package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Supported LLM providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var defaultModels = map[string]string{
	ProviderGemini:    "gemini-2.0-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	Credentials CredentialsConfig `toml:"credentials"`
	YouTube     YouTubeConfig     `toml:"youtube"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// LLMConfig selects the provider that drives the agent.
type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	MaxRounds      int    `toml:"max_rounds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	SystemPrompt   string `toml:"system_prompt"`
}

// CredentialsConfig contains provider API keys.
type CredentialsConfig struct {
	GeminiAPIKey    string `toml:"gemini_api_key"`
	OpenAIAPIKey    string `toml:"openai_api_key"`
	AnthropicAPIKey string `toml:"anthropic_api_key"`
}

// YouTubeConfig contains YouTube Music proxy settings.
type YouTubeConfig struct {
	ProxyURL          string  `toml:"proxy_url"`
	HeadersPath       string  `toml:"headers_path"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays API keys, provider and model from a .env file (if present) and the process environment.
//
// Process environment wins over .env, which wins over the TOML file.
func (c *Config) ApplyEnv(envFiles ...string) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	overlay := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	overlay(&c.Credentials.GeminiAPIKey, "GEMINI_API_KEY")
	overlay(&c.Credentials.OpenAIAPIKey, "OPENAI_API_KEY")
	overlay(&c.Credentials.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	overlay(&c.LLM.Provider, "YTCURATOR_PROVIDER")

	if c.ProviderName() == ProviderGemini {
		overlay(&c.LLM.Model, "GEMINI_MODEL_NAME")
	}
}

// ProviderName returns the normalized provider name, defaulting to gemini.
func (c *Config) ProviderName() string {
	p := strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if p == "" {
		return ProviderGemini
	}
	return p
}

// ModelName returns the configured model or the provider default.
func (c *Config) ModelName() string {
	if c.LLM.Model != "" {
		return c.LLM.Model
	}
	return defaultModels[c.ProviderName()]
}

// APIKey returns the API key for the selected provider.
func (c *Config) APIKey() string {
	switch c.ProviderName() {
	case ProviderOpenAI:
		return c.Credentials.OpenAIAPIKey
	case ProviderAnthropic:
		return c.Credentials.AnthropicAPIKey
	default:
		return c.Credentials.GeminiAPIKey
	}
}

// LLMTimeout returns the bound applied to a single provider call.
func (c *Config) LLMTimeout() time.Duration {
	if c.LLM.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// CatalogTimeout returns the bound applied to a single catalog request.
func (c *Config) CatalogTimeout() time.Duration {
	if c.YouTube.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.YouTube.TimeoutSeconds) * time.Second
}

// ValidateLLM reports whether the agent can start with this configuration.
//
// A missing key for the selected provider is the only fatal start-up condition.
func (c *Config) ValidateLLM() error {
	if _, ok := defaultModels[c.ProviderName()]; !ok {
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.LLM.Provider)
	}
	if c.APIKey() == "" {
		return fmt.Errorf("%w: no API key for provider %s", ErrMissingCredentials, c.ProviderName())
	}
	return nil
}
