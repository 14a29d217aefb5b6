package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file is not found by Load.
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Selection strategies
const (
	StrategyOneStep = "one-step"
	StrategyTwoStep = "two-step"
)

// LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultMaxInputSize bounds the raw size of a single input.
const DefaultMaxInputSize = 2 << 20

// Config represents the application configuration
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Agent is read straight from the YAML file, see Load.
	Agent AgentConfig `mapstructure:"-"`
}

// LLMConfig selects and tunes the inference backend
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// EngineConfig controls the generation pipeline
type EngineConfig struct {
	SelectionStrategy     string        `mapstructure:"selection_strategy"`
	ComponentSystem       string        `mapstructure:"component_system"`
	StrictComponentSystem bool          `mapstructure:"strict_component_system"`
	MaxInputSize          int           `mapstructure:"max_input_size"`
	Concurrency           int           `mapstructure:"concurrency"`
	UnitTimeout           time.Duration `mapstructure:"unit_timeout"`
}

// ServerConfig represents the MCP and HTTP facade settings
type ServerConfig struct {
	HTTPAddress string    `mapstructure:"http_address"`
	RateLimit   RateLimit `mapstructure:"rate_limit"`
}

// RateLimit represents rate limiting configuration
type RateLimit struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	RequestsPerHour   int `mapstructure:"requests_per_hour"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          ProviderOpenAI,
			Model:             "gpt-4o-mini",
			BaseURL:           "https://api.openai.com/v1",
			APIKey:            "env:OPENAI_API_KEY",
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RetryDelay:        500 * time.Millisecond,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Engine: EngineConfig{
			SelectionStrategy: StrategyOneStep,
			ComponentSystem:   "json",
			MaxInputSize:      DefaultMaxInputSize,
			Concurrency:       4,
			UnitTimeout:       2 * time.Minute,
		},
		Server: ServerConfig{
			HTTPAddress: "127.0.0.1:8080",
			RateLimit: RateLimit{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load loads configuration from file
func Load(configFile string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configDir := getConfigDir()
	resolvedConfigFile := configFile

	if configFile == "" || configFile == filepath.Join(configDir, "config.yaml") {
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
		if configFile == "" {
			resolvedConfigFile = filepath.Join(configDir, "config.yaml")
		}
	} else {
		v.SetConfigFile(configFile)
	}

	if _, err := os.Stat(resolvedConfigFile); os.IsNotExist(err) {
		return nil, ErrConfigNotFound
	}

	// Environment variable overrides
	v.SetEnvPrefix("NGUI_MCP")
	v.AutomaticEnv()

	_ = v.BindEnv("llm.provider", "NGUI_MCP_LLM_PROVIDER")
	_ = v.BindEnv("llm.model", "NGUI_MCP_LLM_MODEL")
	_ = v.BindEnv("llm.base_url", "NGUI_MCP_LLM_BASE_URL")
	_ = v.BindEnv("llm.api_key", "NGUI_MCP_LLM_API_KEY")
	_ = v.BindEnv("engine.selection_strategy", "NGUI_MCP_SELECTION_STRATEGY")
	_ = v.BindEnv("engine.component_system", "NGUI_MCP_COMPONENT_SYSTEM")
	_ = v.BindEnv("logging.level", "NGUI_MCP_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var vfnfError viper.ConfigFileNotFoundError
		if errors.As(err, &vfnfError) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file content: %w", err)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// viper folds key case and splits keys on dots, both of which
	// data type names rely on, so the agent section is decoded directly.
	raw, err := os.ReadFile(v.ConfigFileUsed()) // #nosec G304 - user supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file content: %w", err)
	}
	var doc struct {
		Agent AgentConfig `yaml:"agent"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse agent section: %w", err)
	}
	config.Agent = doc.Agent

	if config.Logging.File == "" {
		config.Logging.File = DefaultLogFile()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	switch c.Engine.SelectionStrategy {
	case StrategyOneStep, StrategyTwoStep:
	default:
		return fmt.Errorf("%w: engine.selection_strategy must be %q or %q, got %q",
			ErrInvalidConfig, StrategyOneStep, StrategyTwoStep, c.Engine.SelectionStrategy)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: unsupported llm.provider %q", ErrInvalidConfig, c.LLM.Provider)
	}
	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("%w: engine.concurrency must be positive", ErrInvalidConfig)
	}
	if c.Engine.MaxInputSize < 1 {
		return fmt.Errorf("%w: engine.max_input_size must be positive", ErrInvalidConfig)
	}
	return c.Agent.Validate()
}

// Save saves configuration to file
func (c *Config) Save(configFile string) error {
	if configFile == "" {
		configFile = filepath.Join(getConfigDir(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configFile)

	v.Set("llm.provider", c.LLM.Provider)
	v.Set("llm.model", c.LLM.Model)
	v.Set("llm.base_url", c.LLM.BaseURL)
	v.Set("llm.api_key", c.LLM.APIKey)
	v.Set("llm.temperature", c.LLM.Temperature)
	v.Set("llm.timeout", c.LLM.Timeout)
	v.Set("llm.max_retries", c.LLM.MaxRetries)
	v.Set("llm.retry_delay", c.LLM.RetryDelay)
	v.Set("llm.requests_per_second", c.LLM.RequestsPerSecond)
	v.Set("llm.burst", c.LLM.Burst)
	v.Set("engine.selection_strategy", c.Engine.SelectionStrategy)
	v.Set("engine.component_system", c.Engine.ComponentSystem)
	v.Set("engine.strict_component_system", c.Engine.StrictComponentSystem)
	v.Set("engine.max_input_size", c.Engine.MaxInputSize)
	v.Set("engine.concurrency", c.Engine.Concurrency)
	v.Set("engine.unit_timeout", c.Engine.UnitTimeout)
	v.Set("server.http_address", c.Server.HTTPAddress)
	v.Set("server.rate_limit.requests_per_minute", c.Server.RateLimit.RequestsPerMinute)
	v.Set("server.rate_limit.requests_per_hour", c.Server.RateLimit.RequestsPerHour)
	v.Set("logging.level", c.Logging.Level)
	v.Set("logging.file", c.Logging.File)

	if err := v.WriteConfig(); err != nil {
		return err
	}
	if c.Agent.IsZero() {
		return nil
	}

	agent, err := yaml.Marshal(map[string]AgentConfig{"agent": c.Agent})
	if err != nil {
		return fmt.Errorf("failed to encode agent section: %w", err)
	}
	f, err := os.OpenFile(configFile, os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 - user supplied config path
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(agent)
	return err
}

// SaveDefault saves configuration to the default location
func (c *Config) SaveDefault() error {
	return c.Save("")
}

// getConfigDir returns the configuration directory
func getConfigDir() string {
	if configDir := os.Getenv("NGUI_MCP_CONFIG_DIR"); configDir != "" {
		return configDir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".ngui-mcp")
	}

	return filepath.Join(homeDir, ".ngui-mcp")
}

// GetConfigDir returns the configuration directory (exported)
func GetConfigDir() string {
	return getConfigDir()
}

// EnsureConfigDir ensures the configuration directory exists
func EnsureConfigDir() error {
	return os.MkdirAll(getConfigDir(), 0700)
}

// LoadOrCreate loads existing config or creates a new one
func LoadOrCreate(configFile string) (*Config, error) {
	cfg, err := Load(configFile)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	cfg = DefaultConfig()
	finalConfigFile := configFile
	if finalConfigFile == "" || finalConfigFile == "config.yaml" {
		finalConfigFile = filepath.Join(getConfigDir(), "config.yaml")
	}
	if errSave := cfg.Save(finalConfigFile); errSave != nil {
		return nil, fmt.Errorf("failed to save default config to %s: %w", finalConfigFile, errSave)
	}
	return cfg, nil
}
