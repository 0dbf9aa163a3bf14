package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/codefionn/charwizard/internal/consts"
	"github.com/codefionn/charwizard/internal/credential"
	"github.com/codefionn/charwizard/internal/llm"
	"github.com/codefionn/charwizard/internal/runware"
)

const appName = "charwizard"

// RunwareConfig holds image-generation settings
type RunwareConfig struct {
	APIKey               string `json:"api_key,omitempty" env:"CHARWIZARD_RUNWARE_API_KEY"`
	Endpoint             string `json:"endpoint" env:"CHARWIZARD_RUNWARE_ENDPOINT"`
	ReconnectDelayMS     int    `json:"reconnect_delay_ms" env:"CHARWIZARD_RUNWARE_RECONNECT_DELAY_MS"`
	MaxReconnectAttempts int    `json:"max_reconnect_attempts" env:"CHARWIZARD_RUNWARE_MAX_RECONNECT_ATTEMPTS"` // 0 retries forever
}

// GroqConfig holds character-generation settings
type GroqConfig struct {
	APIKey      string  `json:"api_key,omitempty" env:"CHARWIZARD_GROQ_API_KEY"`
	BaseURL     string  `json:"base_url" env:"CHARWIZARD_GROQ_BASE_URL"`
	Model       string  `json:"model" env:"CHARWIZARD_GROQ_MODEL"`
	Temperature float64 `json:"temperature" env:"CHARWIZARD_GROQ_TEMPERATURE"`
	MaxTokens   int     `json:"max_tokens" env:"CHARWIZARD_GROQ_MAX_TOKENS"`
}

// ExaConfig holds Exa contents API settings
type ExaConfig struct {
	APIKey  string `json:"api_key,omitempty" env:"CHARWIZARD_EXA_API_KEY"`
	BaseURL string `json:"base_url" env:"CHARWIZARD_EXA_BASE_URL"`
}

// Config represents application configuration
type Config struct {
	LogLevel string        `json:"log_level" env:"CHARWIZARD_LOG_LEVEL"` // debug, info, warn, error, none
	LogPath  string        `json:"log_path,omitempty" env:"CHARWIZARD_LOG_PATH"`
	Runware  RunwareConfig `json:"runware"`
	Groq     GroqConfig    `json:"groq"`
	Exa      ExaConfig     `json:"exa"`
}

func defaultConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", appName)
}

func defaultStateDir() string {
	if runtime.GOOS == "windows" {
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
	}
	if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
		return filepath.Join(stateHome, appName)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "state", appName)
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		LogPath:  filepath.Join(defaultStateDir(), appName+".log"),
		Runware: RunwareConfig{
			Endpoint:         consts.RunwareEndpoint,
			ReconnectDelayMS: int(consts.ReconnectDelay / time.Millisecond),
		},
		Groq: GroqConfig{
			BaseURL:     consts.GroqBaseURL,
			Model:       consts.GroqModel,
			Temperature: consts.GroqTemperature,
			MaxTokens:   consts.GroqMaxTokens,
		},
		Exa: ExaConfig{
			BaseURL: consts.ExaBaseURL,
		},
	}
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// Load reads the file at path over the defaults and then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from CHARWIZARD_* environment variables. Unset
// variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Runware.Endpoint == "" {
		c.Runware.Endpoint = def.Runware.Endpoint
	}
	if c.Runware.ReconnectDelayMS <= 0 {
		c.Runware.ReconnectDelayMS = def.Runware.ReconnectDelayMS
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = def.Groq.BaseURL
	}
	if c.Groq.Model == "" {
		c.Groq.Model = def.Groq.Model
	}
	if c.Groq.MaxTokens <= 0 {
		c.Groq.MaxTokens = def.Groq.MaxTokens
	}
	if c.Exa.BaseURL == "" {
		c.Exa.BaseURL = def.Exa.BaseURL
	}
}

// Save writes the configuration. The file holds API keys, so it is only
// readable by the owner.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// RunwareClientConfig derives the image client configuration.
func (c *Config) RunwareClientConfig() *runware.Config {
	cfg := runware.DefaultConfig()
	if c.Runware.Endpoint != "" {
		cfg.Endpoint = c.Runware.Endpoint
	}
	if c.Runware.ReconnectDelayMS > 0 {
		cfg.ReconnectDelay = time.Duration(c.Runware.ReconnectDelayMS) * time.Millisecond
	}
	cfg.MaxReconnectAttempts = c.Runware.MaxReconnectAttempts
	return cfg
}

// GeneratorConfig derives the character generator configuration.
func (c *Config) GeneratorConfig() llm.GeneratorConfig {
	cfg := llm.DefaultGeneratorConfig()
	if c.Groq.BaseURL != "" {
		cfg.BaseURL = c.Groq.BaseURL
	}
	if c.Groq.Model != "" {
		cfg.Model = c.Groq.Model
	}
	if c.Groq.Temperature > 0 {
		cfg.Temperature = c.Groq.Temperature
	}
	if c.Groq.MaxTokens > 0 {
		cfg.MaxTokens = c.Groq.MaxTokens
	}
	return cfg
}

// RunwareCredential returns the Runware key provider.
func (c *Config) RunwareCredential() credential.Provider {
	return credential.Static(c.Runware.APIKey)
}

// GroqCredential returns the Groq key provider.
func (c *Config) GroqCredential() credential.Provider {
	return credential.Static(c.Groq.APIKey)
}

// ExaCredential returns the Exa key provider.
func (c *Config) ExaCredential() credential.Provider {
	return credential.Static(c.Exa.APIKey)
}
