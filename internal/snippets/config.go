// Package snippets defines configuration structures and loading logic.
//
// This file contains the configuration types (source, auth, output and
// emitter settings) and functions to load configuration from a YAML file or
// the embedded defaults. Credentials can also come from the environment so
// that they never have to be written to disk.
package snippets

import (
	"embed"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed configs/*.yaml
var embeddedConfigs embed.FS

// Environment variables that override configured credentials.
const (
	EnvAccessKey = "ONSHAPE_ACCESS_KEY"
	EnvSecretKey = "ONSHAPE_SECRET_KEY"
	EnvToken     = "APISNIPPETS_TOKEN"
)

const (
	defaultTimeoutSec       = 10
	defaultCacheMaxAgeHours = 24
	defaultOutputPath       = "API_Snippets.ipynb"
)

// GeneratorConfig represents the generator configuration
type GeneratorConfig struct {
	Source  *SourceConfig  `yaml:"source,omitempty"`
	Auth    *AuthConfig    `yaml:"auth,omitempty"`
	Output  *OutputConfig  `yaml:"output,omitempty"`
	Emitter *EmitterConfig `yaml:"emitter,omitempty"`
}

// SourceConfig says where the OpenAPI document comes from
type SourceConfig struct {
	URL              string `yaml:"url,omitempty"`                 // Fetched over HTTP and cached
	File             string `yaml:"file,omitempty"`                // Local JSON or YAML file; takes precedence over URL
	Accept           string `yaml:"accept,omitempty"`              // Accept header sent with the fetch
	TimeoutSec       int    `yaml:"timeout_sec,omitempty"`         // Fetch timeout (default: 10)
	CacheMaxAgeHours int    `yaml:"cache_max_age_hours,omitempty"` // Cache freshness (default: 24)
	CacheDir         string `yaml:"cache_dir,omitempty"`           // Cache directory (default: home directory)
}

// AuthConfig contains credentials for fetching the document.
// A token selects OAuth2 bearer auth; otherwise access and secret keys are sent as Basic auth.
type AuthConfig struct {
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Token     string `yaml:"token,omitempty"`
}

// OutputConfig controls the generated notebook
type OutputConfig struct {
	Path     string   `yaml:"path,omitempty"`
	Title    string   `yaml:"title,omitempty"`
	BaseURL  string   `yaml:"base_url,omitempty"` // Offered by the notebook's setup cell
	Tags     []string `yaml:"tags,omitempty"`     // Only generate these sections
	Validate bool     `yaml:"validate,omitempty"` // Validate the notebook before writing it
}

// EmitterConfig controls snippet emission
type EmitterConfig struct {
	APIPrefix   string `yaml:"api_prefix,omitempty"`
	ExplorerURL string `yaml:"explorer_url,omitempty"`
}

// LoadGeneratorConfig loads the generator configuration.
// First tries ~/.apisnippets/config.yaml (user config); if that doesn't
// exist, loads the embedded default config.
func LoadGeneratorConfig() (*GeneratorConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".apisnippets", "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return LoadGeneratorConfigFile(configPath)
	}

	return LoadDefaultGeneratorConfig()
}

// LoadGeneratorConfigFile loads configuration from a YAML file.
// Fields missing from the file keep their embedded defaults.
func LoadGeneratorConfigFile(path string) (*GeneratorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read generator config: %w", err)
	}

	config, err := LoadDefaultGeneratorConfig()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse generator config %s: %w", path, err)
	}
	config.applyEnv()
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid generator config %s: %w", path, err)
	}

	log.Printf("Loaded generator configuration from %s", path)
	return config, nil
}

// LoadDefaultGeneratorConfig loads the embedded default configuration
func LoadDefaultGeneratorConfig() (*GeneratorConfig, error) {
	data, err := embeddedConfigs.ReadFile("configs/default.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded default config: %w", err)
	}

	var config GeneratorConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded default config: %w", err)
	}
	config.applyEnv()
	return &config, nil
}

// applyEnv overrides credentials from the environment
func (c *GeneratorConfig) applyEnv() {
	access, secret, token := os.Getenv(EnvAccessKey), os.Getenv(EnvSecretKey), os.Getenv(EnvToken)
	if access == "" && secret == "" && token == "" {
		return
	}
	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if access != "" {
		c.Auth.AccessKey = access
	}
	if secret != "" {
		c.Auth.SecretKey = secret
	}
	if token != "" {
		c.Auth.Token = token
	}
}

// validateConfig validates configuration values
func validateConfig(config *GeneratorConfig) error {
	if config.Source != nil {
		if config.Source.TimeoutSec < 0 {
			return fmt.Errorf("source.timeout_sec must be >= 0")
		}
		if config.Source.CacheMaxAgeHours < 0 {
			return fmt.Errorf("source.cache_max_age_hours must be >= 0")
		}
		if config.Source.URL != "" {
			u, err := url.Parse(config.Source.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Errorf("source.url must be an http(s) URL")
			}
		}
	}
	if config.Auth != nil {
		if (config.Auth.AccessKey == "") != (config.Auth.SecretKey == "") {
			return fmt.Errorf("auth.access_key and auth.secret_key must be set together")
		}
	}
	return nil
}

// GetSourceConfig returns the source configuration with defaults applied
func (c *GeneratorConfig) GetSourceConfig() *SourceConfig {
	src := SourceConfig{}
	if c != nil && c.Source != nil {
		src = *c.Source
	}
	if src.TimeoutSec == 0 {
		src.TimeoutSec = defaultTimeoutSec
	}
	if src.CacheMaxAgeHours == 0 {
		src.CacheMaxAgeHours = defaultCacheMaxAgeHours
	}
	return &src
}

// Timeout returns the fetch timeout
func (s *SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// CacheMaxAge returns how long a cached document stays fresh
func (s *SourceConfig) CacheMaxAge() time.Duration {
	return time.Duration(s.CacheMaxAgeHours) * time.Hour
}

// GetAuthConfig returns the auth configuration (never nil)
func (c *GeneratorConfig) GetAuthConfig() *AuthConfig {
	if c == nil || c.Auth == nil {
		return &AuthConfig{}
	}
	return c.Auth
}

// GetOutputConfig returns the output configuration with defaults applied
func (c *GeneratorConfig) GetOutputConfig() *OutputConfig {
	out := OutputConfig{}
	if c != nil && c.Output != nil {
		out = *c.Output
	}
	if out.Path == "" {
		out.Path = defaultOutputPath
	}
	return &out
}

// NewEmitter builds an Emitter from the emitter configuration
func (c *GeneratorConfig) NewEmitter() *Emitter {
	e := *DefaultEmitter
	if c != nil && c.Emitter != nil {
		if c.Emitter.APIPrefix != "" {
			e.APIPrefix = c.Emitter.APIPrefix
		}
		if c.Emitter.ExplorerURL != "" {
			e.ExplorerURL = c.Emitter.ExplorerURL
		}
	}
	return &e
}
