package config

import (
	"fmt"
	"os"
	"strings"

	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/veilstream/veil/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the veil.yaml structure
type Definition struct {
	Version      int                          `yaml:"version"`
	Masking      MaskingConfig                `yaml:"masking,omitempty"`
	SecretStores map[string]SecretStoreConfig `yaml:"secretStores,omitempty"`
	Scopes       map[string]Scope             `yaml:"scopes,omitempty"`
}

// MaskingConfig tunes how redaction behaves for all streams
type MaskingConfig struct {
	// Token replaces every matched secret. It must not hint at the
	// secret's length, so a fixed string rather than per-character
	// substitution.
	Token string `yaml:"token,omitempty"`
}

// SecretStoreConfig holds secret store-specific configuration
type SecretStoreConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline"`
}

// Scope is a named set of secrets to resolve and mask together
type Scope map[string]Secret

// Secret declares where a single secret value comes from
type Secret struct {
	From     *Reference `yaml:"from"`
	Literal  string     `yaml:"literal"`
	Optional bool       `yaml:"optional"`
}

// Reference points at a value inside a configured secret store
type Reference struct {
	Store   string `yaml:"store"`
	Key     string `yaml:"key"`
	Version string `yaml:"version,omitempty"`
}

// Load reads and parses the veil.yaml file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return verrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a veil.yaml file or pass --config with its location",
			}
		}
		return verrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return verrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return verrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your veil.yaml file",
		}
	}

	if err := validateDefinition(data); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// GetScope returns the configuration for a specific scope
func (c *Config) GetScope(name string) (Scope, error) {
	if c.Definition == nil {
		return nil, verrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	scope, ok := c.Definition.Scopes[name]
	if !ok {
		var available []string
		for scopeName := range c.Definition.Scopes {
			available = append(available, scopeName)
		}

		suggestion := "Check your veil.yaml for available scopes"
		if len(available) > 0 {
			suggestion = fmt.Sprintf("Available scopes: %s", strings.Join(available, ", "))
		}

		return nil, verrors.ConfigError{
			Field:      "scope",
			Value:      name,
			Message:    "scope not found",
			Suggestion: suggestion,
		}
	}

	return scope, nil
}

// GetSecretStore returns the configuration for a specific secret store
func (c *Config) GetSecretStore(name string) (SecretStoreConfig, error) {
	if c.Definition == nil {
		return SecretStoreConfig{}, verrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	if store, ok := c.Definition.SecretStores[name]; ok {
		return store, nil
	}

	var available []string
	for storeName := range c.Definition.SecretStores {
		available = append(available, storeName)
	}

	suggestion := "Add the store to the 'secretStores:' section of your veil.yaml"
	if len(available) > 0 {
		suggestion = fmt.Sprintf("Available stores: %s. %s", strings.Join(available, ", "), suggestion)
	}

	return SecretStoreConfig{}, verrors.ConfigError{
		Field:      "secretStore",
		Value:      name,
		Message:    "secret store not found in configuration",
		Suggestion: suggestion,
	}
}

// GetStoreTimeout returns the timeout for a secret store in milliseconds
func (s SecretStoreConfig) GetStoreTimeout() int {
	if s.TimeoutMs <= 0 {
		return 30000 // Default 30 seconds
	}
	return s.TimeoutMs
}

// MaskToken returns the configured mask token, or the empty string when
// the caller should fall back to the built-in default.
func (c *Config) MaskToken() string {
	if c.Definition == nil {
		return ""
	}
	return c.Definition.Masking.Token
}

// ListSecretStores returns all configured secret stores
func (c *Config) ListSecretStores() map[string]SecretStoreConfig {
	if c.Definition == nil {
		return make(map[string]SecretStoreConfig)
	}

	stores := make(map[string]SecretStoreConfig, len(c.Definition.SecretStores))
	for name, store := range c.Definition.SecretStores {
		stores[name] = store
	}
	return stores
}
