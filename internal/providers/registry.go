package providers

import (
	"fmt"

	"github.com/veilstream/veil/internal/config"
	"github.com/veilstream/veil/pkg/provider"
)

// Registry manages provider creation and registration
type Registry struct {
	factories map[string]ProviderFactory
}

// ProviderFactory creates a provider instance from configuration
type ProviderFactory func(name string, config map[string]interface{}) (provider.Provider, error)

// NewRegistry creates a new provider registry with built-in providers
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]ProviderFactory),
	}

	// Register built-in providers
	registry.RegisterFactory("literal", NewLiteralProviderFactory)
	registry.RegisterFactory("mock", NewMockProviderFactory)
	registry.RegisterFactory("env", NewEnvProviderFactory)
	registry.RegisterFactory("file", NewFileProviderFactory)
	registry.RegisterFactory("keychain", NewKeychainProviderFactory)
	registry.RegisterFactory("aws.secretsmanager", NewAWSSecretsManagerProviderFactory)
	registry.RegisterFactory("aws.ssm", NewAWSSSMProviderFactory)
	registry.RegisterFactory("gcp.secretmanager", NewGCPSecretManagerProviderFactory)
	registry.RegisterFactory("azure.keyvault", NewAzureKeyVaultProviderFactory)

	return registry
}

// RegisterFactory registers a provider factory for a given type
func (r *Registry) RegisterFactory(providerType string, factory ProviderFactory) {
	r.factories[providerType] = factory
}

// CreateProvider creates a provider instance from a secret store configuration
func (r *Registry) CreateProvider(name string, cfg config.SecretStoreConfig) (provider.Provider, error) {
	factory, exists := r.factories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unknown secret store type: %s", cfg.Type)
	}

	return factory(name, cfg.Config)
}

// GetSupportedTypes returns a list of supported provider types
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for providerType := range r.factories {
		types = append(types, providerType)
	}
	return types
}

// IsSupported checks if a provider type is supported
func (r *Registry) IsSupported(providerType string) bool {
	_, exists := r.factories[providerType]
	return exists
}

// Factory functions for built-in providers

// NewLiteralProviderFactory creates a literal provider factory
func NewLiteralProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	values := make(map[string]string)
	if configMap, ok := config["values"].(map[string]interface{}); ok {
		for k, v := range configMap {
			if str, ok := v.(string); ok {
				values[k] = str
			}
		}
	}
	return NewLiteralProvider(name, values), nil
}

// NewMockProviderFactory creates a mock provider factory
func NewMockProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	mockProvider := NewMockProvider(name)

	// Add any configured values
	if values, ok := config["values"].(map[string]interface{}); ok {
		for k, v := range values {
			if str, ok := v.(string); ok {
				mockProvider.SetValue(k, str)
			}
		}
	}

	return mockProvider, nil
}

// NewEnvProviderFactory creates an environment variable provider factory
func NewEnvProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewEnvProvider(name, config), nil
}

// NewFileProviderFactory creates a file provider factory
func NewFileProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewFileProvider(name, config)
}

// NewKeychainProviderFactory creates an OS keychain provider factory
func NewKeychainProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewKeychainProvider(name, config), nil
}
