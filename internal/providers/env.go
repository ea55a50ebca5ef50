package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/veilstream/veil/pkg/provider"
)

// EnvProvider resolves secrets from the current process environment.
// Useful when the secret is already injected by an outer system (CI,
// container orchestrator) and only needs to be masked downstream.
type EnvProvider struct {
	name   string
	prefix string
}

// NewEnvProvider creates a new environment variable provider
func NewEnvProvider(name string, config map[string]interface{}) *EnvProvider {
	p := &EnvProvider{name: name}

	if config != nil {
		if prefix, ok := config["prefix"].(string); ok {
			p.prefix = prefix
		}
	}

	return p
}

// Name returns the provider's name
func (e *EnvProvider) Name() string {
	return e.name
}

// Resolve reads an environment variable
func (e *EnvProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	key := e.prefix + ref.Key

	value, exists := os.LookupEnv(key)
	if !exists {
		return provider.SecretValue{}, &provider.NotFoundError{
			Provider: e.name,
			Key:      key,
		}
	}

	return provider.SecretValue{
		Value: value,
		Metadata: map[string]string{
			"provider": e.name,
			"variable": key,
		},
	}, nil
}

// Describe reports whether the variable is set without exposing its value
func (e *EnvProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	key := e.prefix + ref.Key

	value, exists := os.LookupEnv(key)
	if !exists {
		return provider.Metadata{Exists: false}, nil
	}

	return provider.Metadata{
		Exists: true,
		Size:   len(value),
		Type:   "string",
		Tags: map[string]string{
			"provider": e.name,
			"variable": key,
		},
	}, nil
}

// Capabilities returns the provider's capabilities
func (e *EnvProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsVersioning: false,
		SupportsMetadata:   true,
		SupportsBinary:     false,
		RequiresAuth:       false,
		AuthMethods:        []string{},
	}
}

// Validate checks if the provider is properly configured
func (e *EnvProvider) Validate(ctx context.Context) error {
	// A prefix with whitespace cannot match any variable name
	if strings.ContainsAny(e.prefix, " \t") {
		return fmt.Errorf("invalid environment variable prefix: %q", e.prefix)
	}
	return nil
}
