// Package provider defines the core interfaces and types for secret store providers in veil.
//
// This package provides the foundational abstraction for fetching secrets from various
// storage systems like AWS Secrets Manager, AWS SSM Parameter Store, Azure Key Vault,
// Google Secret Manager, the OS keychain, and others. All provider implementations must
// implement the Provider interface so that scope resolution can treat every store the
// same way.
//
// # Provider Architecture
//
// veil resolves the secrets declared in a scope once, up front, and then uses the
// resolved values in two ways: they are injected into the child environment, and they
// feed the masking pattern that redacts the child's output. This package covers only
// the first half of that pipeline, the retrieval of values by name.
//
// The Provider interface provides a uniform API for:
//   - Resolving secret values from storage
//   - Describing secret metadata without retrieving values
//   - Validating provider configuration and connectivity
//   - Exposing provider capabilities
//
// # Implementing a Custom Provider
//
// To implement a custom provider:
//
//  1. Implement the Provider interface
//  2. Register your provider in the provider registry
//  3. Add configuration support
//
// Example:
//
//	type MyProvider struct {
//	    config MyProviderConfig
//	}
//
//	func (p *MyProvider) Name() string {
//	    return "my-provider"
//	}
//
//	func (p *MyProvider) Resolve(ctx context.Context, ref Reference) (SecretValue, error) {
//	    value, err := p.fetchSecret(ref.Key)
//	    if err != nil {
//	        return SecretValue{}, err
//	    }
//
//	    return SecretValue{
//	        Value:     value,
//	        Version:   "1",
//	        UpdatedAt: time.Now(),
//	    }, nil
//	}
//
//	// ... implement other methods
//
// # Error Handling
//
// Providers should use the standard error types defined in this package:
//   - NotFoundError for missing secrets
//   - AuthError for authentication failures
//   - Standard Go errors for other cases
//
// # Security Considerations
//
// Providers must:
//   - Never log secret values (use logging.Secret() wrapper)
//   - Validate authentication before operations
//   - Handle network timeouts gracefully
//   - Support context cancellation
//   - Use secure transport (TLS) when applicable
//
// # Threading and Concurrency
//
// Provider implementations must be thread-safe. Scope resolution fetches secrets
// concurrently, so multiple goroutines may call provider methods at once. Use
// appropriate synchronization mechanisms if your provider maintains internal state.
package provider

import (
	"context"
	"time"
)

// Provider defines the interface that all secret store providers must implement.
//
// The Provider interface abstracts different secret storage systems (AWS Secrets Manager,
// Azure Key Vault, the OS keychain, etc.) behind a common API. This enables veil to
// resolve a scope's secrets from multiple stores through a unified interface.
//
// Implementations must be thread-safe as multiple goroutines may call these methods
// concurrently.
//
// Example usage:
//
//	provider := &MyProvider{config: cfg}
//	if err := provider.Validate(ctx); err != nil {
//	    return fmt.Errorf("provider validation failed: %w", err)
//	}
//
//	ref := Reference{Provider: "my-provider", Key: "api-key"}
//	secret, err := provider.Resolve(ctx, ref)
//	if err != nil {
//	    return fmt.Errorf("failed to resolve secret: %w", err)
//	}
type Provider interface {
	// Name returns the provider's unique identifier.
	//
	// This should be a stable, lowercase identifier that matches the provider type
	// used in configuration files. Examples: "aws.secretsmanager", "azure.keyvault",
	// "keychain", "literal".
	//
	// The name is used for logging, error messages, and provider registration.
	Name() string

	// Resolve retrieves a secret value from the provider.
	//
	// This is the core method that fetches actual secret values from the storage system.
	// The Reference parameter specifies which secret to retrieve, including any
	// provider-specific addressing information.
	//
	// Implementations should:
	//   - Support context cancellation
	//   - Return NotFoundError for missing secrets
	//   - Return AuthError for authentication failures
	//   - Include metadata like version and update time when available
	//   - Never log the secret value
	Resolve(ctx context.Context, ref Reference) (SecretValue, error)

	// Describe returns metadata about a secret without retrieving its value.
	//
	// This method provides information about a secret's existence, size, version,
	// and other attributes without exposing the actual secret value. It's useful
	// for validation and for 'veil doctor' style checks.
	//
	// Returns Metadata with Exists=false if the secret doesn't exist.
	// Should not return NotFoundError - use Metadata.Exists field instead.
	Describe(ctx context.Context, ref Reference) (Metadata, error)

	// Capabilities returns the provider's supported features and limitations.
	//
	// This information is used by veil to:
	//   - Validate configuration compatibility
	//   - Enable/disable features based on provider support
	//   - Provide appropriate user feedback
	Capabilities() Capabilities

	// Validate checks if the provider is properly configured and authenticated.
	//
	// This method verifies that the provider can successfully connect to its
	// backend system and has appropriate permissions. It should be called
	// before performing any secret operations.
	//
	// Implementations should:
	//   - Test connectivity to the backend system
	//   - Verify authentication credentials
	//   - Support context cancellation and timeouts
	//   - Return specific AuthError for auth failures
	Validate(ctx context.Context) error
}

// Reference identifies a secret within a provider.
//
// Different providers use different addressing schemes for secrets:
//   - AWS Secrets Manager: Key is the secret name/ARN
//   - AWS SSM: Key is the parameter name/path
//   - Azure Key Vault: Key is the secret name
//   - Keychain: Key is the account name within the configured service
type Reference struct {
	// Provider is the name of the provider that owns this secret.
	// Must match the provider's Name() method return value.
	Provider string

	// Key identifies the secret within the provider's namespace.
	Key string

	// Version specifies a particular version of the secret.
	// Optional - if empty, the provider should return the current/latest version.
	// Version semantics are provider-specific:
	//   - AWS: "AWSCURRENT", "AWSPENDING", or UUID
	//   - GCP: Integer version number or "latest"
	//   - Others: Provider-defined versioning scheme
	Version string

	// Field specifies a particular field within a structured secret.
	// Used when secrets contain multiple fields (JSON objects, key-value pairs).
	Field string
}

// SecretValue represents a retrieved secret with its metadata.
//
// Contains the actual secret value along with version information and
// timestamps. The Value field contains the raw secret data as a string.
type SecretValue struct {
	// Value is the actual secret data as a string.
	// For binary data, this should be base64 encoded.
	// Providers must never log this field.
	Value string

	// Version identifies the specific version of this secret.
	// Format is provider-specific. May be empty if versioning not supported.
	Version string

	// UpdatedAt indicates when this secret was last modified.
	// May be zero time if the provider doesn't support timestamps.
	UpdatedAt time.Time

	// Metadata contains provider-specific information about the secret.
	Metadata map[string]string
}

// Metadata describes a secret without exposing its value.
//
// Used by the Describe method to provide information about a secret's
// existence, properties, and attributes without retrieving the actual value.
type Metadata struct {
	// Exists indicates whether the secret exists in the provider.
	// If false, other fields may be empty or meaningless.
	Exists bool

	// Version identifies the current version of the secret.
	Version string

	// UpdatedAt indicates when the secret was last modified.
	UpdatedAt time.Time

	// Size is the approximate size of the secret value in bytes.
	// May be 0 if not supported or not available.
	Size int

	// Type describes the kind of secret (password, certificate, api_key, etc.).
	// Provider-specific classification. May be empty.
	Type string

	// Tags contains provider-specific metadata and labels.
	Tags map[string]string
}

// Capabilities describes what features and operations a provider supports.
type Capabilities struct {
	// SupportsVersioning indicates if the provider maintains multiple versions
	// of secrets and can retrieve specific versions.
	SupportsVersioning bool

	// SupportsMetadata indicates if the provider supports additional metadata
	// like tags, descriptions, and custom attributes beyond the secret value.
	SupportsMetadata bool

	// SupportsBinary indicates if the provider can store and retrieve binary data
	// (certificates, keys) or only text-based secrets.
	SupportsBinary bool

	// RequiresAuth indicates if the provider requires authentication to access secrets.
	// If false, the provider may work without credentials (e.g., literal provider).
	RequiresAuth bool

	// AuthMethods lists the authentication methods supported by this provider.
	// Common values include:
	//   - "api_key": API key/token authentication
	//   - "iam": Cloud IAM roles
	//   - "certificate": Client certificate authentication
	//   - "cli": CLI-based authentication (like aws configure)
	//   - "os": OS-level authentication (keychain unlock)
	AuthMethods []string
}

// NotFoundError indicates that a requested secret does not exist in the provider.
//
// Providers should return this error when a secret reference points to a
// non-existent secret. This is distinct from authentication failures or
// permission errors.
type NotFoundError struct {
	// Provider is the name of the provider where the secret was not found.
	Provider string

	// Key is the secret identifier that could not be found.
	Key string
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	return "secret not found: " + e.Key + " in " + e.Provider
}

// AuthError indicates that authentication to the provider failed.
//
// This error should be returned when:
//   - Credentials are invalid or expired
//   - Authentication method is not supported
//   - Permission is denied for the requested operation
type AuthError struct {
	// Provider is the name of the provider that failed authentication.
	Provider string

	// Message provides details about the authentication failure.
	Message string
}

// Error implements the error interface.
func (e AuthError) Error() string {
	return "authentication failed for " + e.Provider + ": " + e.Message
}
