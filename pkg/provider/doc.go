// Package provider defines the core interfaces and types for secret store providers in veil.
//
// This package serves as the foundational abstraction layer for accessing secrets from various
// storage systems like AWS Secrets Manager, AWS SSM, Azure Key Vault, Google Secret Manager,
// and the OS keychain. It provides a unified interface that enables veil to resolve a scope's
// secrets from multiple storage systems through consistent APIs.
//
// # Architecture Overview
//
// The provider package is part of veil's layered architecture:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                    CLI Commands                             │
//	│               (cmd/veil/commands/)                          │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                Scope Resolution                             │
//	│              (internal/resolve/)                            │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                Provider Interface                           │
//	│                 (pkg/provider/)                ◄────────────┤
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│              Provider Implementations                       │
//	│              (internal/providers/)                          │
//	│                                                             │
//	│  ┌─────────────┐  ┌─────────────┐  ┌─────────────┐          │
//	│  │     AWS     │  │    Azure    │  │  Keychain   │  ...     │
//	│  │  Providers  │  │  Key Vault  │  │  Provider   │          │
//	│  └─────────────┘  └─────────────┘  └─────────────┘          │
//	└─────────────────────────────────────────────────────────────┘
//
// Resolved values flow two ways from there: into the child process environment, and
// into the masking pattern that redacts the child's output streams.
//
// # Key Design Principles
//
// ## Retrieval Only
//
// This package focuses exclusively on secret store providers, systems that store and
// retrieve secret values. It does NOT handle:
//   - Output redaction (handled by internal/maskio and internal/decorate)
//   - Pattern construction (handled by internal/pattern)
//   - Secret material in transit (handled by internal/secure)
//
// ## Uniform Interface
//
// All provider implementations must implement the Provider interface, ensuring:
//   - Consistent error handling across all secret stores
//   - Standardized capability negotiation
//   - Unified configuration and validation patterns
//   - Common metadata and versioning support
//
// # Provider Interface
//
// The core Provider interface defines five essential methods:
//
//   - Name(): Unique identifier for the provider
//   - Resolve(): Retrieve secret values from storage
//   - Describe(): Get secret metadata without retrieving values
//   - Capabilities(): Expose provider features and limitations
//   - Validate(): Verify configuration and connectivity
//
// # Error Handling
//
// The package defines standardized error types:
//   - NotFoundError: Secret doesn't exist in the provider
//   - AuthError: Authentication failed
//   - General Go errors: For other failure cases
//
// This standardization enables consistent error handling across the application
// regardless of which provider is being used.
//
// # Threading and Concurrency
//
// All Provider implementations must be thread-safe. Scope resolution fetches secrets
// in parallel, so multiple goroutines may call provider methods concurrently.
//
// # Registration and Discovery
//
// Providers are registered with the provider registry (internal/providers/registry.go)
// and constructed through factory functions keyed by the 'type' field of each
// secretStores entry in veil.yaml. Provider names in configurations must match
// Name() return values, and provider-specific configuration is passed to the
// factory functions.
package provider
