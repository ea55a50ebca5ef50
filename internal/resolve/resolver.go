package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/veilstream/veil/internal/config"
	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/veilstream/veil/internal/logging"
	"github.com/veilstream/veil/internal/secrets"
	"github.com/veilstream/veil/internal/secure"
	"github.com/veilstream/veil/pkg/provider"
)

// Resolver fetches the secrets a scope declares from their stores.
// Resolved values are held in secure buffers until they are injected
// into the child environment or added to the masking scope.
type Resolver struct {
	config    *config.Config
	providers map[string]provider.Provider
	logger    *logging.Logger
	mu        sync.RWMutex // Protects providers map for concurrent access
}

// New creates a new resolver instance
func New(cfg *config.Config) *Resolver {
	return &Resolver{
		config:    cfg,
		providers: make(map[string]provider.Provider),
		logger:    cfg.Logger,
	}
}

// RegisterProvider registers a provider for use by the resolver
func (r *Resolver) RegisterProvider(name string, p provider.Provider) {
	r.mu.Lock()
	r.providers[name] = p
	r.mu.Unlock()
	r.logger.Debug("Registered store: %s", name)
}

// GetProvider returns a registered provider by name
func (r *Resolver) GetProvider(name string) (provider.Provider, bool) {
	r.mu.RLock()
	p, exists := r.providers[name]
	r.mu.RUnlock()
	return p, exists
}

// GetRegisteredProviders returns a map of all registered providers
func (r *Resolver) GetRegisteredProviders() map[string]provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]provider.Provider)
	for name, p := range r.providers {
		result[name] = p
	}
	return result
}

// ValidateStore validates a single store with its configured timeout
func (r *Resolver) ValidateStore(ctx context.Context, storeName string) error {
	r.mu.RLock()
	prov, exists := r.providers[storeName]
	r.mu.RUnlock()
	if !exists {
		return verrors.ConfigError{
			Field:      "secretStore",
			Value:      storeName,
			Message:    "store not registered",
			Suggestion: fmt.Sprintf("Check that store '%s' is configured correctly", storeName),
		}
	}

	storeConfig, err := r.config.GetSecretStore(storeName)
	if err != nil {
		return err
	}

	timeoutMs := storeConfig.GetStoreTimeout()
	timeoutCtx, cancel := withStoreTimeout(ctx, timeoutMs)
	defer cancel()

	err = prov.Validate(timeoutCtx)
	if err != nil {
		if timeoutErr := isTimeoutError(err, storeName, timeoutMs); timeoutErr != err {
			return timeoutErr
		}
		return verrors.StoreError(storeName, "validate", err)
	}

	return nil
}

// ResolvedSecret represents a single resolved secret
type ResolvedSecret struct {
	Name   string
	Value  *secure.SecureBuffer
	Source string
	Error  error
}

// Result holds everything resolved for a scope
type Result struct {
	Secrets map[string]ResolvedSecret
}

// PlanResult represents the result of planning a scope resolution
type PlanResult struct {
	Secrets []PlannedSecret
	Errors  []error
}

// PlannedSecret represents a secret that would be resolved
type PlannedSecret struct {
	Name     string
	Source   string
	Optional bool
	Error    error
}

// Plan shows what a scope would resolve without fetching actual values
func (r *Resolver) Plan(ctx context.Context, scopeName string) (*PlanResult, error) {
	scope, err := r.config.GetScope(scopeName)
	if err != nil {
		return nil, fmt.Errorf("failed to get scope %s: %w", scopeName, err)
	}

	result := &PlanResult{
		Secrets: make([]PlannedSecret, 0, len(scope)),
		Errors:  make([]error, 0),
	}

	for name, spec := range scope {
		planned := PlannedSecret{
			Name:     name,
			Optional: spec.Optional,
		}

		if spec.Literal != "" {
			planned.Source = "literal"
		} else if spec.From != nil {
			planned.Source = fmt.Sprintf("store:%s key:%s", spec.From.Store, spec.From.Key)

			r.mu.RLock()
			_, exists := r.providers[spec.From.Store]
			r.mu.RUnlock()
			if !exists {
				planned.Error = fmt.Errorf("store '%s' not registered", spec.From.Store)
				result.Errors = append(result.Errors, planned.Error)
			}
		} else {
			planned.Error = fmt.Errorf("secret '%s' has no source (literal or from)", name)
			result.Errors = append(result.Errors, planned.Error)
		}

		result.Secrets = append(result.Secrets, planned)
	}

	return result, nil
}

// ResolveScope fetches all secrets in a named scope
func (r *Resolver) ResolveScope(ctx context.Context, scopeName string) (*Result, error) {
	scope, err := r.config.GetScope(scopeName)
	if err != nil {
		return nil, fmt.Errorf("failed to get scope %s: %w", scopeName, err)
	}

	return r.ResolveSecrets(ctx, scope)
}

// ResolveSecrets fetches all secrets declared in the given scope map.
// Stores are queried concurrently, bounded so a large scope does not
// hammer a single backend.
func (r *Resolver) ResolveSecrets(ctx context.Context, scope config.Scope) (*Result, error) {
	result := &Result{
		Secrets: make(map[string]ResolvedSecret),
	}
	resultMutex := &sync.Mutex{}

	var wg sync.WaitGroup
	errorChan := make(chan error, len(scope))

	maxConcurrent := 10
	semaphore := make(chan struct{}, maxConcurrent)

	for name, spec := range scope {
		wg.Add(1)
		go func(name string, spec config.Secret) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			resolved := r.resolveSecret(ctx, name, spec)

			// An optional secret that is simply absent is dropped, not failed
			if resolved.Error != nil && spec.Optional && isNotFound(resolved.Error) {
				r.logger.Debug("Optional secret '%s' not found, skipping", name)
				return
			}

			resultMutex.Lock()
			result.Secrets[name] = resolved
			resultMutex.Unlock()

			if resolved.Error != nil {
				errorChan <- verrors.UserError{
					Message:    fmt.Sprintf("Failed to resolve secret '%s'", name),
					Details:    resolved.Error.Error(),
					Suggestion: "Check that the store is configured correctly and the secret exists",
					Err:        resolved.Error,
				}
			}
		}(name, spec)
	}

	wg.Wait()
	close(errorChan)

	var errs []error
	for err := range errorChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		if len(errs) == 1 {
			return result, errs[0]
		}
		return result, verrors.UserError{
			Message:    fmt.Sprintf("Failed to resolve %d secrets", len(errs)),
			Details:    fmt.Sprintf("%v", errs),
			Suggestion: "Fix the errors above and try again. Use 'veil doctor' to check store connectivity",
		}
	}

	return result, nil
}

// resolveSecret resolves a single secret (can be called concurrently)
func (r *Resolver) resolveSecret(ctx context.Context, name string, spec config.Secret) ResolvedSecret {
	resolved := ResolvedSecret{
		Name: name,
	}

	var plaintext string

	if spec.Literal != "" {
		plaintext = spec.Literal
		resolved.Source = "literal"
	} else if spec.From != nil {
		value, source, err := r.resolveFromStore(ctx, spec.From)
		if err != nil {
			resolved.Error = err
			return resolved
		}
		plaintext = value
		resolved.Source = source
	} else {
		resolved.Error = verrors.ConfigError{
			Field:      name,
			Message:    "secret has no source defined",
			Suggestion: "Add either 'literal: value' or 'from: { store: name, key: keyname }' to the secret",
		}
		return resolved
	}

	buf, err := secure.NewSecureBufferFromString(plaintext)
	if err != nil {
		resolved.Error = fmt.Errorf("secret '%s' resolved to an empty value: %w", name, err)
		return resolved
	}
	resolved.Value = buf

	return resolved
}

// resolveFromStore fetches a value from the referenced store
func (r *Resolver) resolveFromStore(ctx context.Context, ref *config.Reference) (string, string, error) {
	if ref.Store == "" {
		return "", "", verrors.ConfigError{
			Field:      "store",
			Message:    "reference has no store",
			Suggestion: "Check your reference format",
		}
	}

	r.mu.RLock()
	prov, exists := r.providers[ref.Store]
	r.mu.RUnlock()
	if !exists {
		return "", "", verrors.ConfigError{
			Field:      "store",
			Value:      ref.Store,
			Message:    "store not found in configuration",
			Suggestion: fmt.Sprintf("Add store '%s' to the 'secretStores:' section of your veil.yaml", ref.Store),
		}
	}

	storeConfig, err := r.config.GetSecretStore(ref.Store)
	if err != nil {
		return "", "", err
	}

	timeoutMs := storeConfig.GetStoreTimeout()
	timeoutCtx, cancel := withStoreTimeout(ctx, timeoutMs)
	defer cancel()

	providerRef := provider.Reference{
		Provider: ref.Store,
		Key:      ref.Key,
		Version:  ref.Version,
	}

	secret, err := prov.Resolve(timeoutCtx, providerRef)
	if err != nil {
		if timeoutErr := isTimeoutError(err, ref.Store, timeoutMs); timeoutErr != err {
			return "", "", timeoutErr
		}
		if isNotFound(err) {
			return "", "", err
		}
		return "", "", verrors.StoreError(ref.Store, "resolve", err)
	}

	source := fmt.Sprintf("%s:%s", ref.Store, ref.Key)
	if secret.Version != "" {
		source += "@" + secret.Version
	}

	return secret.Value, source, nil
}

// MaskingScope builds a masking scope from all resolved values.
// The scope compiles eagerly, so a pattern problem surfaces here rather
// than on the first write.
func (res *Result) MaskingScope(name string) (*secrets.Scope, error) {
	scope := secrets.NewScope(name)

	bufs := make([]*secure.SecureBuffer, 0, len(res.Secrets))
	for _, s := range res.Secrets {
		if s.Error != nil || s.Value == nil {
			continue
		}
		bufs = append(bufs, s.Value)
	}

	if err := scope.AddSecure(bufs...); err != nil {
		return nil, err
	}

	return scope, nil
}

// Environment returns the resolved plaintext values keyed by secret name,
// for injection into a child process environment.
func (res *Result) Environment() (map[string]string, error) {
	env := make(map[string]string, len(res.Secrets))

	for name, s := range res.Secrets {
		if s.Error != nil || s.Value == nil {
			continue
		}

		locked, err := s.Value.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open secret '%s': %w", name, err)
		}
		env[name] = string(locked.Bytes())
		locked.Destroy()
	}

	return env, nil
}

// Destroy wipes all resolved secret material
func (res *Result) Destroy() {
	for _, s := range res.Secrets {
		if s.Value != nil {
			s.Value.Destroy()
		}
	}
}

// isNotFound reports whether err is a provider not-found error
func isNotFound(err error) bool {
	var notFound *provider.NotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var notFoundVal provider.NotFoundError
	return errors.As(err, &notFoundVal)
}
