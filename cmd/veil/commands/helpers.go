package commands

import (
	"fmt"
	"sort"

	"github.com/veilstream/veil/internal/config"
	"github.com/veilstream/veil/internal/providers"
	"github.com/veilstream/veil/internal/resolve"
)

// getScopeNames returns a sorted list of scope names
func getScopeNames(scopes map[string]config.Scope) []string {
	names := make([]string, 0, len(scopes))
	for name := range scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// registerStores creates a provider for every configured secret store and
// registers it with the resolver
func registerStores(resolver *resolve.Resolver, cfg *config.Config) error {
	if cfg.Definition == nil {
		return fmt.Errorf("configuration not loaded")
	}

	registry := providers.NewRegistry()

	for name, storeConfig := range cfg.Definition.SecretStores {
		if !registry.IsSupported(storeConfig.Type) {
			cfg.Logger.Warn("Secret store type '%s' is not supported for store '%s'", storeConfig.Type, name)
			continue
		}

		prov, err := registry.CreateProvider(name, storeConfig)
		if err != nil {
			return fmt.Errorf("failed to create secret store '%s': %w", name, err)
		}

		resolver.RegisterProvider(name, prov)
		cfg.Logger.Debug("Registered secret store '%s' with type '%s'", name, storeConfig.Type)
	}

	return nil
}
