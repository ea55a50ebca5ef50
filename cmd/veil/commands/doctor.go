package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/veilstream/veil/internal/config"
	"github.com/veilstream/veil/internal/resolve"
	"github.com/veilstream/veil/pkg/provider"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var (
		verbose   bool
		scopeName string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check secret store connectivity and configuration",
		Long: `Verify that secret stores are properly configured and accessible.

This command checks:
- Configuration file validity
- Store authentication and connectivity
- Scope definitions

Use --scope to also validate a specific scope configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			cfg.Logger.Info("Checking veil configuration...")
			if err := cfg.Load(); err != nil {
				cfg.Logger.Error("Configuration error: %v", err)
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.Logger.Info("✓ Configuration loaded successfully")

			// Create resolver
			resolver := resolve.New(cfg)

			// Register and validate stores
			if err := registerStores(resolver, cfg); err != nil {
				cfg.Logger.Error("Store registration error: %v", err)
				return fmt.Errorf("failed to register stores: %w", err)
			}

			// Check each store
			ctx := context.Background()
			results := make([]StoreHealth, 0)

			for name, storeConfig := range cfg.Definition.SecretStores {
				health := StoreHealth{
					Name:   name,
					Type:   storeConfig.Type,
					Status: "checking",
				}

				// Get the registered provider
				prov, exists := resolver.GetProvider(name)
				if !exists {
					health.Status = "error"
					health.Error = "secret store not registered"
					health.Suggestions = []string{
						fmt.Sprintf("Secret store type '%s' may not be implemented", storeConfig.Type),
					}
					results = append(results, health)
					continue
				}

				// Validate store with timeout
				health.Capabilities = prov.Capabilities()
				if err := resolver.ValidateStore(ctx, name); err != nil {
					health.Status = "error"
					health.Error = err.Error()
					health.Suggestions = getSuggestions(storeConfig.Type, err)
				} else {
					health.Status = "healthy"
					health.Message = "Store is ready"
				}

				results = append(results, health)
			}

			// Display results
			displayHealthResults(results, verbose)

			// Check specific scope if requested
			if scopeName != "" {
				cfg.Logger.Info("\nChecking scope: %s", scopeName)
				if err := checkScope(ctx, resolver, scopeName); err != nil {
					return fmt.Errorf("scope check failed: %w", err)
				}
			}

			// Summary
			healthy := 0
			for _, result := range results {
				if result.Status == "healthy" {
					healthy++
				}
			}

			fmt.Printf("\nSummary: %d/%d stores healthy\n", healthy, len(results))
			if healthy < len(results) {
				return fmt.Errorf("some stores are not healthy")
			}

			cfg.Logger.Info("✓ All systems operational!")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed store information")
	cmd.Flags().StringVar(&scopeName, "scope", "", "Also check specific scope configuration")

	return cmd
}

// StoreHealth represents the health status of a secret store
type StoreHealth struct {
	Name         string
	Type         string
	Status       string // healthy, error, checking
	Error        string
	Message      string
	Capabilities provider.Capabilities
	Suggestions  []string
}

// displayHealthResults shows store health in a formatted table
func displayHealthResults(results []StoreHealth, verbose bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "STORE\tTYPE\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t----\t------\t-------\n")

	for _, result := range results {
		status := result.Status
		message := result.Message
		if result.Error != "" {
			message = result.Error
		}

		// Add status emoji
		switch result.Status {
		case "healthy":
			status = "✓ " + status
		case "error":
			status = "✗ " + status
		default:
			status = "? " + status
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			result.Name, result.Type, status, message)
	}

	_ = w.Flush()

	// Show detailed info if verbose
	if verbose {
		for _, result := range results {
			if result.Status == "error" && len(result.Suggestions) > 0 {
				fmt.Printf("\n%s (%s) suggestions:\n", result.Name, result.Type)
				for _, suggestion := range result.Suggestions {
					fmt.Printf("  • %s\n", suggestion)
				}
			}

			if result.Status == "healthy" {
				fmt.Printf("\n%s capabilities:\n", result.Name)
				caps := result.Capabilities
				fmt.Printf("  • Versioning: %t\n", caps.SupportsVersioning)
				fmt.Printf("  • Metadata: %t\n", caps.SupportsMetadata)
				fmt.Printf("  • Auth required: %t\n", caps.RequiresAuth)
				if len(caps.AuthMethods) > 0 {
					fmt.Printf("  • Auth methods: %v\n", caps.AuthMethods)
				}
			}
		}
	}
}

// getSuggestions returns helpful suggestions for store errors
func getSuggestions(storeType string, err error) []string {
	suggestions := make([]string, 0)
	msg := err.Error()

	switch storeType {
	case "aws.secretsmanager":
		suggestions = append(suggestions, "Configure AWS credentials via CLI, env vars, or IAM roles")
		if strings.Contains(msg, "authentication") || strings.Contains(msg, "credentials") {
			suggestions = append(suggestions, "Run: aws configure")
			suggestions = append(suggestions, "Or set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
			suggestions = append(suggestions, "Verify with: aws sts get-caller-identity")
		}
		if strings.Contains(msg, "region") {
			suggestions = append(suggestions, "Set AWS_REGION or configure region in veil.yaml")
		}

	case "aws.ssm":
		suggestions = append(suggestions, "Configure AWS credentials via CLI, env vars, or IAM roles")
		suggestions = append(suggestions, "Run: aws configure")
		suggestions = append(suggestions, "Or set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")

	case "gcp.secretmanager":
		suggestions = append(suggestions, "Authenticate with: gcloud auth application-default login")
		if strings.Contains(msg, "project") {
			suggestions = append(suggestions, "Set project_id in veil.yaml or GOOGLE_CLOUD_PROJECT")
		}

	case "azure.keyvault":
		suggestions = append(suggestions, "Authenticate with: az login")
		suggestions = append(suggestions, "Verify vault_url is set in veil.yaml")

	case "keychain":
		suggestions = append(suggestions, "Unlock the OS keychain and retry")
		if strings.Contains(msg, "headless") {
			suggestions = append(suggestions, "Keychain access is not available over SSH or in CI")
		}

	default:
		suggestions = append(suggestions, "Check store documentation")
		suggestions = append(suggestions, "Verify store configuration in veil.yaml")
	}

	return suggestions
}

// checkScope validates a specific scope configuration
func checkScope(ctx context.Context, resolver *resolve.Resolver, scopeName string) error {
	// Run plan to check the scope
	result, err := resolver.Plan(ctx, scopeName)
	if err != nil {
		return fmt.Errorf("failed to plan scope: %w", err)
	}

	// Display results
	errorCount := 0
	for _, secret := range result.Secrets {
		if secret.Error != nil {
			errorCount++
		}
	}

	fmt.Printf("Scope '%s': %d secrets, %d errors\n", scopeName, len(result.Secrets), errorCount)

	if errorCount > 0 {
		fmt.Println("\nSecret errors:")
		for _, secret := range result.Secrets {
			if secret.Error != nil {
				fmt.Printf("  ✗ %s: %s\n", secret.Name, secret.Error.Error())
			}
		}
		return fmt.Errorf("scope has %d secret errors", errorCount)
	}

	fmt.Printf("✓ Scope '%s' is ready\n", scopeName)
	return nil
}
