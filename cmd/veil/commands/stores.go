package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/veilstream/veil/internal/config"
	"github.com/veilstream/veil/internal/providers"
)

func NewStoresCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List available secret stores",
		Long: `Display information about available secret stores.

Shows both built-in store types and configured store instances.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := providers.NewRegistry()

			fmt.Println("Built-in Store Types:")
			fmt.Println("====================")

			supportedTypes := registry.GetSupportedTypes()
			sort.Strings(supportedTypes)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "TYPE\tDESCRIPTION\n")
			_, _ = fmt.Fprintf(w, "----\t-----------\n")

			for _, storeType := range supportedTypes {
				description := getStoreDescription(storeType)
				_, _ = fmt.Fprintf(w, "%s\t%s\n", storeType, description)
			}
			_ = w.Flush()

			// Show configured stores if config is available
			if err := cfg.Load(); err == nil && cfg.Definition != nil {
				fmt.Println("\nConfigured Stores:")
				fmt.Println("=================")

				stores := cfg.ListSecretStores()
				if len(stores) == 0 {
					fmt.Println("No stores configured")
				} else {
					w2 := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintf(w2, "NAME\tTYPE\tSTATUS\n")
					_, _ = fmt.Fprintf(w2, "----\t----\t------\n")

					for name, storeCfg := range stores {
						status := "configured"
						if !registry.IsSupported(storeCfg.Type) {
							status = "unsupported"
						}

						_, _ = fmt.Fprintf(w2, "%s\t%s\t%s\n", name, storeCfg.Type, status)
					}
					_ = w2.Flush()
				}
			}

			if verbose {
				fmt.Println("\nStore Details:")
				fmt.Println("=============")
				for _, storeType := range supportedTypes {
					fmt.Printf("\n%s:\n", storeType)
					details := getStoreDetails(storeType)
					for _, detail := range details {
						fmt.Printf("  • %s\n", detail)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed store information")

	return cmd
}

// getStoreDescription returns a description for a store type
func getStoreDescription(storeType string) string {
	descriptions := map[string]string{
		"literal":            "Static literal values for testing",
		"mock":               "Mock store for testing and development",
		"env":                "Environment variables of the veil process",
		"file":               "Plain files under a base directory",
		"aws.secretsmanager": "AWS Secrets Manager via SDK",
		"aws.ssm":            "AWS Systems Manager Parameter Store",
		"gcp.secretmanager":  "Google Cloud Secret Manager",
		"azure.keyvault":     "Azure Key Vault",
		"keychain":           "OS native keychain (macOS Keychain, Linux Secret Service)",
	}

	if desc, exists := descriptions[storeType]; exists {
		return desc
	}
	return "No description available"
}

// getStoreDetails returns detailed information for a store type
func getStoreDetails(storeType string) []string {
	details := map[string][]string{
		"literal": {
			"Uses static values defined in configuration",
			"Useful for non-secret configuration values",
			"No external dependencies required",
		},
		"mock": {
			"Simulates external store behavior",
			"Supports simulated failures and delays",
		},
		"env": {
			"Reads values from the current process environment",
			"Optional prefix applied to every key",
			"Key format: 'VARIABLE_NAME'",
		},
		"file": {
			"Reads values from plain files under base_dir",
			"Trailing newlines stripped unless trim_newline is false",
			"Refuses keys that escape the base directory",
			"Key format: 'relative/path/to/file'",
		},
		"aws.secretsmanager": {
			"Uses AWS SDK v2 for direct API access",
			"Supports JSON secrets with field extraction",
			"Requires AWS credentials (CLI, env vars, IAM roles)",
			"Key format: 'secret-name' or 'secret-name#.json.path'",
			"Supports versioning (AWSCURRENT, AWSPENDING, version-id)",
		},
		"aws.ssm": {
			"AWS Systems Manager Parameter Store",
			"Supports standard and SecureString parameters",
			"Automatic KMS decryption for SecureString",
			"Key format: '/path/to/parameter'",
			"Supports parameter prefixing and hierarchies",
		},
		"gcp.secretmanager": {
			"Google Cloud Secret Manager",
			"Supports versioned secrets and binary data",
			"JSON path extraction with # syntax",
			"Service account and ADC authentication",
			"Key format: 'secret-name:version' or 'secret-name#.json.path'",
		},
		"azure.keyvault": {
			"Azure Key Vault for secrets, keys, and certificates",
			"Supports versioned secrets and HSM-backed storage",
			"JSON path extraction with # syntax",
			"Managed Identity and Service Principal authentication",
			"Key format: 'secret-name/version' or 'secret-name#.json.path'",
		},
		"keychain": {
			"OS native credential storage",
			"macOS: Keychain Services (hardware-backed on Apple Silicon)",
			"Linux: Secret Service D-Bus API (gnome-keyring, KWallet)",
			"Works offline with no external dependencies",
			"Key format: 'service-name/account-name'",
		},
	}

	if detail, exists := details[storeType]; exists {
		return detail
	}
	return []string{"No details available"}
}
