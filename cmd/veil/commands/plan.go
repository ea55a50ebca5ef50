package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/veilstream/veil/internal/config"
	"github.com/veilstream/veil/internal/resolve"
)

func NewPlanCommand(cfg *config.Config) *cobra.Command {
	var (
		scopeName  string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what secrets will be resolved (no values shown)",
		Long: `Plan shows which secrets will be resolved and from which stores,
without fetching actual secret values. This is useful for debugging
configuration and verifying store wiring.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Create resolver
			resolver := resolve.New(cfg)

			// Register stores based on config
			if err := registerStores(resolver, cfg); err != nil {
				return fmt.Errorf("failed to register stores: %w", err)
			}

			// Run the plan
			ctx := context.Background()
			result, err := resolver.Plan(ctx, scopeName)
			if err != nil {
				return fmt.Errorf("failed to plan: %w", err)
			}

			// Output results
			if outputJSON {
				return outputPlanJSON(result)
			}
			return outputPlanTable(result, scopeName)
		},
	}

	cmd.Flags().StringVar(&scopeName, "scope", "", "Scope name to plan (required)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	_ = cmd.MarkFlagRequired("scope")

	return cmd
}

// outputPlanJSON outputs the plan result as JSON
func outputPlanJSON(result *resolve.PlanResult) error {
	output := map[string]interface{}{
		"secrets": result.Secrets,
		"errors":  make([]string, len(result.Errors)),
		"summary": map[string]interface{}{
			"total_secrets": len(result.Secrets),
			"error_count":   len(result.Errors),
		},
	}

	// Convert errors to strings for JSON output
	for i, err := range result.Errors {
		output["errors"].([]string)[i] = err.Error()
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// outputPlanTable outputs the plan result as a formatted table
func outputPlanTable(result *resolve.PlanResult, scopeName string) error {
	// Sort secrets by name for consistent output
	sort.Slice(result.Secrets, func(i, j int) bool {
		return result.Secrets[i].Name < result.Secrets[j].Name
	})

	// Create table writer
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "SECRET\tSOURCE\tOPTIONAL\tSTATUS\n")
	_, _ = fmt.Fprintf(w, "------\t------\t--------\t------\n")

	errorCount := 0
	for _, secret := range result.Secrets {
		status := "✓ OK"
		if secret.Error != nil {
			status = "✗ ERROR"
			errorCount++
		}

		optional := ""
		if secret.Optional {
			optional = "yes"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			secret.Name,
			secret.Source,
			optional,
			status,
		)
	}

	_ = w.Flush()

	// Print summary
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total secrets: %d\n", len(result.Secrets))
	fmt.Printf("  Ready to resolve: %d\n", len(result.Secrets)-errorCount)

	if errorCount > 0 {
		fmt.Printf("  Errors: %d\n", errorCount)
		fmt.Printf("\nErrors:\n")
		for i, err := range result.Errors {
			fmt.Printf("  %d. %s\n", i+1, err.Error())
		}

		// Suggest next steps
		fmt.Printf("\nNext steps:\n")
		if strings.Contains(strings.Join(errorStrings(result.Errors), " "), "not registered") {
			fmt.Printf("  • Configure missing stores in veil.yaml\n")
			fmt.Printf("  • Run 'veil doctor' to check store connectivity\n")
		}
		fmt.Printf("  • Fix configuration errors and try again\n")

		return fmt.Errorf("plan completed with %d errors", errorCount)
	}

	fmt.Printf("\n✓ All secrets ready to resolve!\n")
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  • Run 'veil run --scope %s -- <command>' to run with masked output\n", scopeName)
	fmt.Printf("  • Run 'veil filter --scope %s' to scrub an existing stream\n", scopeName)

	return nil
}

// Helper functions
func errorStrings(errors []error) []string {
	result := make([]string, len(errors))
	for i, err := range errors {
		result[i] = err.Error()
	}
	return result
}
