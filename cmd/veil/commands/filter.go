package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/veilstream/veil/internal/config"
	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/veilstream/veil/internal/maskio"
	"github.com/veilstream/veil/internal/resolve"
)

func NewFilterCommand(cfg *config.Config) *cobra.Command {
	var scopeName string

	cmd := &cobra.Command{
		Use:   "filter --scope <name>",
		Short: "Mask secrets in a stream read from stdin",
		Long: `Read a stream from stdin, replace every occurrence of a secret from
the given scope with ****, and write the result to stdout.

Useful for scrubbing captured logs after the fact:

  kubectl logs my-pod | veil filter --scope production
  veil filter --scope staging < build.log > build.clean.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			if err := cfg.Load(); err != nil {
				return verrors.UserError{
					Message:    "Failed to load configuration",
					Details:    err.Error(),
					Suggestion: "Check that veil.yaml exists and is valid YAML",
					Err:        err,
				}
			}

			// Create resolver
			resolver := resolve.New(cfg)

			// Register stores
			if err := registerStores(resolver, cfg); err != nil {
				return verrors.UserError{
					Message:    "Failed to register secret stores",
					Details:    err.Error(),
					Suggestion: "Check store configuration in veil.yaml. Run 'veil doctor' to diagnose",
					Err:        err,
				}
			}

			// Resolve secrets
			ctx := context.Background()
			result, err := resolver.ResolveScope(ctx, scopeName)
			if err != nil {
				if result != nil {
					result.Destroy()
				}
				return err
			}
			defer result.Destroy()

			maskScope, err := result.MaskingScope(scopeName)
			if err != nil {
				return verrors.UserError{
					Message:    "Failed to build masking patterns",
					Details:    err.Error(),
					Suggestion: "Try running with --debug for more information",
					Err:        err,
				}
			}

			var opts []maskio.Option
			if token := cfg.MaskToken(); token != "" {
				opts = append(opts, maskio.WithToken(token))
			}

			w := maskio.NewWriter(cmd.OutOrStdout(), maskScope, opts...)
			if _, err := io.Copy(w, os.Stdin); err != nil {
				_ = w.Close()
				return fmt.Errorf("failed to filter stream: %w", err)
			}

			return w.Close()
		},
	}

	cmd.Flags().StringVar(&scopeName, "scope", "", "Scope name to use (required)")
	_ = cmd.MarkFlagRequired("scope")

	return cmd
}
