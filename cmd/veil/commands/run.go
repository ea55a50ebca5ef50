package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veilstream/veil/internal/config"
	"github.com/veilstream/veil/internal/decorate"
	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/veilstream/veil/internal/execenv"
	"github.com/veilstream/veil/internal/maskio"
	"github.com/veilstream/veil/internal/metrics"
	"github.com/veilstream/veil/internal/resolve"
)

func NewRunCommand(cfg *config.Config) *cobra.Command {
	var (
		scopeName     string
		node          string
		printVars     bool
		allowOverride bool
		workingDir    string
		timeout       int
		enableMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "run --scope <name> -- <command> [args...]",
		Short: "Execute command with secrets injected and output masked",
		Long: `Execute a command with secrets resolved from configured stores.
Secrets are injected into the child process environment and every
occurrence of a secret value in the process output is replaced with
**** before it reaches stdout or stderr.

The command must be separated from veil arguments with '--'.

Examples:
  veil run --scope development -- npm start
  veil run --scope production -- docker compose up
  veil run --scope staging --print -- python app.py`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate arguments
			if len(args) == 0 {
				return verrors.UserError{
					Message:    "No command specified",
					Suggestion: "Use: veil run --scope <name> -- <command> [args...]",
				}
			}

			// Validate command
			if err := execenv.ValidateCommand(args); err != nil {
				cfg.Logger.Warn("Command validation: %s", err.Error())
			}

			// Load configuration
			if err := cfg.Load(); err != nil {
				return verrors.UserError{
					Message:    "Failed to load configuration",
					Details:    err.Error(),
					Suggestion: "Check that veil.yaml exists and is valid YAML",
					Err:        err,
				}
			}

			if enableMetrics {
				metrics.InitMetrics()
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
				// The resolver already returns user-friendly errors
				if result != nil {
					result.Destroy()
				}
				return err
			}
			defer result.Destroy()

			cfg.Logger.Info("Successfully resolved %d secrets", len(result.Secrets))

			// Build the masking scope before the command starts. A compile
			// failure here means nothing runs with unmasked output.
			maskScope, err := result.MaskingScope(scopeName)
			if err != nil {
				metrics.RecordPatternRebuild(scopeName, "error")
				return verrors.UserError{
					Message:    "Failed to build masking patterns",
					Details:    err.Error(),
					Suggestion: "The command was not started. Try running with --debug for more information",
					Err:        err,
				}
			}
			metrics.RecordPatternRebuild(scopeName, "ok")
			metrics.RecordActiveSecrets(scopeName, maskScope.Len())

			// Route our own diagnostics through masking too
			maskingOpts := []decorate.MaskingOption{}
			if token := cfg.MaskToken(); token != "" {
				maskingOpts = append(maskingOpts, decorate.WithMaskToken(token))
			}
			if enableMetrics {
				maskingOpts = append(maskingOpts, decorate.WithStreamRecorder(
					func(dctx *decorate.ExecContext) maskio.Recorder {
						return metrics.NewStreamRecorder(dctx.Node(), dctx.Channel())
					}))
			}

			registry := decorate.NewRegistry()
			registry.Register(decorate.NewMaskingFactory(decorate.StaticSource(maskScope), maskingOpts...))

			// Convert to environment map
			environment, err := result.Environment()
			if err != nil {
				return verrors.UserError{
					Message:    "Failed to prepare environment",
					Details:    err.Error(),
					Suggestion: "This may indicate a memory protection issue",
					Err:        err,
				}
			}

			// Create executor
			executor := execenv.New(cfg.Logger, registry)

			options := execenv.RunOptions{
				Command:       args,
				Environment:   environment,
				Node:          node,
				AllowOverride: allowOverride,
				PrintVars:     printVars,
				WorkingDir:    workingDir,
				Timeout:       timeout,
			}

			runErr := executor.Run(ctx, options)

			var cmdErr verrors.CommandError
			if errors.As(runErr, &cmdErr) && cmdErr.ExitCode != 0 {
				// Preserve the exit code from the child process
				result.Destroy()
				fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
				os.Exit(cmdErr.ExitCode)
			}

			return runErr
		},
	}

	cmd.Flags().StringVar(&scopeName, "scope", "", "Scope name to use (required)")
	cmd.Flags().StringVar(&node, "node", "", "Node label for the output channels")
	cmd.Flags().BoolVar(&printVars, "print", false, "Print resolved variables (values masked)")
	cmd.Flags().BoolVar(&allowOverride, "allow-override", false, "Allow existing environment variables to override resolved values")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "Working directory for the command")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Command timeout in seconds (0 for no timeout)")
	cmd.Flags().BoolVar(&enableMetrics, "metrics", false, "Record Prometheus metrics for masking activity")

	_ = cmd.MarkFlagRequired("scope")

	return cmd
}
