package execenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/veilstream/veil/internal/decorate"
	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/veilstream/veil/internal/logging"
)

// Executor runs commands with resolved secrets in the environment and
// masking filters installed on every output channel.
type Executor struct {
	logger   *logging.Logger
	registry *decorate.Registry
}

// New creates a new executor
func New(logger *logging.Logger, registry *decorate.Registry) *Executor {
	return &Executor{
		logger:   logger,
		registry: registry,
	}
}

// RunOptions configures command execution
type RunOptions struct {
	Command       []string          // Command and arguments to run
	Environment   map[string]string // Environment variables to set
	Node          string            // Node label for the output channels
	AllowOverride bool              // Allow existing env vars to override resolved values
	PrintVars     bool              // Print resolved variables (names only, values masked)
	WorkingDir    string            // Working directory for the command
	Timeout       int               // Timeout in seconds (0 for no timeout)
	Stdout        io.Writer         // Destination for masked stdout (defaults to os.Stdout)
	Stderr        io.Writer         // Destination for masked stderr (defaults to os.Stderr)
}

// Run executes a command with masked output channels. The decorator
// chains are resolved before the process starts, so a resolution failure
// means the command never runs with unmasked output.
func (e *Executor) Run(ctx context.Context, options RunOptions) error {
	if len(options.Command) == 0 {
		return verrors.UserError{
			Message:    "No command specified",
			Suggestion: "Provide a command after -- (e.g., veil run production -- npm start)",
		}
	}

	// Apply timeout if specified
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(options.Timeout)*time.Second)
		defer cancel()
	}

	// Validate command exists
	cmdName := options.Command[0]
	if _, err := exec.LookPath(cmdName); err != nil {
		return verrors.WrapCommandNotFound(cmdName, err)
	}

	// Build environment
	env, err := e.buildEnvironment(options.Environment, options.AllowOverride)
	if err != nil {
		return verrors.UserError{
			Message:    "Failed to build environment",
			Details:    err.Error(),
			Suggestion: "Check your veil.yaml configuration for errors",
			Err:        err,
		}
	}

	// Print variables if requested
	if options.PrintVars {
		e.printEnvironment(options.Environment)
	}

	stdoutSink := options.Stdout
	if stdoutSink == nil {
		stdoutSink = os.Stdout
	}
	stderrSink := options.Stderr
	if stderrSink == nil {
		stderrSink = os.Stderr
	}

	node := options.Node
	if node == "" {
		node = "local"
	}

	// Resolve the output channels before the process starts
	stdoutCtx := decorate.NewExecContext(node, "stdout")
	stdout, err := e.registry.Resolve(stdoutCtx, stdoutSink)
	if err != nil {
		return verrors.UserError{
			Message:    "Failed to install output filters",
			Details:    err.Error(),
			Suggestion: "The command was not started. Fix the error above and retry",
			Err:        err,
		}
	}

	stderrCtx := decorate.NewExecContext(node, "stderr")
	stderr, err := e.registry.Resolve(stderrCtx, stderrSink)
	if err != nil {
		closeChain(e.logger, "stdout", stdout)
		return verrors.UserError{
			Message:    "Failed to install output filters",
			Details:    err.Error(),
			Suggestion: "The command was not started. Fix the error above and retry",
			Err:        err,
		}
	}

	// Create command
	cmd := exec.CommandContext(ctx, cmdName, options.Command[1:]...)
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Stdin = os.Stdin

	// Set working directory if specified
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}

	e.logger.Debug("Executing command: %s", strings.Join(options.Command, " "))
	e.logger.Debug("Environment variables set: %d", len(options.Environment))

	runErr := cmd.Run()

	// Flush retained bytes before the exit status is reported
	closeChain(e.logger, "stdout", stdout)
	closeChain(e.logger, "stderr", stderr)

	if runErr != nil {
		if exitError, ok := runErr.(*exec.ExitError); ok {
			exitCode := 1
			if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
				exitCode = status.ExitStatus()
			}
			return verrors.CommandError{
				Command:  strings.Join(options.Command, " "),
				ExitCode: exitCode,
				Message:  "command exited with non-zero status",
			}
		}
		return verrors.CommandError{
			Command:    strings.Join(options.Command, " "),
			Message:    runErr.Error(),
			Suggestion: "Check the command output above for details",
		}
	}

	return nil
}

// closeChain closes an output chain exactly once, logging flush failures
func closeChain(logger *logging.Logger, channel string, w io.WriteCloser) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Warn("Failed to flush %s channel: %v", channel, err)
	}
}

// buildEnvironment creates the environment slice for the child process
func (e *Executor) buildEnvironment(resolvedVars map[string]string, allowOverride bool) ([]string, error) {
	// Start with current environment
	currentEnv := os.Environ()
	envMap := make(map[string]string)

	// Parse current environment into map
	for _, env := range currentEnv {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	// Add resolved variables
	for key, value := range resolvedVars {
		if allowOverride {
			// Only set if not already present
			if _, exists := envMap[key]; !exists {
				envMap[key] = value
			}
		} else {
			// Resolved values take precedence
			envMap[key] = value
		}
	}

	// Convert back to environment slice
	result := make([]string, 0, len(envMap))
	for key, value := range envMap {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}

	// Sort for consistent ordering (helps with debugging)
	sort.Strings(result)

	return result, nil
}

// printEnvironment displays the resolved variables (values masked for security)
func (e *Executor) printEnvironment(environment map[string]string) {
	if len(environment) == 0 {
		fmt.Println("No environment variables resolved")
		return
	}

	fmt.Printf("Resolved %d environment variables:\n", len(environment))

	// Sort keys for consistent output
	keys := make([]string, 0, len(environment))
	for key := range environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := environment[key]
		maskedValue := maskValue(value)
		fmt.Printf("  %s=%s\n", key, maskedValue)
	}
	fmt.Println()
}

// maskValue masks a secret value for display
func maskValue(value string) string {
	if len(value) == 0 {
		return "(empty)"
	}

	// Show first and last characters for very short values
	if len(value) <= 3 {
		return strings.Repeat("*", len(value))
	}

	// Show first 2 and last 1 characters for longer values
	if len(value) <= 8 {
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	}

	// For long values, show first 3 and last 2 with asterisks in between
	return value[:3] + strings.Repeat("*", 8) + value[len(value)-2:]
}

// ValidateCommand checks if a command is accessible before execution
func ValidateCommand(command []string) error {
	if len(command) == 0 {
		return verrors.UserError{
			Message:    "No command specified",
			Suggestion: "Provide a command after -- (e.g., veil run production -- npm start)",
		}
	}

	cmdName := command[0]

	if _, err := exec.LookPath(cmdName); err != nil {
		return verrors.WrapCommandNotFound(cmdName, err)
	}

	return nil
}
