package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	verrors "github.com/veilstream/veil/internal/errors"
)

// withStoreTimeout creates a context with timeout for store operations
func withStoreTimeout(ctx context.Context, timeoutMs int) (context.Context, context.CancelFunc) {
	timeout := time.Duration(timeoutMs) * time.Millisecond
	return context.WithTimeout(ctx, timeout)
}

// isTimeoutError checks if an error is a timeout error and wraps it with helpful context
func isTimeoutError(err error, storeName string, timeoutMs int) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return verrors.UserError{
			Message:    "Store operation timed out",
			Details:    fmt.Sprintf("Operation exceeded %dms timeout", timeoutMs),
			Suggestion: getTimeoutSuggestion(storeName, timeoutMs),
			Err:        err,
		}
	}
	return err
}

// getTimeoutSuggestion provides helpful suggestions for timeout errors
func getTimeoutSuggestion(storeName string, timeoutMs int) string {
	timeoutSec := timeoutMs / 1000

	switch storeName {
	case "aws.secretsmanager", "aws.ssm":
		if timeoutSec < 5 {
			return "AWS API can be slow. Try increasing timeoutMs to 10000"
		}
		return "Check AWS connectivity and credentials. Verify region is correct"

	case "gcp.secretmanager":
		if timeoutSec < 5 {
			return "Google Cloud API can be slow. Try increasing timeoutMs to 10000"
		}
		return "Check Google Cloud connectivity and authentication"

	case "azure.keyvault":
		if timeoutSec < 5 {
			return "Azure API can be slow. Try increasing timeoutMs to 10000"
		}
		return "Check Azure connectivity and authentication"

	case "keychain":
		return "Keychain access can block on a lock prompt. Unlock the keychain and retry"
	}

	// Generic suggestions
	if timeoutSec < 10 {
		return "Store operation timed out. Try increasing timeoutMs in your store configuration"
	}
	return "Check network connectivity and store authentication. Consider increasing timeoutMs if the store is consistently slow"
}
