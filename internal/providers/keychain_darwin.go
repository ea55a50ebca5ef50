//go:build darwin

package providers

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/veilstream/veil/internal/providers/contracts"
)

// darwinKeychainClient implements KeychainClient for macOS
type darwinKeychainClient struct{}

// newPlatformKeychainClient creates the platform-specific keychain client
func newPlatformKeychainClient() contracts.KeychainClient {
	return &darwinKeychainClient{}
}

// Query retrieves a secret from the macOS keychain
func (c *darwinKeychainClient) Query(service, account string) ([]byte, error) {
	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrKeychainItemNotFound
		}
		if isAccessDenied(err) {
			return nil, ErrKeychainAccessDenied
		}
		return nil, err
	}
	return []byte(secret), nil
}

// Validate checks if the keychain is accessible
func (c *darwinKeychainClient) Validate() error {
	// On macOS, keychain is always available if we're running on the platform
	return nil
}

// IsAvailable returns true since we're on macOS
func (c *darwinKeychainClient) IsAvailable() bool {
	return true
}

// IsHeadless returns true if running in headless environment
func (c *darwinKeychainClient) IsHeadless() bool {
	if os.Getenv("SSH_TTY") != "" {
		return true
	}
	if os.Getenv("CI") != "" {
		return true
	}
	return false
}

// isAccessDenied checks if an error indicates access was denied
func isAccessDenied(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "user denied") ||
		strings.Contains(errStr, "canceled")
}

// Ensure darwinKeychainClient implements contracts.KeychainClient
var _ contracts.KeychainClient = (*darwinKeychainClient)(nil)
