package providers

import (
	"fmt"
)

// KeychainError wraps OS keychain errors with context
type KeychainError struct {
	Op      string // Operation: "query", "validate", "access"
	Service string
	Account string
	Err     error
}

func (e *KeychainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keychain %s error for %s/%s: %v", e.Op, e.Service, e.Account, e.Err)
	}
	return fmt.Sprintf("keychain %s error for %s/%s", e.Op, e.Service, e.Account)
}

func (e *KeychainError) Unwrap() error {
	return e.Err
}

// Keychain sentinel errors
var (
	ErrKeychainItemNotFound        = fmt.Errorf("keychain item not found")
	ErrKeychainAccessDenied        = fmt.Errorf("keychain access denied")
	ErrKeychainUnsupportedPlatform = fmt.Errorf("keychain not supported on this platform")
	ErrKeychainHeadless            = fmt.Errorf("keychain requires GUI environment for authentication")
	ErrKeychainLocked              = fmt.Errorf("keychain is locked")
)
