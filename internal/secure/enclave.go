package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrEmptyValue is returned when an empty secret is wrapped; memguard
// cannot allocate zero-length enclaves and an empty secret is useless
// anyway.
var ErrEmptyValue = errors.New("secure: empty secret value")

// ErrDestroyed is returned when a destroyed buffer is opened.
var ErrDestroyed = errors.New("secure: buffer destroyed")

// SecureBuffer stores one secret value in a memguard enclave. The value
// is encrypted at rest and only decrypted into a locked buffer while a
// caller holds it open.
type SecureBuffer struct {
	enclave *memguard.Enclave

	mu        sync.RWMutex
	destroyed bool
}

// NewSecureBuffer copies data into a protected enclave. The caller
// should zero its own copy afterwards.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyValue
	}
	return &SecureBuffer{enclave: memguard.NewEnclave(data)}, nil
}

// NewSecureBufferFromString copies a string secret into a protected
// enclave.
func NewSecureBufferFromString(value string) (*SecureBuffer, error) {
	return NewSecureBuffer([]byte(value))
}

// Open decrypts the enclave into a locked buffer. The caller MUST call
// Destroy on the returned LockedBuffer to wipe the plaintext.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	return s.enclave.Open()
}

// Destroy marks the buffer as destroyed and drops the enclave
// reference. Idempotent. For full cleanup of all memguard state at
// process exit, call memguard.Purge in main.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}
