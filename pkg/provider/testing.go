package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ContractTest defines a standard test suite that all providers must pass
type ContractTest struct {
	// CreateProvider creates a new instance of the provider to test
	CreateProvider func(t *testing.T) Provider

	// SetupTestSecret creates a test secret in the provider.
	// Returns the key to use for retrieval and a cleanup function.
	SetupTestSecret func(t *testing.T, p Provider) (key string, cleanup func())

	// Skip certain tests if the provider doesn't support them
	SkipValidation bool
	SkipMetadata   bool
}

// RunContractTests runs the standard provider contract test suite
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Name", func(t *testing.T) {
			testProviderName(t, contract)
		})

		t.Run("Capabilities", func(t *testing.T) {
			testProviderCapabilities(t, contract)
		})

		if !contract.SkipValidation {
			t.Run("Validate", func(t *testing.T) {
				testProviderValidate(t, contract)
			})
		}

		t.Run("Resolve", func(t *testing.T) {
			testProviderResolve(t, contract)
		})

		t.Run("ResolveNotFound", func(t *testing.T) {
			testProviderResolveNotFound(t, contract)
		})

		if !contract.SkipMetadata {
			t.Run("Describe", func(t *testing.T) {
				testProviderDescribe(t, contract)
			})
		}

		t.Run("ContextCancellation", func(t *testing.T) {
			testProviderContextCancellation(t, contract)
		})
	})
}

func testProviderName(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)

	name := p.Name()
	assert.NotEmpty(t, name, "Provider.Name() returned empty string")
	assert.Equal(t, name, p.Name(), "Provider.Name() not consistent between calls")
}

func testProviderCapabilities(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)

	caps := p.Capabilities()
	assert.Equal(t, caps, p.Capabilities(), "Provider.Capabilities() not consistent between calls")

	if caps.RequiresAuth {
		assert.NotEmpty(t, caps.AuthMethods, "Provider requires auth but specifies no auth methods")
	}
}

func testProviderValidate(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)
	ctx := context.Background()

	// Validate should complete without hanging
	done := make(chan error, 1)
	go func() {
		done <- p.Validate(ctx)
	}()

	select {
	case err := <-done:
		// Provider might not be configured, which is OK for tests
		if err != nil {
			t.Logf("Provider validation failed (expected in test environment): %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Provider.Validate() timed out after 5 seconds")
	}
}

func testProviderResolve(t *testing.T, contract ContractTest) {
	if contract.SetupTestSecret == nil {
		t.Skip("SetupTestSecret not provided, skipping resolve test")
		return
	}

	p := contract.CreateProvider(t)
	key, cleanup := contract.SetupTestSecret(t, p)
	defer cleanup()

	ctx := context.Background()
	ref := Reference{
		Key: key,
	}

	secret, err := p.Resolve(ctx, ref)
	require.NoError(t, err, "Provider.Resolve() failed")
	assert.NotEmpty(t, secret.Value, "Provider.Resolve() returned empty value")
}

func testProviderResolveNotFound(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)
	ctx := context.Background()

	// Use a key that definitely doesn't exist
	ref := Reference{
		Key: "this-secret-definitely-does-not-exist-" + time.Now().Format("20060102150405"),
	}

	secret, err := p.Resolve(ctx, ref)
	require.Error(t, err, "Provider.Resolve() should fail for non-existent key, got value: %q", secret.Value)

	var notFoundErr NotFoundError
	if errors.As(err, &notFoundErr) {
		t.Logf("Got expected NotFoundError: %v", err)
	} else {
		// It's OK if provider returns a different error, but log it
		t.Logf("Provider returned error (not NotFoundError): %v", err)
	}
}

func testProviderDescribe(t *testing.T, contract ContractTest) {
	if contract.SetupTestSecret == nil {
		t.Skip("SetupTestSecret not provided, skipping describe test")
		return
	}

	p := contract.CreateProvider(t)
	key, cleanup := contract.SetupTestSecret(t, p)
	defer cleanup()

	ctx := context.Background()
	ref := Reference{
		Key: key,
	}

	metadata, err := p.Describe(ctx, ref)
	if err != nil {
		if !p.Capabilities().SupportsMetadata {
			t.Skip("Provider doesn't support metadata")
		}
		t.Fatalf("Provider.Describe() failed: %v", err)
	}

	assert.True(t, metadata.Exists, "Provider.Describe() returned Exists=false for existing secret")
}

func testProviderContextCancellation(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ref := Reference{
		Key: "any-key",
	}

	_, err := p.Resolve(ctx, ref)
	require.Error(t, err, "Provider.Resolve() should fail with cancelled context")

	if errors.Is(err, context.Canceled) {
		t.Logf("Got expected context.Canceled error: %v", err)
	} else {
		// It's OK if provider wraps the error differently
		t.Logf("Provider returned error with cancelled context: %v", err)
	}
}
