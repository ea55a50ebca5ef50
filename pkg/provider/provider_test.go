package provider

import (
	"errors"
	"testing"
	"time"
)

// TestNotFoundError tests the NotFoundError error type
func TestNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      NotFoundError
		expected string
	}{
		{
			name: "basic error message",
			err: NotFoundError{
				Provider: "aws.secretsmanager",
				Key:      "my-secret",
			},
			expected: "secret not found: my-secret in aws.secretsmanager",
		},
		{
			name: "keychain provider",
			err: NotFoundError{
				Provider: "keychain",
				Key:      "myapp/api-key",
			},
			expected: "secret not found: myapp/api-key in keychain",
		},
		{
			name: "empty provider name",
			err: NotFoundError{
				Provider: "",
				Key:      "key",
			},
			expected: "secret not found: key in ",
		},
		{
			name: "empty key",
			err: NotFoundError{
				Provider: "provider",
				Key:      "",
			},
			expected: "secret not found:  in provider",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("NotFoundError.Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

// TestNotFoundErrorTypeChecking tests that NotFoundError can be identified with errors.As
func TestNotFoundErrorTypeChecking(t *testing.T) {
	t.Parallel()

	baseErr := NotFoundError{
		Provider: "test-provider",
		Key:      "missing-secret",
	}

	var notFoundErr NotFoundError
	if !errors.As(baseErr, &notFoundErr) {
		t.Error("errors.As should identify NotFoundError")
	}
	if notFoundErr.Provider != "test-provider" {
		t.Errorf("Provider = %q, want %q", notFoundErr.Provider, "test-provider")
	}
	if notFoundErr.Key != "missing-secret" {
		t.Errorf("Key = %q, want %q", notFoundErr.Key, "missing-secret")
	}

	// A message-only wrapper loses the type
	wrappedErr := errors.New("failed to resolve: " + baseErr.Error())
	var notFoundErr2 NotFoundError
	if errors.As(wrappedErr, &notFoundErr2) {
		t.Error("plain error should not be identified as NotFoundError")
	}
}

// TestNotFoundErrorPointerTypeChecking verifies providers that return *NotFoundError
// still match with a pointer target
func TestNotFoundErrorPointerTypeChecking(t *testing.T) {
	t.Parallel()

	var err error = &NotFoundError{
		Provider: "file",
		Key:      "db-password",
	}

	var target *NotFoundError
	if !errors.As(err, &target) {
		t.Fatal("errors.As should identify *NotFoundError")
	}
	if target.Key != "db-password" {
		t.Errorf("Key = %q, want %q", target.Key, "db-password")
	}
}

// TestAuthError tests the AuthError error type
func TestAuthError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      AuthError
		expected string
	}{
		{
			name: "basic auth error",
			err: AuthError{
				Provider: "aws.secretsmanager",
				Message:  "invalid credentials",
			},
			expected: "authentication failed for aws.secretsmanager: invalid credentials",
		},
		{
			name: "expired token",
			err: AuthError{
				Provider: "azure.keyvault",
				Message:  "token has expired",
			},
			expected: "authentication failed for azure.keyvault: token has expired",
		},
		{
			name: "permission denied",
			err: AuthError{
				Provider: "gcp.secretmanager",
				Message:  "insufficient permissions to access secret",
			},
			expected: "authentication failed for gcp.secretmanager: insufficient permissions to access secret",
		},
		{
			name: "empty message",
			err: AuthError{
				Provider: "provider",
				Message:  "",
			},
			expected: "authentication failed for provider: ",
		},
		{
			name: "empty provider",
			err: AuthError{
				Provider: "",
				Message:  "auth failed",
			},
			expected: "authentication failed for : auth failed",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("AuthError.Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

// TestAuthErrorTypeChecking tests that AuthError can be identified with errors.As
func TestAuthErrorTypeChecking(t *testing.T) {
	t.Parallel()

	baseErr := AuthError{
		Provider: "azure.keyvault",
		Message:  "client certificate expired",
	}

	var authErr AuthError
	if !errors.As(baseErr, &authErr) {
		t.Error("errors.As should identify AuthError")
	}
	if authErr.Provider != "azure.keyvault" {
		t.Errorf("Provider = %q, want %q", authErr.Provider, "azure.keyvault")
	}
	if authErr.Message != "client certificate expired" {
		t.Errorf("Message = %q, want %q", authErr.Message, "client certificate expired")
	}
}

// TestReferenceInitialization tests Reference struct creation and fields
func TestReferenceInitialization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  Reference
	}{
		{
			name: "aws secrets manager reference",
			ref: Reference{
				Provider: "aws.secretsmanager",
				Key:      "prod/database/password",
				Version:  "AWSCURRENT",
				Field:    "",
			},
		},
		{
			name: "structured secret field reference",
			ref: Reference{
				Provider: "azure.keyvault",
				Key:      "database-config",
				Version:  "",
				Field:    "password",
			},
		},
		{
			name: "zero value reference",
			ref:  Reference{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Verify fields are accessible
			_ = tt.ref.Provider
			_ = tt.ref.Key
			_ = tt.ref.Version
			_ = tt.ref.Field
		})
	}
}

// TestSecretValueInitialization tests SecretValue struct creation
func TestSecretValueInitialization(t *testing.T) {
	t.Parallel()

	now := time.Now()
	sv := SecretValue{
		Value:     "super-secret-password",
		Version:   "v1.2.3",
		UpdatedAt: now,
		Metadata: map[string]string{
			"environment": "production",
			"owner":       "platform-team",
		},
	}

	if sv.Value != "super-secret-password" {
		t.Errorf("Value = %q, want %q", sv.Value, "super-secret-password")
	}
	if sv.Version != "v1.2.3" {
		t.Errorf("Version = %q, want %q", sv.Version, "v1.2.3")
	}
	if !sv.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", sv.UpdatedAt, now)
	}
	if sv.Metadata["environment"] != "production" {
		t.Errorf("Metadata[environment] = %q, want %q", sv.Metadata["environment"], "production")
	}
}

// TestSecretValueZeroValue tests SecretValue with zero values
func TestSecretValueZeroValue(t *testing.T) {
	t.Parallel()

	var sv SecretValue
	if sv.Value != "" {
		t.Errorf("Zero value Value = %q, want empty string", sv.Value)
	}
	if sv.Version != "" {
		t.Errorf("Zero value Version = %q, want empty string", sv.Version)
	}
	if !sv.UpdatedAt.IsZero() {
		t.Errorf("Zero value UpdatedAt = %v, want zero time", sv.UpdatedAt)
	}
	if sv.Metadata != nil {
		t.Errorf("Zero value Metadata = %v, want nil", sv.Metadata)
	}
}

// TestMetadataInitialization tests Metadata struct creation
func TestMetadataInitialization(t *testing.T) {
	t.Parallel()

	now := time.Now()
	meta := Metadata{
		Exists:    true,
		Version:   "AWSCURRENT",
		UpdatedAt: now,
		Size:      256,
		Type:      "password",
		Tags: map[string]string{
			"environment": "production",
			"team":        "platform",
		},
	}

	if !meta.Exists {
		t.Error("Exists should be true")
	}
	if meta.Version != "AWSCURRENT" {
		t.Errorf("Version = %q, want %q", meta.Version, "AWSCURRENT")
	}
	if meta.Size != 256 {
		t.Errorf("Size = %d, want %d", meta.Size, 256)
	}
	if meta.Type != "password" {
		t.Errorf("Type = %q, want %q", meta.Type, "password")
	}
	if meta.Tags["team"] != "platform" {
		t.Errorf("Tags[team] = %q, want %q", meta.Tags["team"], "platform")
	}
}

// TestMetadataNonExistent verifies the zero Metadata reports a missing secret
func TestMetadataNonExistent(t *testing.T) {
	t.Parallel()

	var meta Metadata
	if meta.Exists {
		t.Error("zero value Metadata should report Exists=false")
	}
}

// TestCapabilitiesInitialization tests Capabilities struct creation
func TestCapabilitiesInitialization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		caps Capabilities
	}{
		{
			name: "full capabilities",
			caps: Capabilities{
				SupportsVersioning: true,
				SupportsMetadata:   true,
				SupportsBinary:     true,
				RequiresAuth:       true,
				AuthMethods:        []string{"api_key", "oauth2", "iam"},
			},
		},
		{
			name: "no auth required",
			caps: Capabilities{
				SupportsVersioning: false,
				SupportsMetadata:   false,
				SupportsBinary:     false,
				RequiresAuth:       false,
				AuthMethods:        nil,
			},
		},
		{
			name: "cloud store capabilities",
			caps: Capabilities{
				SupportsVersioning: true,
				SupportsMetadata:   true,
				SupportsBinary:     true,
				RequiresAuth:       true,
				AuthMethods:        []string{"iam", "cli", "api_key"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Verify all fields are accessible
			_ = tt.caps.SupportsVersioning
			_ = tt.caps.SupportsMetadata
			_ = tt.caps.SupportsBinary
			_ = tt.caps.RequiresAuth
			_ = tt.caps.AuthMethods

			// If auth is required, should have methods
			if tt.caps.RequiresAuth && len(tt.caps.AuthMethods) == 0 {
				t.Error("RequiresAuth is true but AuthMethods is empty")
			}
		})
	}
}
