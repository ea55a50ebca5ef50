package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/veilstream/veil/pkg/provider"
)

// SecretsManagerClientAPI defines the interface for AWS Secrets Manager operations
// This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// AWSSecretsManagerProvider implements the provider interface for AWS Secrets Manager
type AWSSecretsManagerProvider struct {
	name     string
	client   SecretsManagerClientAPI
	region   string
	endpoint string // Optional custom endpoint for LocalStack or testing
}

// ProviderOption is a functional option for configuring providers
type ProviderOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// NewAWSSecretsManagerProvider creates a new AWS Secrets Manager provider
func NewAWSSecretsManagerProvider(name string, providerConfig map[string]interface{}, opts ...ProviderOption) (*AWSSecretsManagerProvider, error) {
	region := "us-east-1" // Default region
	if r, ok := providerConfig["region"].(string); ok && r != "" {
		region = r
	}

	// Optional endpoint for LocalStack/testing
	var endpoint string
	if e, ok := providerConfig["endpoint"].(string); ok && e != "" {
		endpoint = e
	}

	// Optional static credentials for LocalStack/testing
	var accessKeyID, secretAccessKey string
	if ak, ok := providerConfig["access_key_id"].(string); ok && ak != "" {
		accessKeyID = ak
	}
	if sk, ok := providerConfig["secret_access_key"].(string); ok && sk != "" {
		secretAccessKey = sk
	}

	p := &AWSSecretsManagerProvider{
		name:     name,
		region:   region,
		endpoint: endpoint,
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(p)
	}

	// If no client was provided via options, create real client
	if p.client == nil {
		var configOpts []func(*config.LoadOptions) error
		configOpts = append(configOpts, config.WithRegion(region))

		if accessKeyID != "" && secretAccessKey != "" {
			configOpts = append(configOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
			))
		}

		cfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return p, nil
}

// Name returns the provider name
func (aws *AWSSecretsManagerProvider) Name() string {
	return aws.name
}

// Resolve retrieves a secret from AWS Secrets Manager
func (aws *AWSSecretsManagerProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	secretName, jsonPath := aws.parseKey(ref.Key)

	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	}

	if ref.Version != "" && ref.Version != "latest" {
		if isVersionId(ref.Version) {
			input.VersionId = aws.String(ref.Version)
		} else {
			input.VersionStage = aws.String(ref.Version)
		}
	}

	result, err := aws.client.GetSecretValue(ctx, input)
	if err != nil {
		return provider.SecretValue{}, aws.handleError(err, secretName)
	}

	var secretString string
	if result.SecretString != nil {
		secretString = *result.SecretString
	} else if result.SecretBinary != nil {
		secretString = string(result.SecretBinary)
	} else {
		return provider.SecretValue{}, fmt.Errorf("secret '%s' has no value", secretName)
	}

	// Apply JSON path extraction if specified
	if jsonPath != "" {
		extracted, err := aws.extractJSONPath(secretString, jsonPath)
		if err != nil {
			return provider.SecretValue{}, fmt.Errorf("failed to extract JSON path '%s': %w", jsonPath, err)
		}
		secretString = extracted
	}

	metadata := map[string]string{
		"provider":    aws.name,
		"secret_name": secretName,
		"region":      aws.region,
	}
	if result.VersionId != nil {
		metadata["version_id"] = *result.VersionId
	}
	if len(result.VersionStages) > 0 {
		metadata["version_stage"] = result.VersionStages[0]
	}

	return provider.SecretValue{
		Value:     secretString,
		Version:   aws.getVersionString(result),
		UpdatedAt: aws.getUpdatedTime(result),
		Metadata:  metadata,
	}, nil
}

// Describe returns metadata about an AWS Secrets Manager secret
func (aws *AWSSecretsManagerProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	secretName, _ := aws.parseKey(ref.Key)

	input := &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(secretName),
	}

	result, err := aws.client.DescribeSecret(ctx, input)
	if err != nil {
		if isNotFoundError(err) {
			return provider.Metadata{Exists: false}, nil
		}
		return provider.Metadata{}, aws.handleError(err, secretName)
	}

	return provider.Metadata{
		Exists:    true,
		Version:   aws.getLatestVersionId(result),
		UpdatedAt: aws.getLastChangedDate(result),
		Type:      "aws-secret",
		Tags: map[string]string{
			"provider":    aws.name,
			"secret_name": secretName,
			"region":      aws.region,
			"kms_key_id":  aws.getKMSKeyId(result),
		},
	}, nil
}

// Capabilities returns AWS Secrets Manager provider capabilities
func (aws *AWSSecretsManagerProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsVersioning: true,
		SupportsMetadata:   true,
		SupportsBinary:     true,
		RequiresAuth:       true,
		AuthMethods:        []string{"aws-credentials", "iam-role", "environment-variables"},
	}
}

// Validate checks if AWS credentials are configured and accessible
func (aws *AWSSecretsManagerProvider) Validate(ctx context.Context) error {
	// Try to list secrets (with limit 1) to verify credentials
	input := &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(1),
	}

	_, err := aws.client.ListSecrets(ctx, input)
	if err != nil {
		return provider.AuthError{
			Provider: aws.name,
			Message:  fmt.Sprintf("AWS authentication failed: %v", err),
		}
	}

	return nil
}

// Helper methods

// parseKey parses AWS SM key formats:
// - "secret-name" -> secret-name, ""
// - "secret-name#.field" -> secret-name, ".field"
// - "secret/path" -> secret/path, ""
func (aws *AWSSecretsManagerProvider) parseKey(key string) (secretName, jsonPath string) {
	if idx := strings.Index(key, "#"); idx != -1 {
		return key[:idx], key[idx+1:]
	}
	return key, ""
}

// extractJSONPath extracts a value from JSON using a simple path
func (aws *AWSSecretsManagerProvider) extractJSONPath(jsonStr, path string) (string, error) {
	if !strings.HasPrefix(path, ".") {
		return "", fmt.Errorf("JSON path must start with '.'")
	}

	var data interface{}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}

	path = strings.TrimPrefix(path, ".")
	parts := strings.Split(path, ".")

	current := data
	for _, part := range parts {
		if part == "" {
			continue
		}

		switch v := current.(type) {
		case map[string]interface{}:
			if val, exists := v[part]; exists {
				current = val
			} else {
				return "", fmt.Errorf("field '%s' not found in JSON", part)
			}
		default:
			return "", fmt.Errorf("cannot navigate into non-object at path '%s'", part)
		}
	}

	switch v := current.(type) {
	case string:
		return v, nil
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	case nil:
		return "", nil
	default:
		// For complex objects, return as JSON
		bytes, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(bytes), nil
	}
}

// handleError converts AWS errors to provider errors
func (aws *AWSSecretsManagerProvider) handleError(err error, secretName string) error {
	if isNotFoundError(err) {
		return &provider.NotFoundError{
			Provider: aws.name,
			Key:      secretName,
		}
	}

	if isAuthError(err) {
		return provider.AuthError{
			Provider: aws.name,
			Message:  fmt.Sprintf("AWS authentication/authorization failed: %v", err),
		}
	}

	return fmt.Errorf("AWS Secrets Manager error: %w", err)
}

// Utility functions for AWS types

func (aws *AWSSecretsManagerProvider) getVersionString(result *secretsmanager.GetSecretValueOutput) string {
	if result.VersionId != nil {
		return *result.VersionId
	}
	if len(result.VersionStages) > 0 {
		return result.VersionStages[0]
	}
	return "latest"
}

func (aws *AWSSecretsManagerProvider) getUpdatedTime(result *secretsmanager.GetSecretValueOutput) time.Time {
	if result.CreatedDate != nil {
		return *result.CreatedDate
	}
	return time.Now()
}

func (aws *AWSSecretsManagerProvider) getLatestVersionId(result *secretsmanager.DescribeSecretOutput) string {
	for _, version := range result.VersionIdsToStages {
		for _, stage := range version {
			if stage == "AWSCURRENT" {
				return version[0]
			}
		}
	}
	return "latest"
}

func (aws *AWSSecretsManagerProvider) getLastChangedDate(result *secretsmanager.DescribeSecretOutput) time.Time {
	if result.LastChangedDate != nil {
		return *result.LastChangedDate
	}
	if result.CreatedDate != nil {
		return *result.CreatedDate
	}
	return time.Now()
}

func (aws *AWSSecretsManagerProvider) getKMSKeyId(result *secretsmanager.DescribeSecretOutput) string {
	if result.KmsKeyId != nil {
		return *result.KmsKeyId
	}
	return ""
}

// Error checking utilities

func isNotFoundError(err error) bool {
	var resourceNotFound *types.ResourceNotFoundException
	return errors.As(err, &resourceNotFound)
}

func isAuthError(err error) bool {
	// Check for common auth-related errors by string matching
	errStr := err.Error()
	return strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "UnauthorizedOperation") ||
		strings.Contains(errStr, "InvalidUserID") ||
		strings.Contains(errStr, "Forbidden")
}

func isVersionId(version string) bool {
	// AWS version IDs are UUIDs
	return len(version) == 36 && strings.Count(version, "-") == 4
}

// Helper functions

func (aws *AWSSecretsManagerProvider) String(s string) *string {
	return &s
}

func (aws *AWSSecretsManagerProvider) Int32(i int32) *int32 {
	return &i
}

// NewAWSSecretsManagerProviderFactory creates an AWS Secrets Manager provider factory
func NewAWSSecretsManagerProviderFactory(name string, config map[string]interface{}) (provider.Provider, error) {
	return NewAWSSecretsManagerProvider(name, config)
}
