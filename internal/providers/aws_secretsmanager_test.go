package providers_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veilstream/veil/internal/providers"
	"github.com/veilstream/veil/pkg/provider"
)

// mockSecretsManagerClient implements SecretsManagerClientAPI for testing
type mockSecretsManagerClient struct {
	secrets     map[string]string
	listErr     error
	getErr      error
	lastVersion *secretsmanager.GetSecretValueInput
}

func (m *mockSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.lastVersion = params

	value, ok := m.secrets[*params.SecretId]
	if !ok {
		return nil, &types.ResourceNotFoundException{}
	}

	versionID := "a1b2c3d4-e5f6-a7b8-c9d0-e1f2a3b4c5d6"
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &secretsmanager.GetSecretValueOutput{
		SecretString:  &value,
		VersionId:     &versionID,
		VersionStages: []string{"AWSCURRENT"},
		CreatedDate:   &created,
	}, nil
}

func (m *mockSecretsManagerClient) DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	if _, ok := m.secrets[*params.SecretId]; !ok {
		return nil, &types.ResourceNotFoundException{}
	}

	changed := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	return &secretsmanager.DescribeSecretOutput{
		LastChangedDate: &changed,
	}, nil
}

func (m *mockSecretsManagerClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &secretsmanager.ListSecretsOutput{}, nil
}

func newSecretsManagerProvider(t *testing.T, client *mockSecretsManagerClient) *providers.AWSSecretsManagerProvider {
	t.Helper()

	p, err := providers.NewAWSSecretsManagerProvider("aws-sm", map[string]interface{}{
		"region": "us-east-1",
	}, providers.WithSecretsManagerClient(client))
	require.NoError(t, err)
	return p
}

// TestAWSSecretsManagerProviderContract runs the contract suite with a mock client
func TestAWSSecretsManagerProviderContract(t *testing.T) {
	provider.RunContractTests(t, provider.ContractTest{
		CreateProvider: func(t *testing.T) provider.Provider {
			return newSecretsManagerProvider(t, &mockSecretsManagerClient{
				secrets: map[string]string{"app/api-key": "sm-value-1"},
			})
		},
		SetupTestSecret: func(t *testing.T, p provider.Provider) (string, func()) {
			return "app/api-key", func() {}
		},
	})
}

// TestAWSSecretsManagerProviderName validates provider name consistency
func TestAWSSecretsManagerProviderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		providerName string
		want         string
	}{
		{
			name:         "default_name",
			providerName: "aws-secrets",
			want:         "aws-secrets",
		},
		{
			name:         "custom_name",
			providerName: "my-aws-secrets-manager",
			want:         "my-aws-secrets-manager",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := providers.NewAWSSecretsManagerProvider(tt.providerName,
				map[string]interface{}{"region": "us-east-1"},
				providers.WithSecretsManagerClient(&mockSecretsManagerClient{}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

// TestAWSSecretsManagerProviderResolve validates secret resolution through the client
func TestAWSSecretsManagerProviderResolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &mockSecretsManagerClient{
		secrets: map[string]string{
			"prod/db-password": "hunter2",
			"prod/db-creds":    `{"username": "admin", "password": "s3cr3t"}`,
		},
	}
	p := newSecretsManagerProvider(t, client)

	tests := []struct {
		name      string
		key       string
		wantValue string
		wantErr   bool
	}{
		{
			name:      "plain_secret",
			key:       "prod/db-password",
			wantValue: "hunter2",
		},
		{
			name:      "json_field_extraction",
			key:       "prod/db-creds#.password",
			wantValue: "s3cr3t",
		},
		{
			name:    "missing_secret",
			key:     "prod/missing",
			wantErr: true,
		},
		{
			name:    "missing_json_field",
			key:     "prod/db-creds#.nonexistent",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			secret, err := p.Resolve(ctx, provider.Reference{Provider: "aws-sm", Key: tt.key})

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, secret.Value)
			assert.NotEmpty(t, secret.Version)
			assert.NotZero(t, secret.UpdatedAt)
			assert.Equal(t, "us-east-1", secret.Metadata["region"])
		})
	}
}

// TestAWSSecretsManagerProviderResolveNotFound validates NotFoundError conversion
func TestAWSSecretsManagerProviderResolveNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newSecretsManagerProvider(t, &mockSecretsManagerClient{secrets: map[string]string{}})

	_, err := p.Resolve(ctx, provider.Reference{Provider: "aws-sm", Key: "does-not-exist"})
	require.Error(t, err)

	var notFoundErr *provider.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, "aws-sm", notFoundErr.Provider)
	assert.Equal(t, "does-not-exist", notFoundErr.Key)
}

// TestAWSSecretsManagerProviderVersionHandling validates version stage vs version ID routing
func TestAWSSecretsManagerProviderVersionHandling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name        string
		version     string
		wantStage   string
		wantVersion string
	}{
		{
			name:      "stage_label",
			version:   "AWSPREVIOUS",
			wantStage: "AWSPREVIOUS",
		},
		{
			name:        "uuid_version_id",
			version:     "a1b2c3d4-e5f6-a7b8-c9d0-e1f2a3b4c5d6",
			wantVersion: "a1b2c3d4-e5f6-a7b8-c9d0-e1f2a3b4c5d6",
		},
		{
			name:    "latest_means_no_version",
			version: "latest",
		},
		{
			name:    "empty_means_no_version",
			version: "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &mockSecretsManagerClient{
				secrets: map[string]string{"app/token": "value"},
			}
			p := newSecretsManagerProvider(t, client)

			_, err := p.Resolve(ctx, provider.Reference{Key: "app/token", Version: tt.version})
			require.NoError(t, err)
			require.NotNil(t, client.lastVersion)

			if tt.wantStage != "" {
				require.NotNil(t, client.lastVersion.VersionStage)
				assert.Equal(t, tt.wantStage, *client.lastVersion.VersionStage)
			} else {
				assert.Nil(t, client.lastVersion.VersionStage)
			}

			if tt.wantVersion != "" {
				require.NotNil(t, client.lastVersion.VersionId)
				assert.Equal(t, tt.wantVersion, *client.lastVersion.VersionId)
			} else {
				assert.Nil(t, client.lastVersion.VersionId)
			}
		})
	}
}

// TestAWSSecretsManagerProviderDescribe validates metadata without value exposure
func TestAWSSecretsManagerProviderDescribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := newSecretsManagerProvider(t, &mockSecretsManagerClient{
		secrets: map[string]string{"app/token": "value"},
	})

	meta, err := p.Describe(ctx, provider.Reference{Key: "app/token"})
	require.NoError(t, err)
	assert.True(t, meta.Exists)
	assert.Equal(t, "aws-secret", meta.Type)
	assert.NotZero(t, meta.UpdatedAt)

	meta, err = p.Describe(ctx, provider.Reference{Key: "app/missing"})
	require.NoError(t, err)
	assert.False(t, meta.Exists)
}

// TestAWSSecretsManagerProviderCapabilities validates capability reporting
func TestAWSSecretsManagerProviderCapabilities(t *testing.T) {
	t.Parallel()

	p := newSecretsManagerProvider(t, &mockSecretsManagerClient{})
	caps := p.Capabilities()

	assert.True(t, caps.SupportsVersioning, "AWS Secrets Manager supports versioning")
	assert.True(t, caps.SupportsMetadata, "AWS Secrets Manager supports metadata")
	assert.True(t, caps.SupportsBinary, "AWS Secrets Manager supports binary secrets")
	assert.True(t, caps.RequiresAuth, "AWS Secrets Manager requires authentication")
	assert.NotEmpty(t, caps.AuthMethods, "AWS should have auth methods")
}

// TestAWSSecretsManagerProviderValidate validates the credential check
func TestAWSSecretsManagerProviderValidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid_credentials", func(t *testing.T) {
		t.Parallel()

		p := newSecretsManagerProvider(t, &mockSecretsManagerClient{})
		assert.NoError(t, p.Validate(ctx))
	})

	t.Run("auth_failure", func(t *testing.T) {
		t.Parallel()

		p := newSecretsManagerProvider(t, &mockSecretsManagerClient{listErr: assert.AnError})
		err := p.Validate(ctx)
		require.Error(t, err)

		var authErr provider.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "aws-sm", authErr.Provider)
	})
}
