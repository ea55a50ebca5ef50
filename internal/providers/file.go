package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	verrors "github.com/veilstream/veil/internal/errors"
	"github.com/veilstream/veil/pkg/provider"
)

// FileProvider resolves secrets from files on disk, one secret per file.
// This matches the layout used by Docker/Kubernetes secret mounts, where
// each secret appears as a file under a base directory.
type FileProvider struct {
	name        string
	baseDir     string
	trimNewline bool
}

// NewFileProvider creates a new file-based provider
func NewFileProvider(name string, config map[string]interface{}) (*FileProvider, error) {
	p := &FileProvider{
		name:        name,
		trimNewline: true, // Mounted secret files usually carry a trailing newline
	}

	if config != nil {
		if dir, ok := config["base_dir"].(string); ok {
			p.baseDir = dir
		}
		if trim, ok := config["trim_newline"].(bool); ok {
			p.trimNewline = trim
		}
	}

	if p.baseDir == "" {
		return nil, verrors.ConfigError{
			Field:      "base_dir",
			Message:    "base_dir is required for the file provider",
			Suggestion: "Point base_dir at the directory holding one file per secret (e.g. /run/secrets)",
		}
	}

	if strings.HasPrefix(p.baseDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		p.baseDir = filepath.Join(home, p.baseDir[2:])
	}

	return p, nil
}

// Name returns the provider's name
func (f *FileProvider) Name() string {
	return f.name
}

// secretPath maps a key to a path under baseDir, refusing traversal
func (f *FileProvider) secretPath(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid secret key: %q", key)
	}
	return filepath.Join(f.baseDir, cleaned), nil
}

// Resolve reads a secret file
func (f *FileProvider) Resolve(ctx context.Context, ref provider.Reference) (provider.SecretValue, error) {
	path, err := f.secretPath(ref.Key)
	if err != nil {
		return provider.SecretValue{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return provider.SecretValue{}, &provider.NotFoundError{
				Provider: f.name,
				Key:      ref.Key,
			}
		}
		return provider.SecretValue{}, fmt.Errorf("failed to read secret file: %w", err)
	}

	value := string(data)
	if f.trimNewline {
		value = strings.TrimRight(value, "\r\n")
	}

	info, _ := os.Stat(path)

	secret := provider.SecretValue{
		Value: value,
		Metadata: map[string]string{
			"provider": f.name,
			"path":     path,
		},
	}
	if info != nil {
		secret.UpdatedAt = info.ModTime()
	}

	return secret, nil
}

// Describe returns metadata about a secret file without reading it
func (f *FileProvider) Describe(ctx context.Context, ref provider.Reference) (provider.Metadata, error) {
	path, err := f.secretPath(ref.Key)
	if err != nil {
		return provider.Metadata{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return provider.Metadata{Exists: false}, nil
		}
		return provider.Metadata{}, fmt.Errorf("failed to stat secret file: %w", err)
	}

	return provider.Metadata{
		Exists:    true,
		UpdatedAt: info.ModTime(),
		Size:      int(info.Size()),
		Type:      "file",
		Tags: map[string]string{
			"provider": f.name,
			"path":     path,
		},
	}, nil
}

// Capabilities returns the provider's capabilities
func (f *FileProvider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsVersioning: false,
		SupportsMetadata:   true,
		SupportsBinary:     true,
		RequiresAuth:       false,
		AuthMethods:        []string{},
	}
}

// Validate checks that the base directory exists and is readable
func (f *FileProvider) Validate(ctx context.Context) error {
	info, err := os.Stat(f.baseDir)
	if err != nil {
		return verrors.UserError{
			Message:    fmt.Sprintf("Secret directory not accessible: %s", f.baseDir),
			Details:    err.Error(),
			Suggestion: "Check that the directory exists and the process can read it",
			Err:        err,
		}
	}
	if !info.IsDir() {
		return fmt.Errorf("base_dir is not a directory: %s", f.baseDir)
	}
	return nil
}
