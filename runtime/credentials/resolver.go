package credentials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultAPIKeyEnvVar is the environment variable consulted when no
// explicit credential is configured.
const DefaultAPIKeyEnvVar = "SPEECHMATICS_API_KEY"

// AuthMode selects how a resolved token is attached to the RT WebSocket
// upgrade request.
type AuthMode string

const (
	// AuthModeBearer sends "Authorization: Bearer <token>" (the default).
	AuthModeBearer AuthMode = "bearer"
	// AuthModeJWTQuery sends the token as a `jwt` query parameter.
	AuthModeJWTQuery AuthMode = "jwt_query"
)

// ResolverConfig holds configuration for credential resolution.
type ResolverConfig struct {
	// APIKey is an explicit token value, taking priority over all other sources.
	APIKey string

	// CredentialFile, if set, is read for the token. Resolved against
	// ConfigDir when relative.
	CredentialFile string

	// CredentialEnv, if set, names an environment variable to read the
	// token from, overriding DefaultAPIKeyEnvVar.
	CredentialEnv string

	// ConfigDir is the base directory for resolving relative CredentialFile paths.
	ConfigDir string

	// Mode selects how the resolved token is attached to requests.
	// Defaults to AuthModeBearer.
	Mode AuthMode
}

// Resolve resolves a Speechmatics RT credential according to the chain:
//  1. APIKey (explicit value)
//  2. CredentialFile (read from file)
//  3. CredentialEnv (named environment variable)
//  4. DefaultAPIKeyEnvVar (SPEECHMATICS_API_KEY)
//
// If no token is found anywhere in the chain, Resolve returns a
// NoOpCredential rather than an error — callers that require auth should
// treat that as a KindAuth condition at connect time.
func Resolve(_ context.Context, cfg ResolverConfig) (Credential, error) {
	token, err := findToken(cfg)
	if err != nil {
		return nil, err
	}

	if token == "" {
		return &NoOpCredential{}, nil
	}

	if cfg.Mode == AuthModeJWTQuery {
		return NewJWTQueryCredential(token), nil
	}
	return NewAPIKeyCredential(token), nil
}

func findToken(cfg ResolverConfig) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}

	if cfg.CredentialFile != "" {
		token, err := readCredentialFile(cfg.CredentialFile, cfg.ConfigDir)
		if err != nil {
			return "", fmt.Errorf("failed to read credential file: %w", err)
		}
		return token, nil
	}

	if cfg.CredentialEnv != "" {
		token := os.Getenv(cfg.CredentialEnv)
		if token == "" {
			return "", fmt.Errorf("environment variable %s is not set", cfg.CredentialEnv)
		}
		return token, nil
	}

	return os.Getenv(DefaultAPIKeyEnvVar), nil
}

func readCredentialFile(path, configDir string) (string, error) {
	if !filepath.IsAbs(path) && configDir != "" {
		path = filepath.Join(configDir, path)
	}

	//nolint:gosec // G304: file path is from trusted configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// MustResolve resolves credentials and panics on error. Use only in
// initialization code where errors are unrecoverable.
func MustResolve(ctx context.Context, cfg ResolverConfig) Credential {
	cred, err := Resolve(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve credentials: %v", err))
	}
	return cred
}
