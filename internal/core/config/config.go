// Package config provides configuration management for extgen.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the complete extgen configuration.
type Config struct {
	Codegen CodegenConfig
	Build   BuildConfig
	Sandbox SandboxConfig
	Server  ServerConfig
}

// CodegenConfig tunes snippet output. Zero values reproduce deployed snippets.
type CodegenConfig struct {
	EscapeStartsWith bool
	InvocationArgs   string
}

// BuildConfig holds batch build settings.
type BuildConfig struct {
	OutDir  string
	Workers int
}

// SandboxConfig holds snippet execution limits.
type SandboxConfig struct {
	Timeout time.Duration
}

// ServerConfig holds configuration for the gRPC conversion service.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxBatchSize   int
	MetricsAddr    string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			OutDir:  "./dist",
			Workers: 4,
		},
		Sandbox: SandboxConfig{
			Timeout: time.Second,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			RequestTimeout: 30 * time.Second,
			MaxBatchSize:   500,
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports EG_HMAC_SECRET (single) and EG_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check EG_HMAC_SECRET and EG_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("EG_HMAC_SECRET"); val != "" {
		if err := add("EG_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old and new keys valid during rotation.
	// The sequence ends at the first unset index.
	for i := 1; ; i++ {
		key := fmt.Sprintf("EG_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecret decodes a base64-encoded HMAC secret.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if err := ValidateSecretID(secretID); err != nil {
		return "", nil, err
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}

// ValidateSecretID checks the 32-hex-char secret id format.
func ValidateSecretID(secretID string) error {
	if len(secretID) != 32 {
		return fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return fmt.Errorf("secret_id must be hex chars only")
		}
	}
	return nil
}
