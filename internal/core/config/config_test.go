package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	testSecretID   = "0123456789abcdef0123456789abcdef"
	testSecretID2  = "fedcba9876543210fedcba9876543210"
	testSecretB64  = "dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testSecretB64b = "YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extgen.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHMACSecrets(t *testing.T) {
	t.Run("single secret", func(t *testing.T) {
		t.Setenv("EG_HMAC_SECRET", testSecretID+":"+testSecretB64)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets[testSecretID]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		t.Setenv("EG_HMAC_SECRET_1", testSecretID+":"+testSecretB64)
		t.Setenv("EG_HMAC_SECRET_2", testSecretID2+":"+testSecretB64b)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("gap ends numbered sequence", func(t *testing.T) {
		t.Setenv("EG_HMAC_SECRET_1", testSecretID+":"+testSecretB64)
		t.Setenv("EG_HMAC_SECRET_3", testSecretID2+":"+testSecretB64b)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
	})

	errorCases := []struct {
		name string
		env  map[string]string
	}{
		{"invalid format", map[string]string{"EG_HMAC_SECRET": "invalid_format"}},
		{"invalid secret_id length", map[string]string{"EG_HMAC_SECRET": "short:" + testSecretB64}},
		{"non-hex secret_id", map[string]string{"EG_HMAC_SECRET": "0123456789abcdefGHIJKLMNOPQRSTUV:" + testSecretB64}},
		{"duplicate secret_id in numbered secrets", map[string]string{
			"EG_HMAC_SECRET_1": testSecretID + ":" + testSecretB64,
			"EG_HMAC_SECRET_2": testSecretID + ":" + testSecretB64b,
		}},
		{"duplicate secret_id between single and numbered", map[string]string{
			"EG_HMAC_SECRET":   testSecretID + ":" + testSecretB64,
			"EG_HMAC_SECRET_1": testSecretID + ":" + testSecretB64b,
		}},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := HMACSecrets(); err == nil {
				t.Error("HMACSecrets() error = nil, want error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		want := Default()
		if cfg.Server != want.Server {
			t.Errorf("Server = %+v, want %+v", cfg.Server, want.Server)
		}
		if cfg.Build != want.Build {
			t.Errorf("Build = %+v, want %+v", cfg.Build, want.Build)
		}
		if cfg.Sandbox.Timeout != time.Second {
			t.Errorf("Sandbox.Timeout = %v, want 1s", cfg.Sandbox.Timeout)
		}
		if cfg.Codegen != (CodegenConfig{}) {
			t.Errorf("Codegen = %+v, want zero value", cfg.Codegen)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("EG_SERVER_PORT", "9999")
		t.Setenv("EG_SERVER_HOST", "127.0.0.1")
		t.Setenv("EG_CODEGEN_INVOCATION_ARGS", "a, b")
		t.Setenv("EG_BUILD_WORKERS", "8")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Server.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
		}
		if cfg.Codegen.InvocationArgs != "a, b" {
			t.Errorf("expected invocation args %q, got %q", "a, b", cfg.Codegen.InvocationArgs)
		}
		if cfg.Build.Workers != 8 {
			t.Errorf("expected 8 workers, got %d", cfg.Build.Workers)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `codegen:
  escape_starts_with: true
sandbox:
  timeout: 250ms
build:
  out_dir: ./snippets
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if !cfg.Codegen.EscapeStartsWith {
			t.Error("expected escape_starts_with from file")
		}
		if cfg.Sandbox.Timeout != 250*time.Millisecond {
			t.Errorf("expected sandbox timeout 250ms, got %v", cfg.Sandbox.Timeout)
		}
		if cfg.Build.OutDir != "./snippets" {
			t.Errorf("expected out_dir ./snippets, got %s", cfg.Build.OutDir)
		}
	})

	t.Run("environment overrides config file", func(t *testing.T) {
		t.Setenv("EG_SERVER_PORT", "8080")
		path := writeConfig(t, "server:\n  port: 9090\n")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("expected 8080, got %d", cfg.Server.Port)
		}
	})

	t.Run("secret in config file rejected", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 8080\n  hmac_secret: \"should_be_rejected\"\n")

		_, err := LoadConfig(path)
		if err == nil {
			t.Fatal("expected error for secret in config file")
		}
		if err.Error() != "HMAC secrets not allowed in config files (use EG_HMAC_SECRET environment variable)" {
			t.Errorf("wrong error message: %v", err)
		}
	})

	t.Run("secret in environment accepted", func(t *testing.T) {
		t.Setenv("EG_HMAC_SECRET", testSecretID+":"+testSecretB64)
		if _, err := LoadConfig(""); err != nil {
			t.Errorf("LoadConfig failed: %v", err)
		}
	})

	invalid := []struct {
		name  string
		key   string
		value string
	}{
		{"port above range", "EG_SERVER_PORT", "70000"},
		{"negative batch size", "EG_SERVER_MAX_BATCH_SIZE", "-1"},
		{"zero workers", "EG_BUILD_WORKERS", "0"},
		{"invocation args with call", "EG_CODEGEN_INVOCATION_ARGS", "a); evil("},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfig(""); err == nil {
				t.Errorf("LoadConfig() with %s=%s: error = nil, want error", tt.key, tt.value)
			}
		})
	}
}

func TestParseHMACSecret(t *testing.T) {
	if secret, err := ParseHMACSecret(testSecretB64); err != nil || len(secret) < 32 {
		t.Errorf("ParseHMACSecret(valid) = %d bytes, %v", len(secret), err)
	}
	if _, err := ParseHMACSecret("not-valid-base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := ParseHMACSecret("c2hvcnQ="); err == nil {
		t.Error("expected error for secret < 32 bytes")
	}
}

func TestParseHMACSecretWithID(t *testing.T) {
	secretID, secret, err := ParseHMACSecretWithID(testSecretID + ":" + testSecretB64)
	if err != nil {
		t.Fatalf("ParseHMACSecretWithID failed: %v", err)
	}
	if secretID != testSecretID {
		t.Errorf("unexpected secret_id: %s", secretID)
	}
	if len(secret) == 0 {
		t.Error("secret should not be empty")
	}

	for _, in := range []string{
		testSecretID,
		"tooshort:" + testSecretB64,
		"0123456789abcdefGHIJKLMNOPQRSTUV:" + testSecretB64,
	} {
		if _, _, err := ParseHMACSecretWithID(in); err == nil {
			t.Errorf("ParseHMACSecretWithID(%q) error = nil, want error", in)
		}
	}
}
