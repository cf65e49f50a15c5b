package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("codegen.escape_starts_with", d.Codegen.EscapeStartsWith)
	v.SetDefault("codegen.invocation_args", d.Codegen.InvocationArgs)
	v.SetDefault("build.out_dir", d.Build.OutDir)
	v.SetDefault("build.workers", d.Build.Workers)
	v.SetDefault("sandbox.timeout", d.Sandbox.Timeout.String())
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_batch_size", d.Server.MaxBatchSize)
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)

	// EG_SERVER_PORT -> server.port
	v.SetEnvPrefix("EG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Codegen: CodegenConfig{
			EscapeStartsWith: v.GetBool("codegen.escape_starts_with"),
			InvocationArgs:   v.GetString("codegen.invocation_args"),
		},
		Build: BuildConfig{
			OutDir:  v.GetString("build.out_dir"),
			Workers: v.GetInt("build.workers"),
		},
		Sandbox: SandboxConfig{
			Timeout: v.GetDuration("sandbox.timeout"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxBatchSize:   v.GetInt("server.max_batch_size"),
			MetricsAddr:    v.GetString("server.metrics_addr"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks port range and positive limits. Callers that apply flag
// overrides after LoadConfig should validate again.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.Server.MaxBatchSize)
	}
	if cfg.Build.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Build.Workers)
	}
	if cfg.Sandbox.Timeout < 0 {
		return fmt.Errorf("sandbox timeout cannot be negative, got %v", cfg.Sandbox.Timeout)
	}
	if strings.ContainsAny(cfg.Codegen.InvocationArgs, "()\n;") {
		return fmt.Errorf("invocation_args must be a plain argument list, got %q", cfg.Codegen.InvocationArgs)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
// InConfig looks at the file only; EG_HMAC_SECRET in the environment is allowed.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use EG_HMAC_SECRET environment variable)")
	}
	return nil
}
