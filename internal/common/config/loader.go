// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like LENDINGKART_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from several locations so the binary and tests can
// run from different working directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills credentials from well-known environment variables
// when the yaml left them blank.
func overrideEmptyConfig(cfg *Config) {
	envPrefix := func(partnerID string) string {
		return strings.ToUpper(strings.ReplaceAll(partnerID, "-", "_"))
	}

	for id, partner := range cfg.Partners {
		prefix := envPrefix(id)
		if partner.BaseURL == "" {
			if val := os.Getenv(prefix + "_API_URL"); val != "" {
				partner.BaseURL = val
			}
		}
		if partner.APIKey == "" {
			if val := os.Getenv(prefix + "_API_KEY"); val != "" {
				partner.APIKey = val
			}
		}
		if partner.WebhookSecret == "" {
			if val := os.Getenv(prefix + "_WEBHOOK_SECRET"); val != "" {
				partner.WebhookSecret = val
			}
		}
		if partner.ClientID == "" {
			if val := os.Getenv(prefix + "_CLIENT_ID"); val != "" {
				partner.ClientID = val
			}
		}
		if partner.PartnerRefID == "" {
			if val := os.Getenv(prefix + "_PARTNER_ID"); val != "" {
				partner.PartnerRefID = val
			}
		}
		cfg.Partners[id] = partner
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.App.BaseURL == "" {
		if val := os.Getenv("APP_URL"); val != "" {
			cfg.App.BaseURL = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BackoffBase == 0 {
		cfg.Retry.BackoffBase = 1000
	}

	if cfg.Ranking.CacheTTL == 0 {
		cfg.Ranking.CacheTTL = 300000 // 5 minutes
	}

	for id, partner := range cfg.Partners {
		if partner.Timeout == 0 {
			partner.Timeout = 30000
		}
		cfg.Partners[id] = partner
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "financing-comparisons"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	for id, partner := range cfg.Partners {
		if !partner.Enabled {
			continue
		}
		if partner.BaseURL == "" {
			return fmt.Errorf("partners.%s.base_url is required", id)
		}
		if partner.WebhookSecret == "" {
			return fmt.Errorf("partners.%s.webhook_secret is required", id)
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetPartnerConfig retrieves per-partner settings with sane fallbacks for
// partners missing from the config map.
func GetPartnerConfig(cfg *Config, partnerID string) PartnerConfig {
	if partner, exists := cfg.Partners[partnerID]; exists {
		return partner
	}

	return PartnerConfig{
		Enabled: false,
		Timeout: 30000,
	}
}

// IsPartnerEnabled checks if a specific partner integration is enabled.
func IsPartnerEnabled(cfg *Config, partnerID string) bool {
	if partner, exists := cfg.Partners[partnerID]; exists {
		return partner.Enabled
	}
	return false
}
