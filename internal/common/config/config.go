// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                `mapstructure:"app"`
	Server        ServerConfig             `mapstructure:"server"`
	Partners      map[string]PartnerConfig `mapstructure:"partners"`
	Ranking       RankingConfig            `mapstructure:"ranking"`
	Retry         RetryConfig              `mapstructure:"retry"`
	Database      DatabaseConfig           `mapstructure:"database"`
	Cache         CacheConfig              `mapstructure:"cache"`
	Notifications NotificationConfig       `mapstructure:"notifications"`
	Logging       LoggingConfig            `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
}

// ServerConfig holds the webhook/metrics HTTP listener settings.
type ServerConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	MetricsPath   string `mapstructure:"metrics_path"`
	ReadTimeout   int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout  int    `mapstructure:"write_timeout"` // milliseconds
}

// PartnerConfig holds per-lender API credentials and endpoints. Keys in the
// partners map are partner ids (e.g. "lendingkart", "capital_float").
type PartnerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	APISecret     string `mapstructure:"api_secret"`
	PartnerRefID  string `mapstructure:"partner_ref_id"` // partner-assigned client/partner id
	ClientID      string `mapstructure:"client_id"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds, per HTTP call
}

// RankingConfig holds offer comparison tunables.
type RankingConfig struct {
	// Preference order used by the registry to break ties when a single
	// best partner is requested; partners not listed fall back to
	// registration order.
	Preference []string `mapstructure:"preference"`
	// CacheTTL (milliseconds) for comparison results keyed by request hash.
	CacheTTL int `mapstructure:"cache_ttl"`
}

// RetryConfig bounds outbound partner calls.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	BackoffBase int `mapstructure:"backoff_base"` // milliseconds, doubled per attempt
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig holds settings for decision notifications raised by
// webhook processing.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
