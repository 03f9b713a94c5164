// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Database       DatabaseConfig       `mapstructure:"database"`
	KnowledgeStore KnowledgeStoreConfig `mapstructure:"knowledge_store"`
	Extraction     ExtractionConfig     `mapstructure:"extraction"`
	Pipeline       PipelineConfig       `mapstructure:"pipeline"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	ListenAddr  string `mapstructure:"listen_addr"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KnowledgeStoreConfig holds settings for the external graph/vector service.
type KnowledgeStoreConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	APIKey             string `mapstructure:"api_key"`
	Timeout            int    `mapstructure:"timeout"`              // milliseconds
	BreakerMaxFailures int    `mapstructure:"breaker_max_failures"` // consecutive failures before the breaker opens
	BreakerCooldown    int    `mapstructure:"breaker_cooldown"`     // milliseconds in open state
}

// ExtractionConfig holds settings for the skill-extraction service.
type ExtractionConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// PipelineConfig holds settings for background enrichment work.
type PipelineConfig struct {
	Workers       int    `mapstructure:"workers"`
	QueueSize     int    `mapstructure:"queue_size"`
	MaxRetries    int    `mapstructure:"max_retries"`
	RetryBackoff  int    `mapstructure:"retry_backoff"` // milliseconds, doubled per attempt
	DeadLetterKey string `mapstructure:"dead_letter_key"`
}

// RecommendationConfig holds settings for the recommendation resolver.
type RecommendationConfig struct {
	Limit    int `mapstructure:"limit"`
	CacheTTL int `mapstructure:"cache_ttl"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig holds tracing settings. Empty endpoint disables tracing.
type TracingConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
