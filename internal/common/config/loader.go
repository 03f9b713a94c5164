// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

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

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
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

// Find project root by looking for go.mod
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

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.KnowledgeStore.BaseURL == "" {
		if val := os.Getenv("KNOWLEDGE_STORE_URL"); val != "" {
			cfg.KnowledgeStore.BaseURL = val
		}
	}
	if cfg.KnowledgeStore.APIKey == "" {
		if val := os.Getenv("KNOWLEDGE_STORE_API_KEY"); val != "" {
			cfg.KnowledgeStore.APIKey = val
		}
	}
	if cfg.Extraction.BaseURL == "" {
		if val := os.Getenv("EXTRACTION_API_URL"); val != "" {
			cfg.Extraction.BaseURL = val
		}
	}
	if cfg.Extraction.APIKey == "" {
		if val := os.Getenv("EXTRACTION_API_KEY"); val != "" {
			cfg.Extraction.APIKey = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "careerhunt-pipeline"
	}
	if cfg.App.ListenAddr == "" {
		cfg.App.ListenAddr = ":8080"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 20
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.KnowledgeStore.Timeout == 0 {
		cfg.KnowledgeStore.Timeout = 30000
	}
	if cfg.KnowledgeStore.BreakerMaxFailures == 0 {
		cfg.KnowledgeStore.BreakerMaxFailures = 5
	}
	if cfg.KnowledgeStore.BreakerCooldown == 0 {
		cfg.KnowledgeStore.BreakerCooldown = 30000
	}
	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = 30000
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.QueueSize == 0 {
		cfg.Pipeline.QueueSize = 256
	}
	if cfg.Pipeline.RetryBackoff == 0 {
		cfg.Pipeline.RetryBackoff = 500
	}
	if cfg.Pipeline.DeadLetterKey == "" {
		cfg.Pipeline.DeadLetterKey = "pipeline:deadletter"
	}
	if cfg.Recommendation.Limit == 0 {
		cfg.Recommendation.Limit = 5
	}
	if cfg.Recommendation.CacheTTL == 0 {
		cfg.Recommendation.CacheTTL = 60000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks that required settings are present.
func Validate(cfg *Config) error {
	if cfg.KnowledgeStore.BaseURL == "" {
		return fmt.Errorf("knowledge_store.base_url is required")
	}
	if cfg.Extraction.BaseURL == "" {
		return fmt.Errorf("extraction.base_url is required")
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	return nil
}
