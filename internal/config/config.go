package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "INSIGHT_BLITZ_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	redisURLEnv      = "REDIS_URL"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	apiTokenEnv      = "INSIGHT_API_TOKEN"
	listenAddrEnv    = "INSIGHT_LISTEN_ADDR"
	targetPerHourEnv = "BLITZ_TARGET_PER_HOUR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig describes the REST API listener and its bearer auth.
type ServerConfig struct {
	ListenAddr     string   `yaml:"listenAddr"`
	APIToken       string   `yaml:"apiToken"`
	APIKeysPath    string   `yaml:"apiKeysPath"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// EngineConfig governs the insight generation loop.
type EngineConfig struct {
	TargetPerHour    int           `yaml:"targetPerHour"`
	QualityThreshold float64       `yaml:"qualityThreshold"`
	Turbo            bool          `yaml:"turbo"`
	MaxConcurrent    int           `yaml:"maxConcurrent"`
	FetchTimeout     time.Duration `yaml:"fetchTimeout"`
}

// OpenAIConfig defines how to contact an OpenAI-compatible chat API.
// An empty APIKey means the engine runs in template-only mode.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	MaxTokens    int    `yaml:"maxTokens"`
}

// StorageConfig selects between the JSON file store and Postgres.
type StorageConfig struct {
	DataDir        string `yaml:"dataDir"`
	InsightLogPath string `yaml:"insightLogPath"`
	DomainsPath    string `yaml:"domainsPath"`
	RetentionCap   int    `yaml:"retentionCap"`
	DatabaseDSN    string `yaml:"databaseDsn"`
}

// CacheConfig tunes the API response cache.
type CacheConfig struct {
	DefaultTTL    time.Duration `yaml:"defaultTtl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	RedisURL      string        `yaml:"redisUrl"`
}

// LoggingConfig carries the minimum log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DatabaseDSN = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Cache.RedisURL = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(apiTokenEnv); v != "" {
		c.Server.APIToken = v
	}

	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.ListenAddr = v
	}

	if v := os.Getenv(targetPerHourEnv); v != "" {
		if target, err := strconv.Atoi(v); err != nil {
			log.Printf("config: invalid %s=%q: %v", targetPerHourEnv, v, err)
		} else if target > 0 {
			c.Engine.TargetPerHour = target
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.ListenAddr != "" {
		base.Server.ListenAddr = override.Server.ListenAddr
	}
	if override.Server.APIToken != "" {
		base.Server.APIToken = override.Server.APIToken
	}
	if override.Server.APIKeysPath != "" {
		base.Server.APIKeysPath = override.Server.APIKeysPath
	}
	if len(override.Server.AllowedOrigins) > 0 {
		base.Server.AllowedOrigins = override.Server.AllowedOrigins
	}

	if override.Engine.TargetPerHour > 0 {
		base.Engine.TargetPerHour = override.Engine.TargetPerHour
	}
	if override.Engine.QualityThreshold > 0 {
		base.Engine.QualityThreshold = override.Engine.QualityThreshold
	}
	if override.Engine.MaxConcurrent > 0 {
		base.Engine.MaxConcurrent = override.Engine.MaxConcurrent
	}
	if override.Engine.FetchTimeout > 0 {
		base.Engine.FetchTimeout = override.Engine.FetchTimeout
	}
	if override.Engine.Turbo {
		base.Engine.Turbo = true
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}
	if override.OpenAI.MaxTokens > 0 {
		base.OpenAI.MaxTokens = override.OpenAI.MaxTokens
	}

	if override.Storage.DataDir != "" {
		base.Storage.DataDir = override.Storage.DataDir
	}
	if override.Storage.InsightLogPath != "" {
		base.Storage.InsightLogPath = override.Storage.InsightLogPath
	}
	if override.Storage.DomainsPath != "" {
		base.Storage.DomainsPath = override.Storage.DomainsPath
	}
	if override.Storage.RetentionCap > 0 {
		base.Storage.RetentionCap = override.Storage.RetentionCap
	}
	if override.Storage.DatabaseDSN != "" {
		base.Storage.DatabaseDSN = override.Storage.DatabaseDSN
	}

	if override.Cache.DefaultTTL > 0 {
		base.Cache.DefaultTTL = override.Cache.DefaultTTL
	}
	if override.Cache.SweepInterval > 0 {
		base.Cache.SweepInterval = override.Cache.SweepInterval
	}
	if override.Cache.RedisURL != "" {
		base.Cache.RedisURL = override.Cache.RedisURL
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Engine: EngineConfig{
			TargetPerHour:    500,
			QualityThreshold: 0.70,
			MaxConcurrent:    10,
			FetchTimeout:     5 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a competitive intelligence analyst. Generate a concise, actionable insight about this domain's trust signals and competitive position.",
			MaxTokens:    200,
		},
		Storage: StorageConfig{
			DataDir:        "data",
			InsightLogPath: "data/insights/insight_log.json",
			DomainsPath:    "data/domains.json",
			RetentionCap:   1000,
		},
		Cache: CacheConfig{
			DefaultTTL:    5 * time.Minute,
			SweepInterval: time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
