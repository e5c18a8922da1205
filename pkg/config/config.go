package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration
	SecretKey        string

	// LLM providers
	AIProvider      string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiApiKey    string
	OllamaBaseURL   string
	OllamaModel     string
	NameStrategy    string

	// Google (Gmail gateway + Pub/Sub push)
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleProjectID     string
	GooglePubSubTopic   string
	GoogleCredentials   string
	FirebaseCredentials string

	ChromaURL      string
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	RedisURL     string
	AMQPURL      string
	AMQPExchange string
	S3Bucket     string
	AWSRegion    string

	Schedules Schedules
	Pipeline  Pipeline
}

// Schedules holds cron expressions for the batch jobs
type Schedules struct {
	Ingest    string `yaml:"ingest"`
	Digest    string `yaml:"digest"`
	Sweep     string `yaml:"sweep"`
	Retention string `yaml:"retention"`
}

// Pipeline holds tunables shared by ingestion and digest generation
type Pipeline struct {
	Lookback             time.Duration `yaml:"lookback"`
	LLMTimeout           time.Duration `yaml:"llm_timeout"`
	Cooldown             time.Duration `yaml:"cooldown"`
	Retention            time.Duration `yaml:"retention"`
	DigestWindow         time.Duration `yaml:"digest_window"`
	MaxNewslettersPerDay int           `yaml:"max_newsletters_per_day"`
	SummaryWorkers       int           `yaml:"summary_workers"`
}

type fileOverlay struct {
	Schedules Schedules `yaml:"schedules"`
	Pipeline  Pipeline  `yaml:"pipeline"`
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: databaseURL(),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		JWTRefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		SecretKey:        getEnv("SECRET_KEY", ""),

		AIProvider:      getEnv("AI_PROVIDER", "auto"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		GeminiApiKey:    getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llama3"),
		NameStrategy:    getEnv("NAME_STRATEGY", "forwarded"),

		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:   getEnv("GOOGLE_PUBSUB_TOPIC", ""),
		GoogleCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		ChromaURL:      getEnv("CHROMA_URL", ""),
		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		RedisURL:     getEnv("REDIS_URL", ""),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hermes.events"),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		AWSRegion:    getEnv("AWS_REGION", ""),

		Schedules: Schedules{
			Ingest:    getEnv("SCHEDULE_INGEST", "0 * * * *"),
			Digest:    getEnv("SCHEDULE_DIGEST", "0 7 * * *"),
			Sweep:     getEnv("SCHEDULE_SWEEP", "*/5 * * * *"),
			Retention: getEnv("SCHEDULE_RETENTION", "30 3 * * *"),
		},
		Pipeline: Pipeline{
			Lookback:             getDuration("INGEST_LOOKBACK", 24*time.Hour),
			LLMTimeout:           getDuration("LLM_TIMEOUT", 90*time.Second),
			Cooldown:             getDuration("SUMMARY_COOLDOWN", 5*time.Minute),
			Retention:            getDuration("EMAIL_RETENTION", 30*24*time.Hour),
			DigestWindow:         getDuration("DIGEST_WINDOW", 7*24*time.Hour),
			MaxNewslettersPerDay: getInt("MAX_NEWSLETTERS_PER_DAY", 5),
			SummaryWorkers:       getInt("SUMMARY_WORKERS", 2),
		},
	}

	if path := os.Getenv("HERMES_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Warnf("[Config] Ignoring config file %s: %v", path, err)
		}
	}

	return cfg
}

// applyFile overlays non-zero values from a YAML file
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	s := overlay.Schedules
	if s.Ingest != "" {
		c.Schedules.Ingest = s.Ingest
	}
	if s.Digest != "" {
		c.Schedules.Digest = s.Digest
	}
	if s.Sweep != "" {
		c.Schedules.Sweep = s.Sweep
	}
	if s.Retention != "" {
		c.Schedules.Retention = s.Retention
	}

	p := overlay.Pipeline
	if p.Lookback > 0 {
		c.Pipeline.Lookback = p.Lookback
	}
	if p.LLMTimeout > 0 {
		c.Pipeline.LLMTimeout = p.LLMTimeout
	}
	if p.Cooldown > 0 {
		c.Pipeline.Cooldown = p.Cooldown
	}
	if p.Retention > 0 {
		c.Pipeline.Retention = p.Retention
	}
	if p.DigestWindow > 0 {
		c.Pipeline.DigestWindow = p.DigestWindow
	}
	if p.MaxNewslettersPerDay > 0 {
		c.Pipeline.MaxNewslettersPerDay = p.MaxNewslettersPerDay
	}
	if p.SummaryWorkers > 0 {
		c.Pipeline.SummaryWorkers = p.SummaryWorkers
	}
	return nil
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "hermes"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
