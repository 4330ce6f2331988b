package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Storage   StorageConfig
	Search    SearchConfig
	Events    EventsConfig
	Skills    SkillsConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// LLMConfig selects the generative model backend. Models is the ordered
// candidate list probed at first use.
type LLMConfig struct {
	Provider      string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Models        []string
	Timeout       time.Duration
	MaxAttempts   int
	MaxRetries    int
}

type EmbeddingConfig struct {
	Model     string
	Dimension int
	MaxTokens int
}

type StorageConfig struct {
	Backend     string
	UploadPath  string
	MaxFileSize int64
	S3          S3Config
}

// S3Config also covers S3-compatible stores such as Cloudflare R2.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type SearchConfig struct {
	IndexPath string
}

type EventsConfig struct {
	RabbitMQURL string
	Exchange    string
}

type SkillsConfig struct {
	TaxonomyPath string
	NEREnabled   bool
}

type WorkerConfig struct {
	Concurrency  int
	QueueSize    int
	PollInterval time.Duration
	PollBatch    int
	// StaleAfter is how long a row may sit in processing before the poller
	// requeues it.
	StaleAfter time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found. Using environment and default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "3000"),
			Env:      getEnv("ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "resume_matcher"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "job_embeddings"),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			Models:        getEnvAsList("LLM_MODELS", []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-flash-latest"}),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", "30s"),
			MaxAttempts:   getEnvAsInt("LLM_MAX_ATTEMPTS", 4),
			MaxRetries:    getEnvAsInt("LLM_MAX_RETRIES", 2),
		},
		Embedding: EmbeddingConfig{
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
			MaxTokens: getEnvAsInt("EMBEDDING_MAX_TOKENS", 512),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			S3: S3Config{
				Bucket:          getEnv("S3_BUCKET", ""),
				Region:          getEnv("S3_REGION", "auto"),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			},
		},
		Search: SearchConfig{
			IndexPath: getEnv("SEARCH_INDEX_PATH", ""),
		},
		Events: EventsConfig{
			RabbitMQURL: getEnv("RABBITMQ_URL", ""),
			Exchange:    getEnv("RABBITMQ_EXCHANGE", "document_events"),
		},
		Skills: SkillsConfig{
			TaxonomyPath: getEnv("SKILLS_TAXONOMY_PATH", ""),
			NEREnabled:   getEnvAsBool("NER_ENABLED", false),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 3),
			QueueSize:    getEnvAsInt("WORKER_QUEUE_SIZE", 100),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
			PollBatch:    getEnvAsInt("WORKER_POLL_BATCH", 10),
			StaleAfter:   getEnvAsDuration("WORKER_STALE_AFTER", "10m"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
