package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL  PostgreSQLConfig
	Qdrant      QdrantConfig
	VectorStore VectorStoreConfig
	Server      ServerConfig
	Store       StoreConfig
	Ranking     RankingConfig
	Logging     LoggingConfig
	OpenAI      OpenAIConfig
	Crawler     CrawlerConfig
	Zones       []Zone
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence over the fields below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// QdrantConfig holds Qdrant REST configuration
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    int
}

// VectorStoreConfig selects the vector index backend
type VectorStoreConfig struct {
	Type string // qdrant, pgvector or memory
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
	RequestTimeout int
}

// StoreConfig holds the line-delimited record store locations
type StoreConfig struct {
	DocumentsFile  string
	ApartmentsFile string
	ContactEmail   string
}

// RankingConfig holds ranking weights configuration
type RankingConfig struct {
	WeightSimilarity   float64
	WeightPrice        float64
	WeightAvailability float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string merged into chat requests as extra_body
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string
	BatchSize           int
	Timeout             int
	Enabled             bool
}

// CrawlerConfig holds crawler defaults
type CrawlerConfig struct {
	UserAgent string
	MaxPages  int
	MaxWords  int
	Timeout   int
	Language  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "student_housing"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "chunks"),
			Timeout:    getEnvAsInt("QDRANT_TIMEOUT", 15),
		},
		VectorStore: VectorStoreConfig{
			Type: strings.ToLower(getEnv("VECTOR_STORE", "qdrant")),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
			RequestTimeout: getEnvAsInt("SERVER_REQUEST_TIMEOUT", 60),
		},
		Store: StoreConfig{
			DocumentsFile:  getEnv("DOCUMENTS_FILE", "data/documents.jsonl"),
			ApartmentsFile: getEnv("APARTMENTS_FILE", "data/apartments.jsonl"),
			ContactEmail:   getEnv("LISTING_CONTACT_EMAIL", "contact@example.com"),
		},
		Ranking: RankingConfig{
			WeightSimilarity:   getEnvAsFloat("RANK_WEIGHT_SIMILARITY", 0.5),
			WeightPrice:        getEnvAsFloat("RANK_WEIGHT_PRICE", 0.3),
			WeightAvailability: getEnvAsFloat("RANK_WEIGHT_AVAILABILITY", 0.2),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", ""),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Crawler: CrawlerConfig{
			UserAgent: getEnv("CRAWLER_USER_AGENT", "Mozilla/5.0 (compatible; HousingCrawler/1.0)"),
			MaxPages:  getEnvAsInt("CRAWLER_MAX_PAGES", 100),
			MaxWords:  getEnvAsInt("CRAWLER_MAX_WORDS", 500),
			Timeout:   getEnvAsInt("CRAWLER_TIMEOUT", 10),
			Language:  getEnv("CRAWLER_LANGUAGE", "fr"),
		},
	}

	switch cfg.VectorStore.Type {
	case "qdrant", "pgvector", "memory":
	default:
		return nil, fmt.Errorf("unsupported VECTOR_STORE %q (expected qdrant, pgvector or memory)", cfg.VectorStore.Type)
	}

	zones, err := LoadZones(getEnv("ZONES_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Zones = zones

	return cfg, nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// HasPostgreSQL reports whether a database was configured explicitly
func (c *Config) HasPostgreSQL() bool {
	return c.PostgreSQL.DSN != "" || os.Getenv("PG_HOST") != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("invalid float value, using default")
		return defaultValue
	}
	return value
}
