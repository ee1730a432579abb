// Package app wires the configuration into the loggers and storage backends shared by the binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"studenthousing/internal/config"
	"studenthousing/internal/model"
	"studenthousing/internal/repository"
	"studenthousing/internal/service"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger from the logging configuration
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

// Backend is the configured vector index plus the optional query log store
type Backend struct {
	Index     repository.VectorIndex
	SearchLog service.SearchLogger

	closers []func() error
}

// Close releases every connection opened by OpenBackend
func (b *Backend) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenBackend connects the vector index selected by VECTOR_STORE and, when a database
// is configured, the PostgreSQL query log. Collections and tables are created on demand.
func OpenBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	b := &Backend{}
	dimension := cfg.OpenAI.EmbeddingDimensions

	var pg *repository.PostgresRepository
	if cfg.VectorStore.Type == "pgvector" || cfg.HasPostgreSQL() {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx, dimension); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to prepare database schema: %w", err)
		}
		pg = repo
		b.SearchLog = repo
		b.closers = append(b.closers, repo.Close)
		logger.Info().Str("database", cfg.PostgreSQL.Database).Msg("connected to PostgreSQL")
	}

	switch cfg.VectorStore.Type {
	case "qdrant":
		index := repository.NewQdrantIndex(repository.QdrantOptions{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.Timeout) * time.Second,
		})
		if err := index.EnsureCollection(ctx, dimension); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to prepare qdrant collection: %w", err)
		}
		b.Index = index
		logger.Info().Str("url", cfg.Qdrant.URL).Str("collection", cfg.Qdrant.Collection).Msg("using qdrant vector index")
	case "pgvector":
		b.Index = pg
		logger.Info().Msg("using pgvector vector index")
	default:
		b.Index = repository.NewMemoryIndex()
		logger.Warn().Msg("using in-memory vector index, the catalogue is re-indexed at startup")
	}

	return b, nil
}

// Stores opens the document and listing record stores
func Stores(cfg *config.Config) (*repository.JSONLStore[model.Document], *repository.JSONLStore[model.ApartmentEntry]) {
	return repository.NewJSONLStore[model.Document](cfg.Store.DocumentsFile),
		repository.NewJSONLStore[model.ApartmentEntry](cfg.Store.ApartmentsFile)
}
