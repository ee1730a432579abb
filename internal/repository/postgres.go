package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"studenthousing/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresRepository is a pgvector-backed vector index that also stores the search log
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the pgvector extension and the tables used by the repository
func (r *PostgresRepository) EnsureSchema(ctx context.Context, dimension int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vector_points (
			id         TEXT PRIMARY KEY,
			embedding  vector(%d) NOT NULL,
			payload    JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS vector_points_type_idx ON vector_points ((payload->>'type'))`,
		`CREATE TABLE IF NOT EXISTS search_logs (
			search_id            TEXT PRIMARY KEY,
			query                TEXT NOT NULL,
			is_listing_search    BOOLEAN NOT NULL,
			criteria             JSONB,
			result_count         INTEGER NOT NULL,
			returned_listing_ids TEXT[],
			fallback_used        BOOLEAN NOT NULL DEFAULT FALSE,
			response_time_ms     INTEGER NOT NULL,
			clicked_listing_id   TEXT,
			action               TEXT,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

type pointRow struct {
	ID      string        `db:"id"`
	Payload model.JSONMap `db:"payload"`
	Score   float64       `db:"score"`
}

// Search performs a cosine-distance search restricted by payload equality conditions
func (r *PostgresRepository) Search(ctx context.Context, vector []float32, filter model.Filter, limit int) ([]model.Hit, error) {
	args := []interface{}{pgvector.NewVector(vector)}
	whereClauses, filterArgs, argIndex, err := buildPayloadWhere(filter, 2)
	if err != nil {
		return nil, err
	}
	args = append(args, filterArgs...)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM vector_points
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, strings.Join(whereClauses, " AND "), argIndex)

	var rows []pointRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search vector_points: %w", err)
	}

	hits := make([]model.Hit, 0, len(rows))
	for _, row := range rows {
		payload := row.Payload
		if payload == nil {
			payload = model.JSONMap{}
		}
		hits = append(hits, model.Hit{ID: row.ID, Payload: payload, Score: row.Score})
	}
	return hits, nil
}

// buildPayloadWhere translates a filter into JSONB comparisons starting at placeholder $argIndex.
// It returns the clauses, their arguments and the next free placeholder index.
func buildPayloadWhere(filter model.Filter, argIndex int) ([]string, []interface{}, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}

	for _, c := range filter.Must {
		value, err := json.Marshal(c.Value)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("invalid filter value for %s: %w", c.Key, err)
		}
		whereClauses = append(whereClauses, fmt.Sprintf("payload->%s = $%d::jsonb", pq.QuoteLiteral(c.Key), argIndex))
		args = append(args, string(value))
		argIndex++
	}
	for _, c := range filter.MustNot {
		value, err := json.Marshal(c.Value)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("invalid filter value for %s: %w", c.Key, err)
		}
		whereClauses = append(whereClauses, fmt.Sprintf("payload->%s IS DISTINCT FROM $%d::jsonb", pq.QuoteLiteral(c.Key), argIndex))
		args = append(args, string(value))
		argIndex++
	}

	return whereClauses, args, argIndex, nil
}

// Upsert inserts or replaces points in a single transaction
func (r *PostgresRepository) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO vector_points (id, embedding, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload, updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.ID, pgvector.NewVector(p.Vector), p.Payload); err != nil {
			return fmt.Errorf("point %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes points by id
func (r *PostgresRepository) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM vector_points WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// LogSearch records a turn in the search log
func (r *PostgresRepository) LogSearch(ctx context.Context, entry model.SearchLog) error {
	criteria, err := json.Marshal(entry.Criteria)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}

	logQuery := `
		INSERT INTO search_logs (search_id, query, is_listing_search, criteria, result_count, returned_listing_ids, fallback_used, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, logQuery,
		entry.SearchID,
		entry.Query,
		entry.IsListingSearch,
		string(criteria),
		entry.ResultCount,
		pq.Array(entry.ListingIDs),
		entry.FallbackUsed,
		int(entry.ResponseTime.Milliseconds()),
	)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// LogFeedback logs user feedback/action
func (r *PostgresRepository) LogFeedback(ctx context.Context, searchID, listingID, action string) error {
	query := `
		UPDATE search_logs
		SET clicked_listing_id = $2, action = $3
		WHERE search_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, searchID, listingID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("search %s: %w", searchID, ErrNotFound)
	}
	return nil
}
