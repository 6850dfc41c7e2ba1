package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStore implements qacache.VectorStore on Postgres with pgvector.
// Each collection maps to its own table.
type PostgresStore struct {
	pool      *pgxpool.Pool
	embedder  qacache.Embedder
	dimension int
	logger    *slog.Logger
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool, embedder qacache.Embedder, dimension int, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:      pool,
		embedder:  embedder,
		dimension: dimension,
		logger:    logger.With("component", "vectorstore.postgres"),
	}
}

// EnsureCollection creates the collection table and its similarity index if
// they do not exist yet. An index that cannot be built (too few rows for
// ivfflat, missing privileges) leaves the table usable via sequential scan.
func (s *PostgresStore) EnsureCollection(ctx context.Context, name string) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "pgvector extension unavailable", err)
	}
	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         text PRIMARY KEY,
			document   text NOT NULL,
			attributes jsonb NOT NULL DEFAULT '{}'::jsonb,
			embedding  vector(%d) NOT NULL
		)
	`, table, s.dimension))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "create collection table failed", err)
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s USING ivfflat (embedding vector_cosine_ops)
	`, table, table))
	if err != nil {
		s.logger.Warn("similarity index not created, queries fall back to scan", "collection", name, "error", err)
	}
	return nil
}

// Upsert embeds the document and writes the row, replacing any prior entry
// with the same id.
func (s *PostgresStore) Upsert(ctx context.Context, collection, id, document string, attributes map[string]any) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}
	embedding, err := s.embedder.Embed(ctx, document)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(attributes)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "encode attributes failed", err)
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, document, attributes, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET document = EXCLUDED.document,
		    attributes = EXCLUDED.attributes,
		    embedding = EXCLUDED.embedding
	`, table), id, document, payload, pgvector.NewVector(embedding))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "upsert failed", err)
	}
	return nil
}

// Query returns the topK nearest rows by cosine distance, restricted to rows
// whose attributes contain every filter pair.
func (s *PostgresStore) Query(ctx context.Context, collection, query string, filter map[string]string, topK int) ([]qacache.RawMatch, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	if topK > qacache.MaxTopK {
		topK = qacache.MaxTopK
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	contains := make(map[string]any, len(filter))
	for k, v := range filter {
		contains[k] = v
	}
	filterPayload, err := json.Marshal(contains)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCache, "encode filter failed", err)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT document, attributes, embedding <=> $1 AS distance
		FROM %s
		WHERE attributes @> $2::jsonb
		ORDER BY embedding <=> $1
		LIMIT $3
	`, table), pgvector.NewVector(embedding), filterPayload, topK)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCache, "similarity query failed", err)
	}
	defer rows.Close()

	var matches []qacache.RawMatch
	for rows.Next() {
		var (
			match   qacache.RawMatch
			payload []byte
		)
		if err := rows.Scan(&match.Document, &payload, &match.Distance); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeCache, "scan match failed", err)
		}
		if err := json.Unmarshal(payload, &match.Attributes); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeCache, "decode attributes failed", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// Count implements qacache.VectorStore.
func (s *PostgresStore) Count(ctx context.Context, collection string) (int64, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, table)).Scan(&count); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeCache, "count failed", err)
	}
	return count, nil
}

// Drop implements qacache.VectorStore.
func (s *PostgresStore) Drop(ctx context.Context, collection string) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "drop collection failed", err)
	}
	return nil
}

// tableName maps a collection name onto a safe SQL identifier. Collection
// names come from configuration, not user input, but are validated anyway
// because they are interpolated into statements.
func tableName(collection string) (string, error) {
	name := strings.ToLower(collection)
	if !collectionNamePattern.MatchString(name) {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "invalid collection name "+collection, nil)
	}
	return name, nil
}

var _ qacache.VectorStore = (*PostgresStore)(nil)
