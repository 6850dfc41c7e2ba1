package vectorstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

// vectorRow is the SQLite persistence shape. Embeddings are kept as JSON
// arrays; similarity is computed in process since SQLite has no vector type.
type vectorRow struct {
	Collection string `gorm:"primaryKey;size:128"`
	EntryID    string `gorm:"primaryKey;size:64"`
	Document   string
	Attributes string
	Embedding  string
}

func (vectorRow) TableName() string { return "vector_entries" }

// SQLiteStore is a file-backed VectorStore. It is the durable local fallback
// when Postgres is not reachable.
type SQLiteStore struct {
	db       *gorm.DB
	embedder qacache.Embedder
	logger   *slog.Logger
}

// NewSQLiteStore opens (or creates) the database file and migrates the schema.
func NewSQLiteStore(path string, embedder qacache.Embedder, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCache, "open sqlite store failed", err)
	}
	if err := db.AutoMigrate(&vectorRow{}); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCache, "migrate sqlite store failed", err)
	}
	return &SQLiteStore{
		db:       db,
		embedder: embedder,
		logger:   logger.With("component", "vectorstore.sqlite"),
	}, nil
}

// EnsureCollection implements qacache.VectorStore. Collections are rows in a
// shared table, so there is nothing to create ahead of the first upsert.
func (s *SQLiteStore) EnsureCollection(context.Context, string) error { return nil }

// Upsert implements qacache.VectorStore.
func (s *SQLiteStore) Upsert(ctx context.Context, collection, id, document string, attributes map[string]any) error {
	embedding, err := s.embedder.Embed(ctx, document)
	if err != nil {
		return err
	}
	attrPayload, err := json.Marshal(attributes)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "encode attributes failed", err)
	}
	embPayload, err := json.Marshal(embedding)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "encode embedding failed", err)
	}

	row := vectorRow{
		Collection: collection,
		EntryID:    id,
		Document:   document,
		Attributes: string(attrPayload),
		Embedding:  string(embPayload),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "upsert failed", err)
	}
	return nil
}

// Query implements qacache.VectorStore. Candidate rows are loaded for the
// collection and ranked by cosine distance in process.
func (s *SQLiteStore) Query(ctx context.Context, collection, query string, filter map[string]string, topK int) ([]qacache.RawMatch, error) {
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

	var rows []vectorRow
	if err := s.db.WithContext(ctx).Where("collection = ?", collection).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCache, "query failed", err)
	}

	matches := make([]qacache.RawMatch, 0, len(rows))
	for _, row := range rows {
		var attributes map[string]any
		if err := json.Unmarshal([]byte(row.Attributes), &attributes); err != nil {
			s.logger.Warn("skipping row with undecodable attributes", "collection", collection, "id", row.EntryID)
			continue
		}
		if !attributesMatch(attributes, filter) {
			continue
		}
		var stored []float32
		if err := json.Unmarshal([]byte(row.Embedding), &stored); err != nil {
			s.logger.Warn("skipping row with undecodable embedding", "collection", collection, "id", row.EntryID)
			continue
		}
		matches = append(matches, qacache.RawMatch{
			Document:   row.Document,
			Attributes: attributes,
			Distance:   cosineDistance(embedding, stored),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count implements qacache.VectorStore.
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&vectorRow{}).Where("collection = ?", collection).Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeCache, "count failed", err)
	}
	return count, nil
}

// Drop implements qacache.VectorStore.
func (s *SQLiteStore) Drop(ctx context.Context, collection string) error {
	err := s.db.WithContext(ctx).Where("collection = ?", collection).Delete(&vectorRow{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCache, "drop collection failed", err)
	}
	return nil
}

var _ qacache.VectorStore = (*SQLiteStore)(nil)
