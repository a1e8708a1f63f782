package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

// VectorEntry is the relational row backing the sql store.
type VectorEntry struct {
	ChunkID    string         `gorm:"column:chunk_id;size:96;primaryKey"`
	DocumentID string         `gorm:"column:document_id;size:64;not null;index"`
	Source     string         `gorm:"column:source;not null"`
	Text       string         `gorm:"column:text;type:text;not null"`
	Country    string         `gorm:"column:country;index"`
	Dim        int            `gorm:"column:dim;not null;index"`
	Vector     datatypes.JSON `gorm:"column:vector;not null"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null"`
}

func (VectorEntry) TableName() string { return "vector_entry" }

type sqlStore struct {
	db  *gorm.DB
	dim int
	log *logger.Logger
}

// NewSQL returns a brute-force store over the vector_entry table, migrating it if needed.
func NewSQL(db *gorm.DB, dim int, log *logger.Logger) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if err := db.AutoMigrate(&VectorEntry{}); err != nil {
		return nil, fmt.Errorf("migrate vector_entry: %w", err)
	}
	return &sqlStore{db: db, dim: dim, log: log.With("service", "SQLVectorStore")}, nil
}

func (s *sqlStore) Dimension() int { return s.dim }

func (s *sqlStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := CheckDimension(s.dim, records); err != nil {
		return err
	}
	now := time.Now().UTC()
	rows := make([]*VectorEntry, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal(r.Vector)
		if err != nil {
			return fmt.Errorf("encode vector %s: %w", r.ChunkID, err)
		}
		rows = append(rows, &VectorEntry{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Source:     r.Source,
			Text:       r.Text,
			Country:    r.Country,
			Dim:        len(r.Vector),
			Vector:     datatypes.JSON(b),
			UpdatedAt:  now,
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document_id", "source", "text", "country", "dim", "vector", "updated_at"}),
	}).Create(&rows).Error
}

func (s *sqlStore) Search(ctx context.Context, q []float32, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	var rows []VectorEntry
	if err := s.db.WithContext(ctx).Where("dim = ?", len(q)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		var v []float32
		if err := json.Unmarshal(row.Vector, &v); err != nil || len(v) != len(q) {
			s.log.Warn("skipping undecodable vector", "chunk_id", row.ChunkID, "error", err)
			continue
		}
		out = append(out, Result{
			ChunkID:    row.ChunkID,
			DocumentID: row.DocumentID,
			Source:     row.Source,
			Text:       row.Text,
			Distance:   EuclideanDistance(q, v),
		})
	}
	SortResults(out)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *sqlStore) DeleteDocument(ctx context.Context, documentID string) error {
	return s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&VectorEntry{}).Error
}
