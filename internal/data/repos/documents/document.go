package documents

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexcorpus-backend/internal/data/db"
	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

// ErrDuplicateHash is returned by Create when a document with the same content hash exists.
var ErrDuplicateHash = errors.New("document content hash already exists")

type ListFilter struct {
	Country string
	Limit   int
	Offset  int
}

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *types.Document) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	GetByHash(dbc dbctx.Context, hash string) (*types.Document, error)
	List(dbc dbctx.Context, f ListFilter) ([]*types.Document, int64, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status, message string) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	Stats(dbc dbctx.Context) (*types.CorpusStats, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *types.Document) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	if strings.TrimSpace(doc.ContentHash) == "" {
		return fmt.Errorf("missing content hash")
	}
	if err := dbc.DB(r.db).Create(doc).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateHash
		}
		return err
	}
	return nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Document
	err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) GetByHash(dbc dbctx.Context, hash string) (*types.Document, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil
	}
	var out types.Document
	err := dbc.DB(r.db).Where("content_hash = ?", hash).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) List(dbc dbctx.Context, f ListFilter) ([]*types.Document, int64, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	q := dbc.DB(r.db).Model(&types.Document{})
	if c := strings.ToLower(strings.TrimSpace(f.Country)); c != "" {
		q = q.Where("country = ?", c)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Document
	if err := q.Order("uploaded_at DESC").Order("id ASC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *documentRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status, message string) error {
	return r.UpdateFields(dbc, id, map[string]any{
		"status":         status,
		"status_message": message,
	})
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing document id")
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).Model(&types.Document{}).Where("id = ?", id).Updates(updates).Error
}

// Delete removes the document row together with its chunk rows.
func (r *documentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing document id")
	}
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&types.Chunk{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&types.Document{}).Error
	})
}

type groupCount struct {
	Key   string `gorm:"column:key"`
	Count int64  `gorm:"column:count"`
}

func (r *documentRepo) Stats(dbc dbctx.Context) (*types.CorpusStats, error) {
	db := dbc.DB(r.db)
	out := &types.CorpusStats{
		ByCountry: map[string]int64{},
		ByType:    map[string]int64{},
		ByStatus:  map[string]int64{},
	}
	if err := db.Model(&types.Document{}).Count(&out.TotalDocuments).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&types.Chunk{}).Count(&out.TotalChunks).Error; err != nil {
		return nil, err
	}
	groups := []struct {
		column string
		into   map[string]int64
	}{
		{"country", out.ByCountry},
		{"document_type", out.ByType},
		{"status", out.ByStatus},
	}
	for _, g := range groups {
		var rows []groupCount
		if err := db.Model(&types.Document{}).
			Select(g.column + " AS key, COUNT(*) AS count").
			Group(g.column).
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("stats by %s: %w", g.column, err)
		}
		for _, row := range rows {
			g.into[row.Key] = row.Count
		}
	}
	return out, nil
}
