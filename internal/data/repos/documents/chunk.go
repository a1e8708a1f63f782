package documents

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type ChunkRepo interface {
	CreateBatch(dbc dbctx.Context, chunks []*types.Chunk) error
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error)
	DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error
	// ContainsText reports whether any stored chunk contains needle, case-insensitively.
	ContainsText(dbc dbctx.Context, needle string) (bool, error)
	Count(dbc dbctx.Context) (int64, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) CreateBatch(dbc dbctx.Context, chunks []*types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if c == nil || c.ID == "" || c.DocumentID == uuid.Nil {
			return fmt.Errorf("invalid chunk row")
		}
	}
	return dbc.DB(r.db).CreateInBatches(chunks, 100).Error
}

func (r *chunkRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error) {
	var out []*types.Chunk
	if documentID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("document_id = ?", documentID).
		Order("ordinal ASC").
		Find(&out).Error
	return out, err
}

func (r *chunkRepo) DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).Where("document_id = ?", documentID).Delete(&types.Chunk{}).Error
}

func (r *chunkRepo) ContainsText(dbc dbctx.Context, needle string) (bool, error) {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false, nil
	}
	var n int64
	err := dbc.DB(r.db).
		Model(&types.Chunk{}).
		Where(`LOWER(content) LIKE ? ESCAPE '\'`, "%"+EscapeLike(needle)+"%").
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *chunkRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Chunk{}).Count(&n).Error
	return n, err
}

// EscapeLike escapes LIKE wildcards using backslash as the escape character.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
