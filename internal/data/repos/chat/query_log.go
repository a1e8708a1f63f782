package chat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type QueryLogRepo interface {
	Create(dbc dbctx.Context, row *types.QueryLog) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueryLog, error)
	ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.QueryLog, error)
}

type queryLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueryLogRepo(db *gorm.DB, baseLog *logger.Logger) QueryLogRepo {
	return &queryLogRepo{db: db, log: baseLog.With("repo", "QueryLogRepo")}
}

func (r *queryLogRepo) Create(dbc dbctx.Context, row *types.QueryLog) error {
	if row == nil {
		return fmt.Errorf("nil query log")
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *queryLogRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QueryLog, error) {
	var out types.QueryLog
	err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *queryLogRepo) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.QueryLog, error) {
	var out []*types.QueryLog
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

type FeedbackRepo interface {
	Create(dbc dbctx.Context, row *types.Feedback) error
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) Create(dbc dbctx.Context, row *types.Feedback) error {
	if row == nil || row.QueryID == uuid.Nil {
		return fmt.Errorf("missing query_id")
	}
	if row.Rating < 1 || row.Rating > 5 {
		return fmt.Errorf("rating out of range: %d", row.Rating)
	}
	return dbc.DB(r.db).Create(row).Error
}
