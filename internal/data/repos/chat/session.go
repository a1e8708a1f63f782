package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, s *types.ChatSession) error
	GetByID(dbc dbctx.Context, userID string, id uuid.UUID) (*types.ChatSession, error)
	LatestForUser(dbc dbctx.Context, userID string) (*types.ChatSession, error)
	ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.ChatSession, error)
	Rename(dbc dbctx.Context, userID string, id uuid.UUID, title string) error
	SoftDelete(dbc dbctx.Context, userID string, id uuid.UUID) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "ChatSessionRepo")}
}

func (r *sessionRepo) Create(dbc dbctx.Context, s *types.ChatSession) error {
	if s == nil || strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("missing user_id")
	}
	return dbc.DB(r.db).Create(s).Error
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, userID string, id uuid.UUID) (*types.ChatSession, error) {
	if userID == "" || id == uuid.Nil {
		return nil, nil
	}
	var out types.ChatSession
	err := dbc.DB(r.db).Where("id = ? AND user_id = ?", id, userID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) LatestForUser(dbc dbctx.Context, userID string) (*types.ChatSession, error) {
	if userID == "" {
		return nil, nil
	}
	var out types.ChatSession
	err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.ChatSession, error) {
	var out []*types.ChatSession
	if userID == "" {
		return out, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *sessionRepo) Rename(dbc dbctx.Context, userID string, id uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("missing title")
	}
	res := dbc.DB(r.db).
		Model(&types.ChatSession{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"title": title, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionRepo) SoftDelete(dbc dbctx.Context, userID string, id uuid.UUID) error {
	res := dbc.DB(r.db).Where("id = ? AND user_id = ?", id, userID).Delete(&types.ChatSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
