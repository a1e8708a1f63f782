package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type MessageRepo interface {
	// AppendPair stores a user message and its assistant reply atomically and touches the session.
	AppendPair(dbc dbctx.Context, sessionID uuid.UUID, user, assistant *types.ChatMessage) error
	// ListRecent returns the last limit messages of the session, oldest first.
	ListRecent(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (r *messageRepo) AppendPair(dbc dbctx.Context, sessionID uuid.UUID, user, assistant *types.ChatMessage) error {
	if sessionID == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	if user == nil || assistant == nil {
		return fmt.Errorf("message pair incomplete")
	}
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&types.ChatSession{}).Where("id = ?", sessionID)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var sess types.ChatSession
		if err := q.First(&sess).Error; err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		now := time.Now().UTC()
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		if assistant.CreatedAt.IsZero() || assistant.CreatedAt.Before(user.CreatedAt) {
			assistant.CreatedAt = user.CreatedAt
		}
		user.SessionID, assistant.SessionID = sessionID, sessionID
		user.Seq = sess.NextSeq + 1
		assistant.Seq = sess.NextSeq + 2

		if err := tx.Create([]*types.ChatMessage{user, assistant}).Error; err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
		return tx.Model(&types.ChatSession{}).
			Where("id = ?", sessionID).
			Updates(map[string]any{"next_seq": assistant.Seq, "updated_at": now}).Error
	})
}

func (r *messageRepo) ListRecent(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	var out []*types.ChatMessage
	if sessionID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	err := dbc.DB(r.db).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
