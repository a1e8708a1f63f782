package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultSessionTitle = "New Conversation"

type ChatSession struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  string    `gorm:"column:user_id;not null;index" json:"user_id"`
	Title   string    `gorm:"column:title;not null" json:"title"`
	Country string    `gorm:"column:country" json:"country,omitempty"`

	// NextSeq orders messages written within the same timestamp tick.
	NextSeq int64 `gorm:"column:next_seq;not null;default:0" json:"-"`

	CreatedAt time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ChatSession) TableName() string { return "chat_session" }

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	if s.Title == "" {
		s.Title = DefaultSessionTitle
	}
	return nil
}
