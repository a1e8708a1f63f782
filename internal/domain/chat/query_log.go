package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QueryLog records one answered question for auditing and feedback.
type QueryLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string         `gorm:"column:user_id;not null;index" json:"user_id"`
	SessionID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	MessageID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"message_id"`
	Question       string         `gorm:"column:question;type:text;not null" json:"question"`
	Response       string         `gorm:"column:response;type:text;not null" json:"response"`
	DocumentsUsed  datatypes.JSON `gorm:"column:documents_used" json:"documents_used"`
	Guarded        bool           `gorm:"column:guarded;not null;default:false" json:"guarded"`
	Fallback       bool           `gorm:"column:fallback;not null;default:false" json:"fallback"`
	ResponseTimeMS int64          `gorm:"column:response_time_ms;not null;default:0" json:"response_time_ms"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (QueryLog) TableName() string { return "query_log" }

func (q *QueryLog) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return nil
}

type Feedback struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QueryID   uuid.UUID `gorm:"type:uuid;not null;index" json:"query_id"`
	UserID    string    `gorm:"column:user_id;not null;index" json:"user_id"`
	Rating    int       `gorm:"column:rating;not null" json:"rating"`
	IsHelpful bool      `gorm:"column:is_helpful;not null" json:"is_helpful"`
	Text      string    `gorm:"column:text;type:text" json:"text,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Feedback) TableName() string { return "query_feedback" }

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return nil
}
