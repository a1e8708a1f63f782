package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// References is the verified citation set attached to an assistant message.
type References struct {
	Laws  []string `json:"laws"`
	Cases []string `json:"cases"`
}

// EmptyReferences returns a references value with non-nil empty slices so it encodes as [].
func EmptyReferences() References {
	return References{Laws: []string{}, Cases: []string{}}
}

type ChatMessage struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_message_session_order,priority:1" json:"session_id"`
	UserID    string         `gorm:"column:user_id;not null;index" json:"user_id"`
	Seq       int64          `gorm:"column:seq;not null;index:idx_chat_message_session_order,priority:3" json:"seq"`
	Role      string         `gorm:"column:role;not null" json:"role"`
	Content   string         `gorm:"column:content;type:text;not null" json:"content"`
	Refs      datatypes.JSON `gorm:"column:references" json:"references,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index:idx_chat_message_session_order,priority:2" json:"timestamp"`
}

func (ChatMessage) TableName() string { return "chat_message" }

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}

// References decodes the stored references, tolerating empty/null payloads.
func (m *ChatMessage) References() References {
	out := EmptyReferences()
	if m == nil || len(m.Refs) == 0 {
		return out
	}
	_ = json.Unmarshal(m.Refs, &out)
	if out.Laws == nil {
		out.Laws = []string{}
	}
	if out.Cases == nil {
		out.Cases = []string{}
	}
	return out
}

// EncodeReferences marshals refs for storage.
func EncodeReferences(refs References) datatypes.JSON {
	if refs.Laws == nil {
		refs.Laws = []string{}
	}
	if refs.Cases == nil {
		refs.Cases = []string{}
	}
	b, _ := json.Marshal(refs)
	return datatypes.JSON(b)
}
