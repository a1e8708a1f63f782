package domain

import (
	"github.com/yungbote/lexcorpus-backend/internal/domain/chat"
	"github.com/yungbote/lexcorpus-backend/internal/domain/documents"
)

type (
	Document        = documents.Document
	Chunk           = documents.Chunk
	ChunkReferences = documents.ChunkReferences
	CorpusStats     = documents.Stats

	ChatSession = chat.ChatSession
	ChatMessage = chat.ChatMessage
	References  = chat.References
	QueryLog    = chat.QueryLog
	Feedback    = chat.Feedback
)

const (
	DocumentStatusProcessing = documents.StatusProcessing
	DocumentStatusProcessed  = documents.StatusProcessed
	DocumentStatusError      = documents.StatusError

	RoleUser      = chat.RoleUser
	RoleAssistant = chat.RoleAssistant
)

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&documents.Document{},
		&documents.Chunk{},
		&chat.ChatSession{},
		&chat.ChatMessage{},
		&chat.QueryLog{},
		&chat.Feedback{},
	}
}
