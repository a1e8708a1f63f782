package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/lexcorpus-backend/internal/data/repos/chat"
	"github.com/yungbote/lexcorpus-backend/internal/data/repos/documents"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type DocumentRepo = documents.DocumentRepo
type ChunkRepo = documents.ChunkRepo
type DocumentListFilter = documents.ListFilter

type ChatSessionRepo = chat.SessionRepo
type ChatMessageRepo = chat.MessageRepo
type QueryLogRepo = chat.QueryLogRepo
type FeedbackRepo = chat.FeedbackRepo

var ErrDuplicateHash = documents.ErrDuplicateHash

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return documents.NewDocumentRepo(db, baseLog)
}
func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return documents.NewChunkRepo(db, baseLog)
}

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	return chat.NewSessionRepo(db, baseLog)
}
func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}
func NewQueryLogRepo(db *gorm.DB, baseLog *logger.Logger) QueryLogRepo {
	return chat.NewQueryLogRepo(db, baseLog)
}
func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return chat.NewFeedbackRepo(db, baseLog)
}
