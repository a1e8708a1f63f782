package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/lexcorpus-backend/internal/data/repos"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type Repos struct {
	Document    repos.DocumentRepo
	Chunk       repos.ChunkRepo
	ChatSession repos.ChatSessionRepo
	ChatMessage repos.ChatMessageRepo
	QueryLog    repos.QueryLogRepo
	Feedback    repos.FeedbackRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Document:    repos.NewDocumentRepo(db, log),
		Chunk:       repos.NewChunkRepo(db, log),
		ChatSession: repos.NewChatSessionRepo(db, log),
		ChatMessage: repos.NewChatMessageRepo(db, log),
		QueryLog:    repos.NewQueryLogRepo(db, log),
		Feedback:    repos.NewFeedbackRepo(db, log),
	}
}
