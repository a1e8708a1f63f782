package services

import (
	"context"

	"github.com/yungbote/lexcorpus-backend/internal/data/repos"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/references"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
)

type chunkCorpus struct {
	chunks repos.ChunkRepo
}

// NewCorpus exposes the chunk table to the reference verifier.
func NewCorpus(chunks repos.ChunkRepo) references.Corpus {
	return chunkCorpus{chunks: chunks}
}

func (c chunkCorpus) ContainsText(ctx context.Context, needle string) (bool, error) {
	return c.chunks.ContainsText(dbctx.New(ctx), needle)
}
