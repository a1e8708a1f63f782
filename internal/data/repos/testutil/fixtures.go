package testutil

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/domain/documents"
)

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, filename, content string) *types.Document {
	tb.Helper()
	sum := md5.Sum([]byte(filename + "|" + content + "|" + uuid.NewString()))
	d := &types.Document{
		Filename:     filename,
		UserID:       "user-" + uuid.NewString()[:8],
		Country:      documents.DefaultCountry,
		DocumentType: documents.DefaultDocumentType,
		Content:      content,
		ContentHash:  hex.EncodeToString(sum[:]),
		Status:       types.DocumentStatusProcessed,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

func SeedChunk(tb testing.TB, ctx context.Context, tx *gorm.DB, doc *types.Document, ordinal int, content string) *types.Chunk {
	tb.Helper()
	c := &types.Chunk{
		ID:         documents.ChunkID(doc.ID, ordinal),
		DocumentID: doc.ID,
		Ordinal:    ordinal,
		Content:    content,
		Country:    doc.Country,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chunk: %v", err)
	}
	return c
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string) *types.ChatSession {
	tb.Helper()
	s := &types.ChatSession{UserID: userID}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}
