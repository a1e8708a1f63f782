package documents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Chunk is an immutable, independently embedded segment of a document.
type Chunk struct {
	ID         string    `gorm:"column:id;size:96;primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chunk_document_ordinal,priority:1" json:"document_id"`
	Ordinal    int       `gorm:"column:ordinal;not null;uniqueIndex:idx_chunk_document_ordinal,priority:2" json:"ordinal"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`

	// Embedding is nil when the embed step failed for this chunk.
	Embedding    datatypes.JSON `gorm:"column:embedding" json:"-"`
	EmbeddingDim int            `gorm:"column:embedding_dim;not null;default:0" json:"embedding_dim"`

	References datatypes.JSON `gorm:"column:references" json:"references"`
	Country    string         `gorm:"column:country;not null;index" json:"country"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null" json:"created_at"`
}

func (Chunk) TableName() string { return "legal_document_chunk" }

// ChunkID derives the stable chunk identifier for a document ordinal.
func ChunkID(documentID uuid.UUID, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID.String(), ordinal)
}

// ChunkReferences is the per-chunk reference set stored with each chunk.
type ChunkReferences struct {
	Laws     []string `json:"laws"`
	Cases    []string `json:"cases"`
	Articles []string `json:"articles"`
}

// DecodeReferences returns the stored reference set; missing lists decode as empty.
func (c *Chunk) DecodeReferences() ChunkReferences {
	var out ChunkReferences
	if c != nil && len(c.References) > 0 {
		_ = json.Unmarshal(c.References, &out)
	}
	if out.Laws == nil {
		out.Laws = []string{}
	}
	if out.Cases == nil {
		out.Cases = []string{}
	}
	if out.Articles == nil {
		out.Articles = []string{}
	}
	return out
}

func EncodeChunkReferences(refs ChunkReferences) datatypes.JSON {
	if refs.Laws == nil {
		refs.Laws = []string{}
	}
	if refs.Cases == nil {
		refs.Cases = []string{}
	}
	if refs.Articles == nil {
		refs.Articles = []string{}
	}
	b, _ := json.Marshal(refs)
	return datatypes.JSON(b)
}
