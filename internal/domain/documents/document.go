package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusError      = "error"
)

const (
	DefaultCountry      = "nigeria"
	DefaultDocumentType = "legal_document"
)

// Document is an ingested legal source. Content and hash are immutable once created;
// only the status fields move.
type Document struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Filename     string    `gorm:"column:filename;not null" json:"filename"`
	UserID       string    `gorm:"column:user_id;not null;index" json:"user_id"`
	Country      string    `gorm:"column:country;not null;index" json:"country"`
	DocumentType string    `gorm:"column:document_type;not null;index" json:"document_type"`

	Content     string `gorm:"column:content;type:text;not null" json:"-"`
	ContentHash string `gorm:"column:content_hash;size:32;not null;uniqueIndex" json:"content_hash"`
	SizeBytes   int64  `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	PageCount   int    `gorm:"column:page_count;not null;default:0" json:"page_count"`
	OCRPages    int    `gorm:"column:ocr_pages;not null;default:0" json:"ocr_pages"`
	StorageKey  string `gorm:"column:storage_key" json:"storage_key,omitempty"`

	Status        string `gorm:"column:status;not null;index" json:"status"`
	StatusMessage string `gorm:"column:status_message" json:"status_message,omitempty"`

	UploadedAt time.Time `gorm:"column:uploaded_at;not null;index" json:"uploaded_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updated_at"`

	Chunks []*Chunk `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"chunks,omitempty"`
}

func (Document) TableName() string { return "legal_document" }

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	if d.UploadedAt.IsZero() {
		d.UploadedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}
	if d.Status == "" {
		d.Status = StatusProcessing
	}
	return nil
}
