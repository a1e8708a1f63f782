package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/lexcorpus-backend/internal/ingestion/pipeline"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidUpload     = pipeline.ErrInvalidUpload
	ErrDuplicateDocument = errors.New("document already ingested")
	ErrPersistence       = errors.New("could not save the conversation")
	ErrUnavailable       = errors.New("feature not configured")
	ErrNoArchive         = pipeline.ErrNoArchive
)

// DuplicateDocumentError carries the id of the document that already holds the content.
type DuplicateDocumentError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("%s: existing document %s", ErrDuplicateDocument, e.ExistingID)
}

func (e *DuplicateDocumentError) Unwrap() error { return ErrDuplicateDocument }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
