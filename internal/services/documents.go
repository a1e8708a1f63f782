package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/lexcorpus-backend/internal/data/graph"
	"github.com/yungbote/lexcorpus-backend/internal/data/repos"
	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/pipeline"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/objectstore"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

// CitationGraph is the optional document -> reference index.
type CitationGraph interface {
	Enabled() bool
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
	DocumentsCiting(ctx context.Context, ref string, limit int) ([]graph.CitingDocument, error)
}

type DocumentDetail struct {
	Document *types.Document `json:"document"`
	Chunks   []*types.Chunk  `json:"chunks"`
}

type DocumentPage struct {
	Documents []*types.Document `json:"documents"`
	Total     int64             `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

type DocumentService interface {
	Ingest(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	List(ctx context.Context, f repos.DocumentListFilter) (*DocumentPage, error)
	Get(ctx context.Context, id uuid.UUID) (*DocumentDetail, error)
	// Delete removes the document with its chunks, vectors, archived original and graph node.
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*types.CorpusStats, error)
	Reprocess(ctx context.Context, id uuid.UUID) (*pipeline.Result, error)
	CitingDocuments(ctx context.Context, ref string, limit int) ([]graph.CitingDocument, error)
}

type documentService struct {
	log       *logger.Logger
	docs      repos.DocumentRepo
	chunks    repos.ChunkRepo
	pipeline  *pipeline.Pipeline
	vectors   vectorstore.Store
	archive   objectstore.Store
	citations CitationGraph
}

// NewDocumentService accepts a nil archive and a nil citation graph.
func NewDocumentService(
	log *logger.Logger,
	docs repos.DocumentRepo,
	chunks repos.ChunkRepo,
	p *pipeline.Pipeline,
	vectors vectorstore.Store,
	archive objectstore.Store,
	citations CitationGraph,
) DocumentService {
	return &documentService{
		log:       log.With("service", "DocumentService"),
		docs:      docs,
		chunks:    chunks,
		pipeline:  p,
		vectors:   vectors,
		archive:   archive,
		citations: citations,
	}
}

func (s *documentService) Ingest(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, invalidf("user_id is required")
	}
	res, err := s.pipeline.Ingest(ctx, req)
	var dup *pipeline.DuplicateError
	if errors.As(err, &dup) {
		return nil, &DuplicateDocumentError{ExistingID: dup.ExistingID}
	}
	return res, err
}

func (s *documentService) List(ctx context.Context, f repos.DocumentListFilter) (*DocumentPage, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	docs, total, err := s.docs.List(dbctx.New(ctx), f)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if docs == nil {
		docs = []*types.Document{}
	}
	return &DocumentPage{Documents: docs, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *documentService) Get(ctx context.Context, id uuid.UUID) (*DocumentDetail, error) {
	dbc := dbctx.New(ctx)
	doc, err := s.docs.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	chunks, err := s.chunks.ListByDocument(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	if chunks == nil {
		chunks = []*types.Chunk{}
	}
	return &DocumentDetail{Document: doc, Chunks: chunks}, nil
}

func (s *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.New(ctx)
	doc, err := s.docs.GetByID(dbc, id)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return ErrNotFound
	}
	if err := s.vectors.DeleteDocument(ctx, id.String()); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := s.docs.Delete(dbc, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if s.archive != nil && doc.StorageKey != "" {
		if err := s.archive.Delete(ctx, doc.StorageKey); err != nil {
			s.log.Warn("Archived original not removed", "document_id", id, "key", doc.StorageKey, "error", err)
		}
	}
	if s.citations != nil {
		if err := s.citations.DeleteDocument(ctx, id); err != nil {
			s.log.Warn("Citation graph node not removed", "document_id", id, "error", err)
		}
	}
	s.log.Info("Document deleted", "document_id", id, "filename", doc.Filename)
	return nil
}

func (s *documentService) Stats(ctx context.Context) (*types.CorpusStats, error) {
	stats, err := s.docs.Stats(dbctx.New(ctx))
	if err != nil {
		return nil, fmt.Errorf("corpus stats: %w", err)
	}
	return stats, nil
}

func (s *documentService) Reprocess(ctx context.Context, id uuid.UUID) (*pipeline.Result, error) {
	res, err := s.pipeline.Reprocess(ctx, id)
	if errors.Is(err, pipeline.ErrDocumentNotFound) {
		return nil, ErrNotFound
	}
	return res, err
}

func (s *documentService) CitingDocuments(ctx context.Context, ref string, limit int) ([]graph.CitingDocument, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, invalidf("ref is required")
	}
	if s.citations == nil || !s.citations.Enabled() {
		return nil, ErrUnavailable
	}
	docs, err := s.citations.DocumentsCiting(ctx, ref, limit)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []graph.CitingDocument{}
	}
	return docs, nil
}
