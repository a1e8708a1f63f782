package pipeline

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lexcorpus-backend/internal/data/repos"
	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/domain/documents"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/chunker"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/extractor"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/references"
	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/embedding"
	"github.com/yungbote/lexcorpus-backend/internal/platform/envutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/objectstore"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

// MaxUploadBytes bounds a single PDF upload.
const MaxUploadBytes = 50 << 20

const (
	DefaultConcurrency  = 4
	DefaultEmbedTimeout = 20 * time.Second
)

var (
	ErrInvalidUpload    = errors.New("invalid upload")
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoArchive        = errors.New("original file not archived")
)

// DuplicateError reports an upload whose content hash is already ingested.
type DuplicateError struct {
	ExistingID uuid.UUID
	Filename   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("document %q already ingested as %s", e.Filename, e.ExistingID)
}

type Request struct {
	Data         []byte
	Filename     string
	UserID       string
	Country      string
	DocumentType string
}

type Result struct {
	DocumentID      uuid.UUID `json:"document_id"`
	ChunksProcessed int       `json:"chunks_processed"`
	ChunksTotal     int       `json:"chunks_total"`
	Status          string    `json:"status"`
}

type Config struct {
	Concurrency  int
	EmbedTimeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Concurrency:  envutil.Int("EMBED_CONCURRENCY", DefaultConcurrency),
		EmbedTimeout: envutil.Seconds("EMBEDDING_TIMEOUT_SECONDS", DefaultEmbedTimeout),
	}
}

// CitationSync mirrors per-document references into the citation graph.
type CitationSync interface {
	SyncDocument(ctx context.Context, doc *types.Document, chunks []*types.Chunk) error
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
}

// Deps wires the pipeline. Archive and Citations are optional.
type Deps struct {
	Log        *logger.Logger
	Documents  repos.DocumentRepo
	Chunks     repos.ChunkRepo
	Tx         dbctx.TxRunner
	Extractor  extractor.Extractor
	Chunker    *chunker.Chunker
	Embedder   embedding.Embedder
	Vectors    vectorstore.Store
	References references.Extractor
	Archive    objectstore.Store
	Citations  CitationSync
}

type Pipeline struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
}

func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Log == nil || deps.Documents == nil || deps.Chunks == nil || deps.Tx == nil ||
		deps.Extractor == nil || deps.Chunker == nil || deps.Embedder == nil || deps.Vectors == nil {
		return nil, fmt.Errorf("ingestion pipeline: missing deps")
	}
	if deps.References == nil {
		deps.References = references.NewRegexExtractor()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = DefaultEmbedTimeout
	}
	return &Pipeline{deps: deps, cfg: cfg, log: deps.Log.With("service", "IngestionPipeline")}, nil
}

// ValidateUpload checks extension, size and PDF magic.
func ValidateUpload(filename string, data []byte) error {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return fmt.Errorf("%w: only .pdf files are accepted", ErrInvalidUpload)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidUpload)
	}
	if len(data) > MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds %d MB", ErrInvalidUpload, MaxUploadBytes>>20)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return fmt.Errorf("%w: file is not a PDF", ErrInvalidUpload)
	}
	return nil
}

func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Ingest validates, extracts, chunks, embeds and stores one PDF.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	filename := filepath.Base(strings.TrimSpace(req.Filename))
	ctx, span := observability.StartSpan(ctx, "ingest.document", attribute.String("filename", filename))
	defer span.End()

	if err := ValidateUpload(filename, req.Data); err != nil {
		observability.Current().ObserveIngest("invalid", 0, 0, time.Since(start))
		return nil, err
	}
	dbc := dbctx.New(ctx)
	hash := ContentHash(req.Data)
	if existing, err := p.deps.Documents.GetByHash(dbc, hash); err != nil {
		return nil, fmt.Errorf("lookup content hash: %w", err)
	} else if existing != nil && existing.Status == types.DocumentStatusError {
		if err := p.discardFailed(ctx, existing); err != nil {
			return nil, err
		}
	} else if existing != nil {
		observability.Current().ObserveIngest("duplicate", 0, 0, time.Since(start))
		return nil, &DuplicateError{ExistingID: existing.ID, Filename: filename}
	}

	extracted, err := p.deps.Extractor.Extract(ctx, req.Data, filename)
	if err != nil {
		observability.Current().ObserveIngest("extract_failed", 0, 0, time.Since(start))
		return nil, err
	}

	doc := &types.Document{
		ID:           uuid.New(),
		Filename:     filename,
		UserID:       strings.TrimSpace(req.UserID),
		Country:      normalizeOr(req.Country, documents.DefaultCountry),
		DocumentType: normalizeOr(req.DocumentType, documents.DefaultDocumentType),
		Content:      extracted.Text,
		ContentHash:  hash,
		SizeBytes:    int64(len(req.Data)),
		PageCount:    extracted.Pages,
		OCRPages:     extracted.OCRPages,
		Status:       types.DocumentStatusProcessing,
	}
	if err := p.deps.Documents.Create(dbc, doc); err != nil {
		if errors.Is(err, repos.ErrDuplicateHash) {
			existingID := uuid.Nil
			if existing, _ := p.deps.Documents.GetByHash(dbc, hash); existing != nil {
				existingID = existing.ID
			}
			return nil, &DuplicateError{ExistingID: existingID, Filename: filename}
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	p.archive(ctx, doc, req.Data)

	res, err := p.process(ctx, doc)
	status := types.DocumentStatusProcessed
	if err != nil {
		status = types.DocumentStatusError
	}
	if res != nil {
		observability.Current().ObserveIngest(status, res.ChunksProcessed, res.ChunksTotal-res.ChunksProcessed, time.Since(start))
	} else {
		observability.Current().ObserveIngest(status, 0, 0, time.Since(start))
	}
	return res, err
}

// discardFailed removes a document left in error state so the same bytes can be ingested again.
func (p *Pipeline) discardFailed(ctx context.Context, doc *types.Document) error {
	if err := p.deps.Vectors.DeleteDocument(ctx, doc.ID.String()); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := p.deps.Documents.Delete(dbctx.New(ctx), doc.ID); err != nil {
		return fmt.Errorf("delete failed document: %w", err)
	}
	if p.deps.Archive != nil && doc.StorageKey != "" {
		if err := p.deps.Archive.Delete(ctx, doc.StorageKey); err != nil {
			p.log.Warn("Archived original not removed", "document_id", doc.ID, "key", doc.StorageKey, "error", err)
		}
	}
	if p.deps.Citations != nil {
		if err := p.deps.Citations.DeleteDocument(ctx, doc.ID); err != nil {
			p.log.Warn("Citation graph node not removed", "document_id", doc.ID, "error", err)
		}
	}
	p.log.Info("Replacing failed document", "document_id", doc.ID, "filename", doc.Filename)
	return nil
}

// Reprocess drops a document's chunks and vectors and rebuilds them from the archived original.
func (p *Pipeline) Reprocess(ctx context.Context, documentID uuid.UUID) (*Result, error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ingest.reprocess", attribute.String("document_id", documentID.String()))
	defer span.End()

	dbc := dbctx.New(ctx)
	doc, err := p.deps.Documents.GetByID(dbc, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if p.deps.Archive == nil || doc.StorageKey == "" {
		return nil, ErrNoArchive
	}
	rc, err := p.deps.Archive.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, ErrNoArchive
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(rc, MaxUploadBytes+1))
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	extracted, err := p.deps.Extractor.Extract(ctx, data, doc.Filename)
	if err != nil {
		return nil, err
	}

	if err := p.deps.Vectors.DeleteDocument(ctx, doc.ID.String()); err != nil {
		return nil, fmt.Errorf("delete vectors: %w", err)
	}
	if err := p.deps.Chunks.DeleteByDocument(dbc, doc.ID); err != nil {
		return nil, fmt.Errorf("delete chunks: %w", err)
	}
	if err := p.deps.Documents.UpdateFields(dbc, doc.ID, map[string]any{
		"status":         types.DocumentStatusProcessing,
		"status_message": "",
		"page_count":     extracted.Pages,
		"ocr_pages":      extracted.OCRPages,
	}); err != nil {
		return nil, fmt.Errorf("reset status: %w", err)
	}
	doc.Content = extracted.Text

	res, err := p.process(ctx, doc)
	status := types.DocumentStatusProcessed
	if err != nil {
		status = types.DocumentStatusError
	}
	stored, total := 0, 0
	if res != nil {
		stored, total = res.ChunksProcessed, res.ChunksTotal
	}
	observability.Current().ObserveIngest(status, stored, total-stored, time.Since(start))
	p.log.Info("Document reprocessed", "document_id", doc.ID, "status", status, "chunks", total)
	return res, err
}

// process chunks doc.Content and runs the embed fan-out. On a fatal error the document is
// marked error and any vectors already written are removed.
func (p *Pipeline) process(ctx context.Context, doc *types.Document) (*Result, error) {
	pieces := p.deps.Chunker.Split(doc.Content)
	rows := make([]*types.Chunk, len(pieces))
	now := time.Now().UTC()
	for i, piece := range pieces {
		rows[i] = &types.Chunk{
			ID:         documents.ChunkID(doc.ID, piece.Ordinal),
			DocumentID: doc.ID,
			Ordinal:    piece.Ordinal,
			Content:    piece.Text,
			Country:    doc.Country,
			CreatedAt:  now,
		}
	}
	res := &Result{DocumentID: doc.ID, ChunksTotal: len(rows), Status: types.DocumentStatusProcessing}

	var stored int32
	dim := p.deps.Vectors.Dimension()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, row := range rows {
		row := row
		g.Go(func() error {
			row.References = documents.EncodeChunkReferences(references.FromChunk(p.deps.References, row.Content))

			vec, err := p.embed(gctx, row.Content)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.log.Warn("Chunk embedding failed; keeping chunk without vector", "chunk_id", row.ID, "error", err)
				return nil
			}
			if len(vec) != dim {
				return fmt.Errorf("%w: embedder %s produced %d, store expects %d",
					vectorstore.ErrDimensionMismatch, p.deps.Embedder.Name(), len(vec), dim)
			}
			if err := p.deps.Vectors.Upsert(gctx, []vectorstore.Record{{
				ChunkID:    row.ID,
				DocumentID: doc.ID.String(),
				Source:     doc.Filename,
				Text:       row.Content,
				Country:    doc.Country,
				Vector:     vec,
			}}); err != nil {
				return fmt.Errorf("upsert chunk %s: %w", row.ID, err)
			}
			encoded, err := json.Marshal(vec)
			if err != nil {
				return err
			}
			row.Embedding = encoded
			row.EmbeddingDim = len(vec)
			atomic.AddInt32(&stored, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p.fail(ctx, doc, res, err)
	}
	res.ChunksProcessed = int(atomic.LoadInt32(&stored))

	err := p.deps.Tx.InTx(ctx, func(dbc dbctx.Context) error {
		if err := p.deps.Chunks.CreateBatch(dbc, rows); err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
		return p.deps.Documents.UpdateStatus(dbc, doc.ID, types.DocumentStatusProcessed, "")
	})
	if err != nil {
		return p.fail(ctx, doc, res, err)
	}
	res.Status = types.DocumentStatusProcessed
	doc.Status = types.DocumentStatusProcessed

	if p.deps.Citations != nil {
		if err := p.deps.Citations.SyncDocument(ctx, doc, rows); err != nil {
			p.log.Warn("Citation graph sync failed", "document_id", doc.ID, "error", err)
		}
	}
	if res.ChunksProcessed < res.ChunksTotal {
		p.log.Warn("Document stored with unembedded chunks", "document_id", doc.ID, "skipped", res.ChunksTotal-res.ChunksProcessed)
	}
	p.log.Info("Document ingested",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"chunks_total", res.ChunksTotal,
		"chunks_processed", res.ChunksProcessed,
	)
	return res, nil
}

func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	defer cancel()
	return p.deps.Embedder.Embed(ctx, text)
}

func (p *Pipeline) fail(ctx context.Context, doc *types.Document, res *Result, cause error) (*Result, error) {
	// Cleanup must run even when the request context is already cancelled.
	cleanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.deps.Vectors.DeleteDocument(cleanCtx, doc.ID.String()); err != nil {
		p.log.Warn("Vector cleanup failed", "document_id", doc.ID, "error", err)
	}
	if err := p.deps.Documents.UpdateStatus(dbctx.New(cleanCtx), doc.ID, types.DocumentStatusError, cause.Error()); err != nil {
		p.log.Warn("Could not mark document as failed", "document_id", doc.ID, "error", err)
	}
	res.Status = types.DocumentStatusError
	res.ChunksProcessed = 0
	p.log.Error("Ingestion failed", "document_id", doc.ID, "filename", doc.Filename, "error", cause)
	return res, cause
}

func (p *Pipeline) archive(ctx context.Context, doc *types.Document, data []byte) {
	if p.deps.Archive == nil {
		return
	}
	key := objectstore.DocumentKey(doc.ID.String(), doc.Filename)
	if err := p.deps.Archive.Put(ctx, key, bytes.NewReader(data)); err != nil {
		p.log.Warn("Archiving original failed", "document_id", doc.ID, "error", err)
		return
	}
	if err := p.deps.Documents.UpdateFields(dbctx.New(ctx), doc.ID, map[string]any{"storage_key": key}); err != nil {
		p.log.Warn("Recording storage key failed", "document_id", doc.ID, "error", err)
		return
	}
	doc.StorageKey = key
}

func normalizeOr(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}
