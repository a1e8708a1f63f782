package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexcorpus-backend/internal/data/repos"
	"github.com/yungbote/lexcorpus-backend/internal/http/response"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/pipeline"
	"github.com/yungbote/lexcorpus-backend/internal/services"
)

type DocumentHandler struct {
	docs services.DocumentService
}

func NewDocumentHandler(docs services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// POST /api/documents/upload (multipart: file, country, document_type)
func (h *DocumentHandler) Upload(c *gin.Context) {
	// Leave room for the multipart envelope around the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, pipeline.MaxUploadBytes+(1<<20))
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, fmt.Errorf("%w: file exceeds %d MB", services.ErrInvalidUpload, pipeline.MaxUploadBytes>>20))
			return
		}
		fail(c, fmt.Errorf("%w: multipart field \"file\" is required", services.ErrInvalidUpload))
		return
	}
	if fh.Size > pipeline.MaxUploadBytes {
		fail(c, fmt.Errorf("%w: file exceeds %d MB", services.ErrInvalidUpload, pipeline.MaxUploadBytes>>20))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", services.ErrInvalidUpload, err))
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, pipeline.MaxUploadBytes+1))
	f.Close()
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", services.ErrInvalidUpload, err))
		return
	}

	res, err := h.docs.Ingest(c.Request.Context(), pipeline.Request{
		Data:         data,
		Filename:     fh.Filename,
		UserID:       userID(c),
		Country:      c.PostForm("country"),
		DocumentType: c.PostForm("document_type"),
	})
	if err != nil {
		var dup *services.DuplicateDocumentError
		if errors.As(err, &dup) {
			c.JSON(http.StatusConflict, gin.H{
				"error":       response.APIError{Message: err.Error(), Code: "duplicate_document"},
				"document_id": dup.ExistingID,
			})
			return
		}
		fail(c, err)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/documents?country=&limit=&offset=
func (h *DocumentHandler) List(c *gin.Context) {
	h.list(c, c.Query("country"))
}

// GET /api/countries/:country/documents
func (h *DocumentHandler) ListByCountry(c *gin.Context) {
	h.list(c, c.Param("country"))
}

func (h *DocumentHandler) list(c *gin.Context, country string) {
	page, err := h.docs.List(c.Request.Context(), repos.DocumentListFilter{
		Country: strings.TrimSpace(country),
		Limit:   queryInt(c, "limit", 50),
		Offset:  queryInt(c, "offset", 0),
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/documents/stats
func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.docs.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true, "document_id": id})
}

// POST /api/documents/:id/reprocess
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.docs.Reprocess(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/references/documents?ref=&limit=
func (h *DocumentHandler) CitingDocuments(c *gin.Context) {
	docs, err := h.docs.CitingDocuments(c.Request.Context(), c.Query("ref"), queryInt(c, "limit", 20))
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reference": strings.TrimSpace(c.Query("ref")), "documents": docs})
}
