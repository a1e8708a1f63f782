package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexcorpus-backend/internal/http/response"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/extractor"
	"github.com/yungbote/lexcorpus-backend/internal/platform/apierr"
	"github.com/yungbote/lexcorpus-backend/internal/services"
)

// toAPIError classifies service errors into HTTP status and code.
func toAPIError(err error) error {
	var xerr *extractor.ExtractionError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrInvalidInput):
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, services.ErrInvalidUpload):
		return apierr.New(http.StatusBadRequest, "invalid_upload", err)
	case errors.Is(err, services.ErrDuplicateDocument):
		return apierr.New(http.StatusConflict, "duplicate_document", err)
	case errors.Is(err, services.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrNoArchive):
		return apierr.New(http.StatusConflict, "no_archived_original", err)
	case errors.Is(err, services.ErrUnauthorized):
		return apierr.New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, services.ErrUnavailable):
		return apierr.New(http.StatusServiceUnavailable, "unavailable", err)
	case errors.As(err, &xerr):
		return apierr.New(http.StatusUnprocessableEntity, "extraction_failed_"+xerr.Reason, err)
	case errors.Is(err, services.ErrPersistence):
		return apierr.New(http.StatusInternalServerError, "persistence_failed", services.ErrPersistence)
	}
	return err
}

func fail(c *gin.Context, err error) {
	response.RespondAPIError(c, toAPIError(err))
}
