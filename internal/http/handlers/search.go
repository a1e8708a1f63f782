package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexcorpus-backend/internal/http/response"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
	"github.com/yungbote/lexcorpus-backend/internal/services"
)

type SearchHandler struct {
	search services.SearchService
}

func NewSearchHandler(search services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchReq struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// POST /api/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalid("body must be JSON: "+err.Error()))
		return
	}
	results, err := h.search.Search(c.Request.Context(), req.Query, vectorstore.NormalizeK(req.K))
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"query": req.Query, "results": results})
}
