package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexcorpus-backend/internal/http/response"
	"github.com/yungbote/lexcorpus-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type sendReq struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Country   string `json:"country"`
}

// POST /api/chat/send
func (h *ChatHandler) Send(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalid("body must be JSON: "+err.Error()))
		return
	}
	sessionID, err := optionalUUID(req.SessionID)
	if err != nil {
		fail(c, invalid("session_id must be a uuid"))
		return
	}
	res, err := h.chat.Ask(c.Request.Context(), services.AskRequest{
		UserID:    userID(c),
		SessionID: sessionID,
		Message:   req.Message,
		Country:   req.Country,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/chat/history?session_id=&limit=50
func (h *ChatHandler) History(c *gin.Context) {
	sessionID, err := optionalUUID(c.Query("session_id"))
	if err != nil {
		fail(c, invalid("session_id must be a uuid"))
		return
	}
	hist, err := h.chat.History(c.Request.Context(), userID(c), sessionID, queryInt(c, "limit", 50))
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, hist)
}

// GET /api/chat/sessions?limit=50
func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.chat.ListSessions(c.Request.Context(), userID(c), queryInt(c, "limit", 50))
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

type sessionReq struct {
	Title   string `json:"title"`
	Country string `json:"country"`
}

// POST /api/chat/sessions
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req sessionReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, invalid("body must be JSON: "+err.Error()))
			return
		}
	}
	sess, err := h.chat.CreateSession(c.Request.Context(), userID(c), req.Title, req.Country)
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"session": sess})
}

// PATCH /api/chat/sessions/:id
func (h *ChatHandler) RenameSession(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req sessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalid("body must be JSON: "+err.Error()))
		return
	}
	if err := h.chat.RenameSession(c.Request.Context(), userID(c), id, req.Title); err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session_id": id, "title": req.Title})
}

// DELETE /api/chat/sessions/:id
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.chat.DeleteSession(c.Request.Context(), userID(c), id); err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true, "session_id": id})
}

type feedbackReq struct {
	QueryID   uuid.UUID `json:"query_id"`
	Rating    int       `json:"rating"`
	IsHelpful bool      `json:"is_helpful"`
	Text      string    `json:"text"`
}

// POST /api/chat/feedback
func (h *ChatHandler) Feedback(c *gin.Context) {
	var req feedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalid("body must be JSON: "+err.Error()))
		return
	}
	fb, err := h.chat.RecordFeedback(c.Request.Context(), userID(c), services.FeedbackInput{
		QueryID:   req.QueryID,
		Rating:    req.Rating,
		IsHelpful: req.IsHelpful,
		Text:      req.Text,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"feedback": fb})
}

// GET /api/chat/queries?limit=50
func (h *ChatHandler) Queries(c *gin.Context) {
	queries, err := h.chat.RecentQueries(c.Request.Context(), userID(c), queryInt(c, "limit", 50))
	if err != nil {
		fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"queries": queries})
}
