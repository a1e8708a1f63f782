package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/services"
)

func queryInt(c *gin.Context, key string, def int) int {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func pathUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		fail(c, invalid(key+" must be a uuid"))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses s, treating an empty string as uuid.Nil.
func optionalUUID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func userID(c *gin.Context) string {
	if id := ctxutil.UserID(c.Request.Context()); id != "" {
		return id
	}
	return services.AnonymousUserID
}

type invalidError string

func (e invalidError) Error() string { return string(e) }
func (e invalidError) Unwrap() error { return services.ErrInvalidInput }

func invalid(msg string) error { return invalidError(msg) }
