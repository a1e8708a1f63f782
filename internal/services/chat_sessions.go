package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/domain/chat"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
)

// HistoryMessage is a stored message with its decoded references.
type HistoryMessage struct {
	*types.ChatMessage
	References chat.References `json:"references"`
}

type ChatHistory struct {
	Session  *types.ChatSession `json:"session"`
	Messages []HistoryMessage   `json:"messages"`
}

func (s *chatService) CreateSession(ctx context.Context, userID, title, country string) (*types.ChatSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidf("user_id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = chat.DefaultSessionTitle
	}
	sess := &types.ChatSession{UserID: userID, Title: sessionTitle(title), Country: s.country(country, "")}
	if err := s.deps.Sessions.Create(dbctx.New(ctx), sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *chatService) ListSessions(ctx context.Context, userID string, limit int) ([]*types.ChatSession, error) {
	out, err := s.deps.Sessions.ListByUser(dbctx.New(ctx), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if out == nil {
		out = []*types.ChatSession{}
	}
	return out, nil
}

func (s *chatService) RenameSession(ctx context.Context, userID string, id uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalidf("title is required")
	}
	err := s.deps.Sessions.Rename(dbctx.New(ctx), userID, id, sessionTitle(title))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *chatService) DeleteSession(ctx context.Context, userID string, id uuid.UUID) error {
	err := s.deps.Sessions.SoftDelete(dbctx.New(ctx), userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// History returns the last limit messages of sessionID, or of the most recent session when
// sessionID is nil. A user without sessions gets an empty history.
func (s *chatService) History(ctx context.Context, userID string, sessionID uuid.UUID, limit int) (*ChatHistory, error) {
	dbc := dbctx.New(ctx)
	var (
		sess *types.ChatSession
		err  error
	)
	if sessionID != uuid.Nil {
		sess, err = s.deps.Sessions.GetByID(dbc, userID, sessionID)
		if err == nil && sess == nil {
			return nil, ErrNotFound
		}
	} else {
		sess, err = s.deps.Sessions.LatestForUser(dbc, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	out := &ChatHistory{Session: sess, Messages: []HistoryMessage{}}
	if sess == nil {
		return out, nil
	}
	msgs, err := s.deps.Messages.ListRecent(dbc, sess.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, HistoryMessage{ChatMessage: m, References: m.References()})
	}
	return out, nil
}
