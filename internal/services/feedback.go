package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
)

type FeedbackInput struct {
	QueryID   uuid.UUID
	Rating    int
	IsHelpful bool
	Text      string
}

func (s *chatService) RecordFeedback(ctx context.Context, userID string, in FeedbackInput) (*types.Feedback, error) {
	if in.QueryID == uuid.Nil {
		return nil, invalidf("query_id is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, invalidf("rating must be between 1 and 5")
	}
	dbc := dbctx.New(ctx)
	q, err := s.deps.Queries.GetByID(dbc, in.QueryID)
	if err != nil {
		return nil, fmt.Errorf("load query: %w", err)
	}
	if q == nil || q.UserID != userID {
		return nil, ErrNotFound
	}
	row := &types.Feedback{
		QueryID:   in.QueryID,
		UserID:    userID,
		Rating:    in.Rating,
		IsHelpful: in.IsHelpful,
		Text:      strings.TrimSpace(in.Text),
	}
	if err := s.deps.Feedback.Create(dbc, row); err != nil {
		return nil, fmt.Errorf("store feedback: %w", err)
	}
	s.log.Info("Feedback recorded", "query_id", in.QueryID, "rating", in.Rating, "helpful", in.IsHelpful)
	return row, nil
}

func (s *chatService) RecentQueries(ctx context.Context, userID string, limit int) ([]*types.QueryLog, error) {
	out, err := s.deps.Queries.ListByUser(dbctx.New(ctx), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	if out == nil {
		out = []*types.QueryLog{}
	}
	return out, nil
}
