package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/lexcorpus-backend/internal/data/repos"
	types "github.com/yungbote/lexcorpus-backend/internal/domain"
	"github.com/yungbote/lexcorpus-backend/internal/domain/chat"
	"github.com/yungbote/lexcorpus-backend/internal/domain/documents"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/completion"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/formatting"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/prompt"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/references"
	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

// GuardMessage answers case-law questions when no decided case was retrieved.
const GuardMessage = "We currently do not have verified decided cases on this subject in the ingested corpus. " +
	"You can rely on the applicable statutory framework in our corpus (e.g., Constitution privacy and procedure provisions) " +
	"or consult an external case-law database for updates."

const sessionTitleRunes = 60

// Ask outcome labels used for metrics.
const (
	AskCompleted = "completed"
	AskGuarded   = "guarded"
	AskFallback  = "fallback"
)

type AskRequest struct {
	UserID    string
	SessionID uuid.UUID
	Message   string
	Country   string
}

type AskResult struct {
	MessageID  uuid.UUID       `json:"message_id"`
	SessionID  uuid.UUID       `json:"session_id"`
	QueryID    uuid.UUID       `json:"query_id,omitempty"`
	Answer     string          `json:"answer"`
	References chat.References `json:"references"`
	Timestamp  time.Time       `json:"timestamp"`
	Guarded    bool            `json:"guarded"`
	Fallback   bool            `json:"fallback"`
}

type ChatConfig struct {
	TopK           int
	HistoryTurns   int
	Formatting     bool
	DefaultCountry string
	PersistTimeout time.Duration
}

type ChatDeps struct {
	Log        *logger.Logger
	Sessions   repos.ChatSessionRepo
	Messages   repos.ChatMessageRepo
	Queries    repos.QueryLogRepo
	Feedback   repos.FeedbackRepo
	Search     SearchService
	References references.Extractor
	Verifier   *references.Verifier
	Prompt     *prompt.Builder
	Completion *completion.Client
}

type ChatService interface {
	// Ask runs retrieve, guard, prompt, completion, verification and persistence for one message.
	Ask(ctx context.Context, req AskRequest) (*AskResult, error)

	CreateSession(ctx context.Context, userID, title, country string) (*types.ChatSession, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]*types.ChatSession, error)
	RenameSession(ctx context.Context, userID string, id uuid.UUID, title string) error
	DeleteSession(ctx context.Context, userID string, id uuid.UUID) error
	History(ctx context.Context, userID string, sessionID uuid.UUID, limit int) (*ChatHistory, error)

	RecordFeedback(ctx context.Context, userID string, in FeedbackInput) (*types.Feedback, error)
	RecentQueries(ctx context.Context, userID string, limit int) ([]*types.QueryLog, error)
}

type chatService struct {
	log  *logger.Logger
	deps ChatDeps
	cfg  ChatConfig
}

func NewChatService(deps ChatDeps, cfg ChatConfig) ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = vectorstore.DefaultTopK
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = prompt.DefaultHistoryTurns
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = documents.DefaultCountry
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	if deps.References == nil {
		deps.References = references.NewRegexExtractor()
	}
	if deps.Prompt == nil {
		deps.Prompt = prompt.NewBuilder(prompt.Config{HistoryTurns: cfg.HistoryTurns})
	}
	return &chatService{log: deps.Log.With("service", "ChatService"), deps: deps, cfg: cfg}
}

func (s *chatService) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, invalidf("message is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, invalidf("user_id is required")
	}
	ctx, span := observability.StartSpan(ctx, "chat.ask")
	defer span.End()

	dbc := dbctx.New(ctx)
	session, err := s.resolveSession(dbc, req, message)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session_id", session.ID.String()))
	country := s.country(req.Country, session.Country)

	recent, err := s.deps.Messages.ListRecent(dbc, session.ID, s.cfg.HistoryTurns)
	if err != nil {
		s.log.Warn("Could not load history; continuing without it", "session_id", session.ID, "error", err)
		recent = nil
	}
	history := make([]prompt.Turn, 0, len(recent))
	for _, m := range recent {
		history = append(history, prompt.Turn{Role: m.Role, Content: m.Content})
	}

	retrieved := s.retrieve(ctx, message)
	texts := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		texts = append(texts, r.Text)
	}

	var (
		answer   string
		refs     chat.References
		guarded  bool
		fallback bool
	)
	if references.IsCaseLawQuery(message) && !references.HasCaseText(texts) {
		guarded = true
		answer = GuardMessage
		var lawCandidates []references.Candidate
		for _, t := range texts {
			for _, c := range s.deps.References.Extract(t) {
				if c.Kind != references.KindCase {
					lawCandidates = append(lawCandidates, c)
				}
			}
		}
		refs = s.deps.Verifier.Verify(ctx, lawCandidates, texts)
		refs.Cases = []string{}
		s.log.Info("Case-law guard triggered", "session_id", session.ID, "retrieved", len(retrieved))
	} else {
		excerpts := make([]prompt.Excerpt, 0, len(retrieved))
		for _, r := range retrieved {
			excerpts = append(excerpts, prompt.Excerpt{Source: r.Source, Text: r.Text})
		}
		built := s.deps.Prompt.Build(prompt.Input{
			Country:  country,
			Question: message,
			History:  history,
			Context:  excerpts,
			Apology:  prompt.NeedsApology(history, message),
		})
		if built.Truncated {
			s.log.Info("Prompt context truncated", "estimated_tokens", built.EstimatedTokens)
		}
		out := s.deps.Completion.Complete(ctx, built.Prompt)
		answer, fallback = out.Text, out.Fallback

		candidates := s.deps.References.Extract(answer)
		for _, t := range texts {
			candidates = append(candidates, s.deps.References.Extract(t)...)
		}
		refs = s.deps.Verifier.Verify(ctx, candidates, texts)
		if s.cfg.Formatting && !fallback {
			answer = formatting.Format(answer)
		}
	}

	user := &types.ChatMessage{UserID: req.UserID, Role: types.RoleUser, Content: message}
	assistant := &types.ChatMessage{
		UserID:  req.UserID,
		Role:    types.RoleAssistant,
		Content: answer,
		Refs:    chat.EncodeReferences(refs),
	}
	// Persist on a context detached from the request so a client timeout still saves the turn.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()
	if err := s.deps.Messages.AppendPair(dbctx.New(pctx), session.ID, user, assistant); err != nil {
		s.log.Error("Persisting chat turn failed", "session_id", session.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	result := &AskResult{
		MessageID:  assistant.ID,
		SessionID:  session.ID,
		Answer:     answer,
		References: refs,
		Timestamp:  assistant.CreatedAt,
		Guarded:    guarded,
		Fallback:   fallback,
	}
	result.QueryID = s.logQuery(pctx, req.UserID, session.ID, assistant.ID, message, result, retrieved, time.Since(start))

	outcome := AskCompleted
	switch {
	case guarded:
		outcome = AskGuarded
	case fallback:
		outcome = AskFallback
	}
	observability.Current().IncAsk(outcome)
	s.log.Info("Answered",
		"session_id", session.ID,
		"outcome", outcome,
		"laws", len(refs.Laws),
		"cases", len(refs.Cases),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *chatService) resolveSession(dbc dbctx.Context, req AskRequest, message string) (*types.ChatSession, error) {
	if req.SessionID != uuid.Nil {
		sess, err := s.deps.Sessions.GetByID(dbc, req.UserID, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if sess == nil {
			return nil, ErrNotFound
		}
		return sess, nil
	}
	sess, err := s.deps.Sessions.LatestForUser(dbc, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load latest session: %w", err)
	}
	if sess != nil {
		return sess, nil
	}
	sess = &types.ChatSession{
		UserID:  req.UserID,
		Title:   sessionTitle(message),
		Country: s.country(req.Country, ""),
	}
	if err := s.deps.Sessions.Create(dbc, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// retrieve never fails: embed or store errors degrade to an empty context.
func (s *chatService) retrieve(ctx context.Context, message string) []vectorstore.Result {
	results, err := s.deps.Search.Search(ctx, message, s.cfg.TopK)
	if err != nil {
		s.log.Warn("RetrievalError; answering without corpus context", "error", err)
		return nil
	}
	return results
}

func (s *chatService) logQuery(ctx context.Context, userID string, sessionID, messageID uuid.UUID, question string, res *AskResult, retrieved []vectorstore.Result, elapsed time.Duration) uuid.UUID {
	if s.deps.Queries == nil {
		return uuid.Nil
	}
	sources := []string{}
	seen := map[string]bool{}
	for _, r := range retrieved {
		name := filepath.Base(r.Source)
		if r.Source == "" || seen[name] {
			continue
		}
		seen[name] = true
		sources = append(sources, name)
	}
	used, _ := json.Marshal(sources)
	row := &types.QueryLog{
		UserID:         userID,
		SessionID:      sessionID,
		MessageID:      messageID,
		Question:       question,
		Response:       res.Answer,
		DocumentsUsed:  used,
		Guarded:        res.Guarded,
		Fallback:       res.Fallback,
		ResponseTimeMS: elapsed.Milliseconds(),
	}
	if err := s.deps.Queries.Create(dbctx.New(ctx), row); err != nil {
		s.log.Warn("Query log write failed", "session_id", sessionID, "error", err)
		return uuid.Nil
	}
	return row.ID
}

func (s *chatService) country(requested, fallback string) string {
	if c := strings.ToLower(strings.TrimSpace(requested)); c != "" {
		return c
	}
	if c := strings.ToLower(strings.TrimSpace(fallback)); c != "" {
		return c
	}
	return s.cfg.DefaultCountry
}

func sessionTitle(message string) string {
	message = strings.Join(strings.Fields(message), " ")
	if utf8.RuneCountInString(message) <= sessionTitleRunes {
		return message
	}
	return string([]rune(message)[:sessionTitleRunes])
}
