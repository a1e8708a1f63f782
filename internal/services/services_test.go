package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/lexcorpus-backend/internal/data/repos"
	"github.com/yungbote/lexcorpus-backend/internal/data/repos/memrepo"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/chunker"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/extractor"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/pipeline"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/completion"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/references"
	"github.com/yungbote/lexcorpus-backend/internal/platform/embedding"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/objectstore"
	"github.com/yungbote/lexcorpus-backend/internal/platform/openai"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

const statuteText = "Section 5 of the Evidence Act provides that evidence may be given of the existence of every fact in issue. " +
	"Section 6 of the Evidence Act provides for facts forming part of the same transaction. " +
	"Section 35 of the Criminal Justice Act provides that a suspect shall be brought before a court within a reasonable time. " +
	"Bail may be granted to a defendant pending trial under Section 158 of the Criminal Justice Act."

type textExtractor struct{ text string }

func (x textExtractor) Extract(ctx context.Context, data []byte, filename string) (*extractor.Result, error) {
	return &extractor.Result{Text: x.text, Pages: 1}, nil
}

type fakeLLM struct {
	mu     sync.Mutex
	answer string
	err    error
	calls  int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.answer, f.err
}

func (f *fakeLLM) Embed(ctx context.Context, inputs []string, dims int) ([][]float32, error) {
	return nil, errors.New("not used")
}

func (f *fakeLLM) Model() string { return "fake-model" }

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type brokenStore struct{ vectorstore.Store }

func (brokenStore) Search(ctx context.Context, q []float32, k int) ([]vectorstore.Result, error) {
	return nil, errors.New("store offline")
}

type env struct {
	mem     *memrepo.Memory
	vectors vectorstore.Store
	docs    DocumentService
	search  SearchService
	chat    ChatService
}

func newEnv(t *testing.T, llm openai.Client, vectors vectorstore.Store) *env {
	t.Helper()
	log := logger.Nop()
	mem := memrepo.NewMemory()
	emb := embedding.NewHashing(64)
	if vectors == nil {
		vectors = vectorstore.NewMemory(64)
	}
	archive, err := objectstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	p, err := pipeline.New(pipeline.Deps{
		Log:       log,
		Documents: mem.Documents(),
		Chunks:    mem.Chunks(),
		Tx:        mem.Tx(),
		Extractor: textExtractor{text: statuteText},
		Chunker:   chunker.New(chunker.Config{Size: 140, Overlap: 20}),
		Embedder:  emb,
		Vectors:   vectors,
		Archive:   archive,
	}, pipeline.Config{Concurrency: 2})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	search := NewSearchService(log, emb, vectors, 0)
	chat := NewChatService(ChatDeps{
		Log:        log,
		Sessions:   mem.Sessions(),
		Messages:   mem.Messages(),
		Queries:    mem.QueryLogs(),
		Feedback:   mem.Feedback(),
		Search:     search,
		Verifier:   references.NewVerifier(log, NewCorpus(mem.Chunks()), references.ScopeCorpus),
		Completion: completion.New(log, llm, 0),
	}, ChatConfig{Formatting: true})
	return &env{
		mem:     mem,
		vectors: vectors,
		docs:    NewDocumentService(log, mem.Documents(), mem.Chunks(), p, vectors, archive, nil),
		search:  search,
		chat:    chat,
	}
}

func (e *env) ingest(t *testing.T, name string) *pipeline.Result {
	t.Helper()
	res, err := e.docs.Ingest(context.Background(), pipeline.Request{
		Data:     []byte("%PDF-1.7 " + name),
		Filename: name,
		UserID:   "admin",
	})
	if err != nil {
		t.Fatalf("ingest %s: %v", name, err)
	}
	return res
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestAskSectionFiveOfEvidenceAct(t *testing.T) {
	llm := &fakeLLM{answer: "Under Section 5 of the Evidence Act, evidence may be given of every fact in issue. " +
		"Compare Section 99 of the Imaginary Act and Adams v. Bello."}
	e := newEnv(t, llm, nil)
	e.ingest(t, "evidence_act.pdf")

	res, err := e.chat.Ask(context.Background(), AskRequest{UserID: "u1", Message: "What does Section 5 of the Evidence Act say?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Guarded || res.Fallback {
		t.Fatalf("unexpected path: guarded=%v fallback=%v", res.Guarded, res.Fallback)
	}
	if len(res.References.Laws) == 0 || res.References.Laws[0] != "Section 5 of the Evidence Act" {
		t.Fatalf("laws: want first=%q got=%v", "Section 5 of the Evidence Act", res.References.Laws)
	}
	if contains(res.References.Laws, "Section 99 of the Imaginary Act") {
		t.Fatalf("unverified law leaked: %v", res.References.Laws)
	}
	if len(res.References.Cases) != 0 {
		t.Fatalf("cases: want none got=%v", res.References.Cases)
	}
	if !strings.Contains(res.Answer, "**Section 5**") {
		t.Fatalf("answer not formatted: %q", res.Answer)
	}
	if llm.Calls() != 1 {
		t.Fatalf("completion calls: want=1 got=%d", llm.Calls())
	}
	if res.QueryID == uuid.Nil {
		t.Fatalf("query log id missing")
	}

	hist, err := e.chat.History(context.Background(), "u1", res.SessionID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist.Messages) != 2 || hist.Messages[0].Role != "user" || hist.Messages[1].Role != "assistant" {
		t.Fatalf("history: %+v", hist.Messages)
	}
	if hist.Messages[1].ID != res.MessageID {
		t.Fatalf("assistant id: want=%s got=%s", res.MessageID, hist.Messages[1].ID)
	}
	if got := hist.Messages[1].References.Laws; len(got) != len(res.References.Laws) {
		t.Fatalf("persisted refs: want=%v got=%v", res.References.Laws, got)
	}
}

func TestAskCaseLawGuardSkipsCompletion(t *testing.T) {
	llm := &fakeLLM{answer: "In Musa v. State the court granted bail."}
	e := newEnv(t, llm, nil)
	e.ingest(t, "cja.pdf")

	res, err := e.chat.Ask(context.Background(), AskRequest{UserID: "u1", Message: "What cases discuss bail?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !res.Guarded || res.Answer != GuardMessage {
		t.Fatalf("guard: guarded=%v answer=%q", res.Guarded, res.Answer)
	}
	if llm.Calls() != 0 {
		t.Fatalf("completion must not be called: calls=%d", llm.Calls())
	}
	if res.References.Cases == nil || len(res.References.Cases) != 0 {
		t.Fatalf("cases: want [] got=%v", res.References.Cases)
	}
	for _, law := range res.References.Laws {
		if !strings.Contains(strings.ToLower(statuteText), strings.ToLower(law)) {
			t.Fatalf("guard law not in corpus: %q", law)
		}
	}
}

func TestAskWithoutModelReturnsFallback(t *testing.T) {
	e := newEnv(t, nil, nil)
	e.ingest(t, "evidence_act.pdf")

	for i := 0; i < 2; i++ {
		res, err := e.chat.Ask(context.Background(), AskRequest{UserID: "u1", Message: "Explain Section 6"})
		if err != nil {
			t.Fatalf("Ask: %v", err)
		}
		if !res.Fallback || res.Answer != completion.FallbackText {
			t.Fatalf("fallback: fallback=%v answer=%q", res.Fallback, res.Answer)
		}
	}
}

func TestAskDegradesWhenRetrievalFails(t *testing.T) {
	e := newEnv(t, &fakeLLM{answer: "Not available in corpus."}, brokenStore{vectorstore.NewMemory(64)})

	res, err := e.chat.Ask(context.Background(), AskRequest{UserID: "u1", Message: "What is bail?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer != "Not available in corpus." {
		t.Fatalf("answer: got=%q", res.Answer)
	}
	if len(res.References.Laws) != 0 || len(res.References.Cases) != 0 {
		t.Fatalf("refs: want empty got=%+v", res.References)
	}
}

func TestAskPersistenceFailure(t *testing.T) {
	e := newEnv(t, nil, nil)
	e.mem.FailAppend = errors.New("disk full")

	_, err := e.chat.Ask(context.Background(), AskRequest{UserID: "u1", Message: "hello"})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("want ErrPersistence got=%v", err)
	}
}

func TestAskPersistsAfterRequestCancellation(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.chat.Ask(ctx, AskRequest{UserID: "u1", Message: "What is bail?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	hist, _ := e.chat.History(context.Background(), "u1", res.SessionID, 10)
	if len(hist.Messages) != 2 {
		t.Fatalf("messages persisted: want=2 got=%d", len(hist.Messages))
	}
}

func TestAskSessionResolution(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()

	first, err := e.chat.Ask(ctx, AskRequest{UserID: "u1", Message: "First question about the Evidence Act and its many sections in detail"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	second, err := e.chat.Ask(ctx, AskRequest{UserID: "u1", Message: "Follow up"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("latest session not reused: %s vs %s", first.SessionID, second.SessionID)
	}
	sessions, _ := e.chat.ListSessions(ctx, "u1", 10)
	if len(sessions) != 1 || len([]rune(sessions[0].Title)) > 60 {
		t.Fatalf("sessions: %+v", sessions)
	}
	if _, err := e.chat.Ask(ctx, AskRequest{UserID: "u1", SessionID: uuid.New(), Message: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown session: want=ErrNotFound got=%v", err)
	}
	if _, err := e.chat.Ask(ctx, AskRequest{UserID: "u2", SessionID: first.SessionID, Message: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign session: want=ErrNotFound got=%v", err)
	}
	if _, err := e.chat.Ask(ctx, AskRequest{UserID: "u1", Message: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty message: want=ErrInvalidInput got=%v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()

	sess, err := e.chat.CreateSession(ctx, "u1", "", "Ghana")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.Title != "New Conversation" || sess.Country != "ghana" {
		t.Fatalf("session defaults: title=%q country=%q", sess.Title, sess.Country)
	}
	if err := e.chat.RenameSession(ctx, "u1", sess.ID, "Bail research"); err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
	if err := e.chat.RenameSession(ctx, "u2", sess.ID, "stolen"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign rename: want=ErrNotFound got=%v", err)
	}
	if err := e.chat.DeleteSession(ctx, "u1", sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := e.chat.DeleteSession(ctx, "u1", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want=ErrNotFound got=%v", err)
	}
	hist, err := e.chat.History(ctx, "u1", uuid.Nil, 10)
	if err != nil || hist.Session != nil || len(hist.Messages) != 0 {
		t.Fatalf("empty history: hist=%+v err=%v", hist, err)
	}
}

func TestFeedback(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()
	res, err := e.chat.Ask(ctx, AskRequest{UserID: "u1", Message: "What is bail?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if _, err := e.chat.RecordFeedback(ctx, "u1", FeedbackInput{QueryID: res.QueryID, Rating: 9}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("rating bounds: want=ErrInvalidInput got=%v", err)
	}
	if _, err := e.chat.RecordFeedback(ctx, "u2", FeedbackInput{QueryID: res.QueryID, Rating: 4}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign query: want=ErrNotFound got=%v", err)
	}
	fb, err := e.chat.RecordFeedback(ctx, "u1", FeedbackInput{QueryID: res.QueryID, Rating: 4, IsHelpful: true, Text: " clear "})
	if err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	if fb.Text != "clear" || len(e.mem.FeedbackRows()) != 1 {
		t.Fatalf("feedback row: %+v", fb)
	}
	queries, _ := e.chat.RecentQueries(ctx, "u1", 10)
	if len(queries) != 1 || queries[0].Question != "What is bail?" {
		t.Fatalf("queries: %+v", queries)
	}
}

func TestIngestSearchRoundTrip(t *testing.T) {
	e := newEnv(t, nil, nil)
	res := e.ingest(t, "evidence_act.pdf")
	detail, err := e.docs.Get(context.Background(), res.DocumentID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	target := detail.Chunks[len(detail.Chunks)-1]

	hits, err := e.search.Search(context.Background(), target.Content, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].ChunkID != target.ID || hits[0].Distance > 1e-6 {
		t.Fatalf("round trip: want=%s got=%+v", target.ID, hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Fatalf("results not ascending: %+v", hits)
		}
	}
	if _, err := e.search.Search(context.Background(), "  ", 3); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty query: want=ErrInvalidInput got=%v", err)
	}
}

func TestDocumentDuplicateAndDelete(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()
	res := e.ingest(t, "evidence_act.pdf")

	_, err := e.docs.Ingest(ctx, pipeline.Request{Data: []byte("%PDF-1.7 evidence_act.pdf"), Filename: "copy.pdf", UserID: "admin"})
	var dup *DuplicateDocumentError
	if !errors.As(err, &dup) || !errors.Is(err, ErrDuplicateDocument) || dup.ExistingID != res.DocumentID {
		t.Fatalf("duplicate: got=%v", err)
	}

	page, err := e.docs.List(ctx, repos.DocumentListFilter{Country: "NIGERIA"})
	if err != nil || page.Total != 1 {
		t.Fatalf("list: page=%+v err=%v", page, err)
	}
	stats, _ := e.docs.Stats(ctx)
	if stats.TotalDocuments != 1 || stats.ByCountry["nigeria"] != 1 || stats.TotalChunks != int64(res.ChunksTotal) {
		t.Fatalf("stats: %+v", stats)
	}

	if err := e.docs.Delete(ctx, res.DocumentID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.docs.Get(ctx, res.DocumentID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: want=ErrNotFound got=%v", err)
	}
	q, _ := embedding.NewHashing(64).Embed(ctx, statuteText)
	if hits, _ := e.vectors.Search(ctx, q, 5); len(hits) != 0 {
		t.Fatalf("vectors after delete: %d", len(hits))
	}
	if err := e.docs.Delete(ctx, res.DocumentID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want=ErrNotFound got=%v", err)
	}
	if _, err := e.docs.CitingDocuments(ctx, "Evidence Act", 5); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("citations without graph: want=ErrUnavailable got=%v", err)
	}
}

type recordingStore struct {
	vectorstore.Store
	lastK int
}

func (s *recordingStore) Search(ctx context.Context, q []float32, k int) ([]vectorstore.Result, error) {
	s.lastK = k
	return s.Store.Search(ctx, q, k)
}

func TestSearchPassesKThroughUncapped(t *testing.T) {
	store := &recordingStore{Store: vectorstore.NewMemory(64)}
	search := NewSearchService(logger.Nop(), embedding.NewHashing(64), store, 0)

	if _, err := search.Search(context.Background(), "bail", vectorstore.MaxTopK+50); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if store.lastK != vectorstore.MaxTopK+50 {
		t.Fatalf("k: want=%d got=%d", vectorstore.MaxTopK+50, store.lastK)
	}
	if _, err := search.Search(context.Background(), "bail", 0); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if store.lastK != vectorstore.DefaultTopK {
		t.Fatalf("k<=0: want=%d got=%d", vectorstore.DefaultTopK, store.lastK)
	}
}
