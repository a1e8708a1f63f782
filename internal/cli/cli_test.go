package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lexcorpus-backend/internal/domain/chat"
	"github.com/yungbote/lexcorpus-backend/internal/domain/documents"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/pipeline"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
	"github.com/yungbote/lexcorpus-backend/internal/services"
)

type fakeDocuments struct {
	services.DocumentService
	ingested []string
	existing map[string]bool
}

func (f *fakeDocuments) Ingest(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	if f.existing[req.Filename] {
		return nil, &services.DuplicateDocumentError{ExistingID: uuid.New()}
	}
	if err := pipeline.ValidateUpload(req.Filename, req.Data); err != nil {
		return nil, err
	}
	f.ingested = append(f.ingested, req.Filename)
	return &pipeline.Result{DocumentID: uuid.New(), ChunksProcessed: 2, ChunksTotal: 2, Status: documents.StatusProcessed}, nil
}

func (f *fakeDocuments) Stats(context.Context) (*documents.Stats, error) {
	return &documents.Stats{
		TotalDocuments: 3,
		TotalChunks:    42,
		ByCountry:      map[string]int64{"nigeria": 2, "ghana": 1},
	}, nil
}

type fakeSearch struct{ lastK int }

func (f *fakeSearch) Search(_ context.Context, query string, k int) ([]vectorstore.Result, error) {
	f.lastK = k
	return []vectorstore.Result{{ChunkID: "c1", Source: "evidence_act.pdf", Text: "Section 5 of the Evidence Act provides...", Distance: 0.12}}, nil
}

type fakeChat struct {
	services.ChatService
	last services.AskRequest
}

func (f *fakeChat) Ask(_ context.Context, req services.AskRequest) (*services.AskResult, error) {
	f.last = req
	return &services.AskResult{
		SessionID:  uuid.New(),
		Answer:     "Relevance governs admissibility.",
		References: chat.References{Laws: []string{"Section 5 of the Evidence Act"}, Cases: []string{}},
		Timestamp:  time.Now(),
	}, nil
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writePDF(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4 "+name), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestIngestFolderSkipsLoggedAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "a_act.pdf")
	writePDF(t, dir, "b_constitution.PDF")
	writePDF(t, dir, "c_dup.pdf")
	writePDF(t, dir, "notes.txt")
	logPath := filepath.Join(dir, defaultIngestedLog)
	if err := os.WriteFile(logPath, []byte("a_act.pdf\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	docs := &fakeDocuments{existing: map[string]bool{"c_dup.pdf": true}}
	Configure(Services{Documents: docs})
	t.Setenv("INGESTED_LOG", "")
	ingestLogPath = ""

	out, err := execute(t, "ingest", dir)
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	if len(docs.ingested) != 1 || docs.ingested[0] != "b_constitution.PDF" {
		t.Fatalf("ingested: want=[b_constitution.PDF] got=%v", docs.ingested)
	}
	if !strings.Contains(out, "1 ingested, 1 already logged, 1 duplicates, 0 failed") {
		t.Fatalf("summary missing in output:\n%s", out)
	}
	raw, _ := os.ReadFile(logPath)
	if got := string(raw); got != "a_act.pdf\nb_constitution.PDF\n" {
		t.Fatalf("log contents: got=%q", got)
	}

	// A rerun has nothing left to do.
	docs.ingested = nil
	if _, err := execute(t, "ingest", dir); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(docs.ingested) != 0 {
		t.Fatalf("rerun ingested again: %v", docs.ingested)
	}
}

func TestIngestReportsFailures(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fake.pdf"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	Configure(Services{Documents: &fakeDocuments{}})
	t.Setenv("INGESTED_LOG", filepath.Join(t.TempDir(), "ingested.log"))
	ingestLogPath = ""

	out, err := execute(t, "ingest", dir)
	if err == nil {
		t.Fatalf("expected failure error, output:\n%s", out)
	}
	if !strings.Contains(out, "0 ingested, 0 already logged, 0 duplicates, 1 failed") {
		t.Fatalf("summary missing in output:\n%s", out)
	}
}

func TestSearchCommand(t *testing.T) {
	search := &fakeSearch{}
	Configure(Services{Search: search})

	out, err := execute(t, "search", "hearsay", "-k", "3")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if search.lastK != 3 {
		t.Fatalf("k: want=3 got=%d", search.lastK)
	}
	if !strings.Contains(out, "evidence_act.pdf") || !strings.Contains(out, "Section 5") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestSearchCommandNormalizesK(t *testing.T) {
	search := &fakeSearch{}
	Configure(Services{Search: search})

	cases := map[string]int{"500": vectorstore.MaxTopK, "0": vectorstore.DefaultTopK, "7": 7}
	for flag, want := range cases {
		if _, err := execute(t, "search", "hearsay", "-k", flag); err != nil {
			t.Fatalf("search -k %s: %v", flag, err)
		}
		if search.lastK != want {
			t.Fatalf("-k %s: want=%d got=%d", flag, want, search.lastK)
		}
	}
}

func TestAskCommand(t *testing.T) {
	chatSvc := &fakeChat{}
	Configure(Services{Chat: chatSvc})
	sid := uuid.New()

	out, err := execute(t, "ask", "What does Section 5 say?", "--session", sid.String(), "--country", "ghana")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if chatSvc.last.SessionID != sid || chatSvc.last.Country != "ghana" {
		t.Fatalf("request: %+v", chatSvc.last)
	}
	if !strings.Contains(out, "Relevance governs admissibility.") || !strings.Contains(out, "- Section 5 of the Evidence Act") {
		t.Fatalf("output:\n%s", out)
	}

	if _, err := execute(t, "ask", "hi", "--session", "nope"); err == nil {
		t.Fatalf("expected error for bad session id")
	}
	askSession = ""
}

func TestStatsCommand(t *testing.T) {
	Configure(Services{Documents: &fakeDocuments{}})
	out, err := execute(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Documents: 3", "Chunks:    42", "ghana", "nigeria"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTokenCommand(t *testing.T) {
	auth := services.NewAuthService(logger.Nop(), "dev-secret", time.Hour)
	Configure(Services{Auth: auth})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"token", "lawyer-1"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}
	tok := strings.TrimSpace(buf.String())
	ctx, err := auth.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("minted token rejected: %v", err)
	}
	if ctx == nil {
		t.Fatalf("nil context")
	}
}

func TestCommandsRequireServices(t *testing.T) {
	Configure(Services{})
	for _, args := range [][]string{{"stats"}, {"search", "x"}, {"ask", "x"}, {"token", "u"}} {
		if _, err := execute(t, args...); err == nil {
			t.Fatalf("%v: expected error without services", args)
		}
	}
}
