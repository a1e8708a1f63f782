package app

import (
	"context"
	"fmt"

	"github.com/yungbote/lexcorpus-backend/internal/data/graph"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/chunker"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/extractor"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/pipeline"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/completion"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/prompt"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/references"
	"github.com/yungbote/lexcorpus-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexcorpus-backend/internal/platform/embedding"
	"github.com/yungbote/lexcorpus-backend/internal/platform/envutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/localmedia"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
	"github.com/yungbote/lexcorpus-backend/internal/services"
)

type Services struct {
	Embedder  embedding.Embedder
	Vectors   vectorstore.Store
	Citations *graph.Citations
	Pipeline  *pipeline.Pipeline

	Documents services.DocumentService
	Search    services.SearchService
	Chat      services.ChatService
	Auth      services.AuthService
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")
	var out Services

	embedder, err := embedding.New(log, embedding.ConfigFromEnv(), clients.LLM, clients.Redis)
	if err != nil {
		return out, fmt.Errorf("init embedder: %w", err)
	}
	out.Embedder = embedder

	vectors, err := resolveVectorStore(ctx, log, cfg.VectorStore, clients.DB.DB(), embedder.Dimension())
	if err != nil {
		return out, err
	}
	out.Vectors = vectors

	tools := localmedia.New(log)
	ocr, err := extractor.NewOCR(extractor.OCRConfigFromEnv(), tools, clients.Vision)
	if err != nil {
		return out, fmt.Errorf("init ocr: %w", err)
	}
	refs := references.NewRegexExtractor()
	out.Citations = graph.NewCitations(clients.Neo4j, log)

	out.Pipeline, err = pipeline.New(pipeline.Deps{
		Log:        log,
		Documents:  reposet.Document,
		Chunks:     reposet.Chunk,
		Tx:         dbctx.NewGormTxRunner(clients.DB.DB()),
		Extractor:  extractor.New(log, tools, ocr, extractor.ConfigFromEnv()),
		Chunker:    chunker.New(chunker.Config{Size: cfg.RAG.ChunkSize, Overlap: cfg.RAG.ChunkOverlap}),
		Embedder:   embedder,
		Vectors:    vectors,
		References: refs,
		Archive:    clients.Archive,
		Citations:  out.Citations,
	}, pipeline.ConfigFromEnv())
	if err != nil {
		return out, err
	}

	embedTimeout := envutil.Seconds("EMBEDDING_TIMEOUT_SECONDS", pipeline.DefaultEmbedTimeout)
	out.Search = services.NewSearchService(log, embedder, vectors, embedTimeout)
	out.Documents = services.NewDocumentService(
		log,
		reposet.Document,
		reposet.Chunk,
		out.Pipeline,
		vectors,
		clients.Archive,
		out.Citations,
	)

	scope := references.ParseScope(cfg.RAG.VerifyScope)
	out.Chat = services.NewChatService(services.ChatDeps{
		Log:        log,
		Sessions:   reposet.ChatSession,
		Messages:   reposet.ChatMessage,
		Queries:    reposet.QueryLog,
		Feedback:   reposet.Feedback,
		Search:     out.Search,
		References: refs,
		Verifier:   references.NewVerifier(log, services.NewCorpus(reposet.Chunk), scope),
		Prompt: prompt.NewBuilder(prompt.Config{
			HistoryTurns: cfg.RAG.HistoryTurns,
			MaxTokens:    cfg.RAG.PromptMaxTokens,
		}),
		Completion: completion.New(log, clients.LLM, envutil.Seconds("COMPLETION_TIMEOUT_SECONDS", completion.DefaultTimeout)),
	}, services.ChatConfig{
		TopK:           cfg.RAG.TopK,
		HistoryTurns:   cfg.RAG.HistoryTurns,
		Formatting:     cfg.Formatting,
		DefaultCountry: cfg.RAG.DefaultCountry,
		PersistTimeout: cfg.PersistTimeout,
	})

	out.Auth = services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	if !out.Auth.Enabled() {
		log.Warn("JWT_SECRET_KEY not set; API runs in open mode with X-User-Id identification")
	}
	log.Info("Services wired",
		"embedder", embedder.Name(),
		"vector_store", cfg.VectorStore,
		"verify_scope", scope,
		"llm", clients.LLM != nil,
		"citation_graph", out.Citations.Enabled(),
		"archive", clients.Archive != nil,
	)
	return out, nil
}
