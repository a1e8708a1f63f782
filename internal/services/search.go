package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/platform/embedding"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

type SearchService interface {
	// Search embeds query and returns at most k chunks, nearest first. k<=0 means DefaultTopK;
	// k is otherwise passed to the store uncapped.
	Search(ctx context.Context, query string, k int) ([]vectorstore.Result, error)
}

type searchService struct {
	log      *logger.Logger
	embedder embedding.Embedder
	vectors  vectorstore.Store
	timeout  time.Duration
}

func NewSearchService(log *logger.Logger, embedder embedding.Embedder, vectors vectorstore.Store, embedTimeout time.Duration) SearchService {
	if embedTimeout <= 0 {
		embedTimeout = 20 * time.Second
	}
	return &searchService{
		log:      log.With("service", "SearchService"),
		embedder: embedder,
		vectors:  vectors,
		timeout:  embedTimeout,
	}
}

func (s *searchService) Search(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalidf("query is required")
	}
	if k <= 0 {
		k = vectorstore.DefaultTopK
	}
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "retrieve", attribute.Int("k", k))
	defer span.End()

	ectx, cancel := context.WithTimeout(ctx, s.timeout)
	q, err := s.embedder.Embed(ectx, query)
	cancel()
	if err != nil {
		observability.Current().ObserveRetrieval("embed_error", time.Since(start))
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.vectors.Search(ctx, q, k)
	if err != nil {
		observability.Current().ObserveRetrieval("store_error", time.Since(start))
		return nil, fmt.Errorf("vector search: %w", err)
	}
	observability.Current().ObserveRetrieval("ok", time.Since(start))
	s.log.Debug("Retrieved chunks", "k", k, "hits", len(results), "elapsed_ms", time.Since(start).Milliseconds())
	return results, nil
}
