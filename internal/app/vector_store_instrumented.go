package app

import (
	"context"
	"time"

	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

type instrumentedVectorStore struct {
	provider string
	inner    vectorstore.Store
	metrics  *observability.Metrics
}

func instrumentVectorStore(provider string, inner vectorstore.Store) vectorstore.Store {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{
		provider: provider,
		inner:    inner,
		metrics:  observability.Current(),
	}
}

func (s *instrumentedVectorStore) Dimension() int { return s.inner.Dimension() }

func (s *instrumentedVectorStore) Upsert(ctx context.Context, records []vectorstore.Record) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, records)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) Search(ctx context.Context, q []float32, k int) ([]vectorstore.Result, error) {
	start := time.Now()
	out, err := s.inner.Search(ctx, q, k)
	s.observe("search", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	start := time.Now()
	err := s.inner.DeleteDocument(ctx, documentID)
	s.observe("delete_document", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorStoreOperation(s.provider, operation, status, dur)
}
