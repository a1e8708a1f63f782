package vectorstore

import (
	"context"
	"sync"
)

type memoryStore struct {
	dim     int
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory returns an in-process store. Contents are lost on restart.
func NewMemory(dim int) Store {
	return &memoryStore{dim: dim, records: map[string]Record{}}
}

func (s *memoryStore) Dimension() int { return s.dim }

func (s *memoryStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := CheckDimension(s.dim, records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		v := make([]float32, len(r.Vector))
		copy(v, r.Vector)
		r.Vector = v
		s.records[r.ChunkID] = r
	}
	return nil
}

func (s *memoryStore) Search(ctx context.Context, q []float32, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	s.mu.RLock()
	out := make([]Result, 0, len(s.records))
	for _, r := range s.records {
		if len(r.Vector) != len(q) {
			continue
		}
		out = append(out, Result{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Source:     r.Source,
			Text:       r.Text,
			Distance:   EuclideanDistance(q, r.Vector),
		})
	}
	s.mu.RUnlock()

	SortResults(out)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *memoryStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.DocumentID == documentID {
			delete(s.records, id)
		}
	}
	return nil
}
