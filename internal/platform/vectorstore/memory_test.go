package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func rec(id, doc string, v ...float32) Record {
	return Record{ChunkID: id, DocumentID: doc, Source: doc + ".pdf", Text: "text " + id, Vector: v}
}

func TestMemorySearchOrderingAndBounds(t *testing.T) {
	s := NewMemory(2)
	ctx := context.Background()

	res, err := s.Search(ctx, []float32{0, 0}, 5)
	if err != nil || len(res) != 0 {
		t.Fatalf("empty search: err=%v len=%d", err, len(res))
	}

	err = s.Upsert(ctx, []Record{
		rec("c", "d1", 3, 0),
		rec("a", "d1", 1, 0),
		rec("b", "d2", 0, 1),
		rec("d", "d2", 2, 0),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	res, err = s.Search(ctx, []float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"a", "b", "d"}
	if len(res) != len(want) {
		t.Fatalf("len: want=%d got=%d", len(want), len(res))
	}
	for i, id := range want {
		if res[i].ChunkID != id {
			t.Fatalf("result[%d]: want=%s got=%s", i, id, res[i].ChunkID)
		}
	}
	for i := 1; i < len(res); i++ {
		if res[i].Distance < res[i-1].Distance {
			t.Fatalf("not ascending at %d", i)
		}
	}

	res, _ = s.Search(ctx, []float32{0, 0}, 0)
	if len(res) != 0 {
		t.Fatalf("k=0: want=0 got=%d", len(res))
	}
	res, _ = s.Search(ctx, []float32{0, 0}, 100)
	if len(res) != 4 {
		t.Fatalf("k>n: want=4 got=%d", len(res))
	}
}

func TestMemoryDimensionHandling(t *testing.T) {
	s := NewMemory(3)
	ctx := context.Background()
	err := s.Upsert(ctx, []Record{rec("x", "d", 1, 2)})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Upsert wrong dim: want=%v got=%v", ErrDimensionMismatch, err)
	}
	if err := s.Upsert(ctx, []Record{rec("y", "d", 1, 2, 3)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	res, err := s.Search(ctx, []float32{1, 2}, 5)
	if err != nil || len(res) != 0 {
		t.Fatalf("mismatched query: err=%v len=%d", err, len(res))
	}
}

func TestMemoryDeleteDocumentAndTies(t *testing.T) {
	s := NewMemory(1)
	ctx := context.Background()
	_ = s.Upsert(ctx, []Record{rec("b", "d1", 1), rec("a", "d2", 1), rec("c", "d1", 1)})

	res, _ := s.Search(ctx, []float32{0}, 5)
	if res[0].ChunkID != "a" || res[1].ChunkID != "b" || res[2].ChunkID != "c" {
		t.Fatalf("tie order: got=%s,%s,%s", res[0].ChunkID, res[1].ChunkID, res[2].ChunkID)
	}

	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	res, _ = s.Search(ctx, []float32{0}, 5)
	if len(res) != 1 || res[0].ChunkID != "a" {
		t.Fatalf("after delete: got=%v", res)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	s := NewMemory(2)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.Upsert(ctx, []Record{rec(fmt.Sprintf("c%d", i), "d", float32(i), 1)})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.Search(ctx, []float32{0, 0}, 3)
		}()
	}
	wg.Wait()
	res, _ := s.Search(ctx, []float32{0, 0}, 50)
	if len(res) != 8 {
		t.Fatalf("after concurrent upserts: want=8 got=%d", len(res))
	}
}

func TestNormalizeK(t *testing.T) {
	cases := map[int]int{-1: DefaultTopK, 0: DefaultTopK, 3: 3, 50: 50, 51: MaxTopK}
	for in, want := range cases {
		if got := NormalizeK(in); got != want {
			t.Fatalf("NormalizeK(%d): want=%d got=%d", in, want, got)
		}
	}
}

func TestMemorySearchDoesNotCapK(t *testing.T) {
	s := NewMemory(2)
	ctx := context.Background()
	records := make([]Record, 0, 60)
	for i := 0; i < 60; i++ {
		records = append(records, rec(fmt.Sprintf("c%02d", i), "d", float32(i), 0))
	}
	if err := s.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	res, err := s.Search(ctx, []float32{0, 0}, MaxTopK*2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != len(records) {
		t.Fatalf("k above MaxTopK with fewer records: want=%d got=%d", len(records), len(res))
	}
	if res[0].ChunkID != "c00" || res[len(res)-1].ChunkID != "c59" {
		t.Fatalf("order: first=%s last=%s", res[0].ChunkID, res[len(res)-1].ChunkID)
	}
}
