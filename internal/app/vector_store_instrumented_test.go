package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

func TestInstrumentVectorStorePassThrough(t *testing.T) {
	inner := &fakeInstrumentedInner{}
	vs := instrumentVectorStore("qdrant", inner)
	if vs == nil {
		t.Fatalf("instrumentVectorStore: expected non-nil wrapper")
	}

	if err := vs.Upsert(context.Background(), []vectorstore.Record{{ChunkID: "c1", Vector: []float32{1, 2, 3}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	res, err := vs.Search(context.Background(), []float32{1, 2, 3}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].ChunkID != "c1" {
		t.Fatalf("Search results: %+v", res)
	}
	if err := vs.DeleteDocument(context.Background(), "d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if vs.Dimension() != 3 {
		t.Fatalf("Dimension: want=3 got=%d", vs.Dimension())
	}

	if inner.upsertCalls != 1 || inner.searchCalls != 1 || inner.deleteCalls != 1 {
		t.Fatalf(
			"unexpected call counts: upsert=%d search=%d delete=%d",
			inner.upsertCalls,
			inner.searchCalls,
			inner.deleteCalls,
		)
	}
}

func TestInstrumentVectorStoreErrorPassThrough(t *testing.T) {
	want := errors.New("delete failed")
	inner := &fakeInstrumentedInner{deleteErr: want}
	vs := instrumentVectorStore("qdrant", inner)

	err := vs.DeleteDocument(context.Background(), "d1")
	if !errors.Is(err, want) {
		t.Fatalf("DeleteDocument: expected wrapped error %v, got=%v", want, err)
	}
}

func TestInstrumentVectorStoreNil(t *testing.T) {
	if vs := instrumentVectorStore("memory", nil); vs != nil {
		t.Fatalf("expected nil wrapper for nil store")
	}
}

type fakeInstrumentedInner struct {
	upsertCalls int
	searchCalls int
	deleteCalls int

	deleteErr error
}

func (f *fakeInstrumentedInner) Dimension() int { return 3 }

func (f *fakeInstrumentedInner) Upsert(_ context.Context, _ []vectorstore.Record) error {
	f.upsertCalls++
	return nil
}

func (f *fakeInstrumentedInner) Search(_ context.Context, _ []float32, _ int) ([]vectorstore.Result, error) {
	f.searchCalls++
	return []vectorstore.Result{{ChunkID: "c1", Distance: 0}}, nil
}

func (f *fakeInstrumentedInner) DeleteDocument(_ context.Context, _ string) error {
	f.deleteCalls++
	return f.deleteErr
}
