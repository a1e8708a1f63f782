package vectorstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

func newSQLiteStore(t *testing.T, dim int) Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "vectors.db")), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := NewSQL(gdb, dim, logger.Nop())
	if err != nil {
		t.Fatalf("NewSQL: %v", err)
	}
	return s
}

func TestSQLUpsertSearchDelete(t *testing.T) {
	s := newSQLiteStore(t, 2)
	ctx := context.Background()

	if err := s.Upsert(ctx, []Record{
		rec("c", "d1", 3, 0),
		rec("a", "d1", 1, 0),
		rec("b", "d2", 0, 1),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	res, err := s.Search(ctx, []float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(res) != len(want) {
		t.Fatalf("len: want=%d got=%d", len(want), len(res))
	}
	for i, id := range want {
		if res[i].ChunkID != id {
			t.Fatalf("order[%d]: want=%s got=%s", i, id, res[i].ChunkID)
		}
	}
	if res[0].Source != "d1.pdf" || res[0].Text != "text a" {
		t.Fatalf("payload: got source=%q text=%q", res[0].Source, res[0].Text)
	}

	// Upsert on an existing chunk id replaces the vector.
	if err := s.Upsert(ctx, []Record{rec("c", "d1", 0, 0)}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	res, err = s.Search(ctx, []float32{0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].ChunkID != "c" || res[0].Distance != 0 {
		t.Fatalf("after re-upsert: got=%+v", res)
	}

	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	res, err = s.Search(ctx, []float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].ChunkID != "b" {
		t.Fatalf("after delete: got=%+v", res)
	}
}

func TestSQLDimensionHandling(t *testing.T) {
	s := newSQLiteStore(t, 2)
	ctx := context.Background()

	err := s.Upsert(ctx, []Record{rec("x", "d1", 1, 2, 3)})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Upsert wrong dim: want=%v got=%v", ErrDimensionMismatch, err)
	}
	if err := s.Upsert(ctx, []Record{rec("a", "d1", 1, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	res, err := s.Search(ctx, []float32{1, 0, 0}, 5)
	if err != nil || len(res) != 0 {
		t.Fatalf("query of another dimension: err=%v len=%d", err, len(res))
	}
	if s.Dimension() != 2 {
		t.Fatalf("Dimension: want=2 got=%d", s.Dimension())
	}
}

func TestNewSQLRequiresDB(t *testing.T) {
	if _, err := NewSQL(nil, 2, logger.Nop()); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
