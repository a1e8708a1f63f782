package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	key := DocumentKey("doc-1", "/tmp/evidence act.pdf")
	if key != "documents/doc-1/evidence act.pdf" {
		t.Fatalf("DocumentKey: got=%q", key)
	}
	if err := s.Put(ctx, key, strings.NewReader("%PDF-1.4 body")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "%PDF-1.4 body" {
		t.Fatalf("Get: want=%q got=%q", "%PDF-1.4 body", string(b))
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: want=%v got=%v", ErrNotFound, err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestLocalKeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, _ := NewLocal(root)
	l := s.(*local)
	p, err := l.path("../../etc/passwd")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if !strings.HasPrefix(p, root) {
		t.Fatalf("path escaped root: %s", p)
	}
}
