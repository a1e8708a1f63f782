package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashingDeterministicUnitVectors(t *testing.T) {
	e := NewHashing(64)
	ctx := context.Background()
	a, err := e.Embed(ctx, "Section 5 of the Evidence Act")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, _ := e.Embed(ctx, "Section 5 of the Evidence Act")
	if len(a) != 64 {
		t.Fatalf("dimension: want=64 got=%d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("not deterministic at %d", i)
		}
	}
	if n := norm(a); math.Abs(n-1) > 1e-5 {
		t.Fatalf("norm: want=1 got=%v", n)
	}
}

func TestHashingCaseInsensitiveAndSimilarity(t *testing.T) {
	e := NewHashing(DefaultDimension)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "BAIL pending trial")
	b, _ := e.Embed(ctx, "bail pending trial")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("case sensitivity at %d", i)
		}
	}
	q, _ := e.Embed(ctx, "bail application pending trial")
	far, _ := e.Embed(ctx, "company registration fees schedule")
	if dist(q, a) >= dist(q, far) {
		t.Fatalf("related text should be closer: related=%v unrelated=%v", dist(q, a), dist(q, far))
	}
}

func dist(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i] - b[i])
		s += d * d
	}
	return math.Sqrt(s)
}

func TestHashingEmptyText(t *testing.T) {
	_, err := NewHashing(8).Embed(context.Background(), "  ... ")
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("want=%v got=%v", ErrEmptyText, err)
	}
	var embErr *Error
	if !errors.As(err, &embErr) || embErr.Provider != "hashing" {
		t.Fatalf("expected *Error from hashing, got=%T", err)
	}
}

type fakeLLM struct {
	vec  []float32
	err  error
	dims int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) { return "", nil }
func (f *fakeLLM) Model() string                                               { return "fake" }
func (f *fakeLLM) Embed(ctx context.Context, inputs []string, dims int) ([][]float32, error) {
	f.dims = dims
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float32, len(f.vec))
	copy(out, f.vec)
	return [][]float32{out}, nil
}

func TestOpenAIEmbedderNormalizesAndPassesDims(t *testing.T) {
	llm := &fakeLLM{vec: []float32{3, 4}}
	e, err := NewOpenAI(llm, 2)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	v, err := e.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if llm.dims != 2 {
		t.Fatalf("dims: want=2 got=%d", llm.dims)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("normalized: got=%v", v)
	}

	llm.err = errors.New("rate limited")
	if _, err := e.Embed(context.Background(), "text"); err == nil || !strings.Contains(err.Error(), "openai") {
		t.Fatalf("provider error: got=%v", err)
	}
}

type mapBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func (m *mapBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type countingEmbedder struct {
	Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.Embedder.Embed(ctx, text)
}

func TestCachedEmbedderReadThrough(t *testing.T) {
	inner := &countingEmbedder{Embedder: NewHashing(16)}
	backend := &mapBackend{data: map[string][]byte{}}
	c := newCached(inner, backend, time.Hour, logger.Nop())

	first, err := c.Embed(context.Background(), "Evidence Act")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := c.Embed(context.Background(), "Evidence Act")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls: want=1 got=%d", inner.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}
	if _, ok := backend.data[CacheKey("hashing", 16, "Evidence Act")]; !ok {
		t.Fatalf("cache key not written")
	}
}

func TestCacheKeyShape(t *testing.T) {
	k := CacheKey("hashing", 384, "abc")
	if !strings.HasPrefix(k, "emb:hashing:384:") || len(k) != len("emb:hashing:384:")+64 {
		t.Fatalf("CacheKey: got=%s", k)
	}
}
