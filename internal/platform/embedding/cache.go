package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type cacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisBackend struct {
	rdb *goredis.Client
}

func (b redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (b redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

type cachedEmbedder struct {
	inner   Embedder
	backend cacheBackend
	ttl     time.Duration
	log     *logger.Logger
}

// WithRedisCache decorates inner with a read-through Redis cache. Cache errors never fail an embed.
func WithRedisCache(inner Embedder, rdb *goredis.Client, ttl time.Duration, log *logger.Logger) Embedder {
	if rdb == nil {
		return inner
	}
	return newCached(inner, redisBackend{rdb: rdb}, ttl, log)
}

func newCached(inner Embedder, backend cacheBackend, ttl time.Duration, log *logger.Logger) *cachedEmbedder {
	return &cachedEmbedder{
		inner:   inner,
		backend: backend,
		ttl:     ttl,
		log:     log.With("service", "EmbeddingCache"),
	}
}

func (c *cachedEmbedder) Dimension() int { return c.inner.Dimension() }

func (c *cachedEmbedder) Name() string { return c.inner.Name() }

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.inner.Name(), c.inner.Dimension(), text)
	if raw, ok, err := c.backend.Get(ctx, key); err != nil {
		c.log.Warn("embedding cache read failed", "error", err)
	} else if ok {
		var v []float32
		if err := json.Unmarshal(raw, &v); err == nil && len(v) == c.inner.Dimension() {
			observability.Current().IncEmbeddingCache(true)
			return v, nil
		}
	}
	observability.Current().IncEmbeddingCache(false)

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
			c.log.Warn("embedding cache write failed", "error", err)
		}
	}
	return v, nil
}

func CacheKey(provider string, dim int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%d:%s", provider, dim, hex.EncodeToString(sum[:]))
}
