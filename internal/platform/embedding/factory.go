package embedding

import (
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lexcorpus-backend/internal/platform/envutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/openai"
)

const (
	ProviderHashing = "hashing"
	ProviderOpenAI  = "openai"
)

type Config struct {
	Provider  string
	Dimension int
	CacheTTL  time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Provider:  strings.ToLower(envutil.String("EMBEDDING_PROVIDER", ProviderHashing)),
		Dimension: envutil.Int("EMBEDDING_DIM", DefaultDimension),
		CacheTTL:  time.Duration(envutil.Int("EMBEDDING_CACHE_TTL_HOURS", 720)) * time.Hour,
	}
}

// New builds the configured provider; rdb may be nil to disable caching.
func New(log *logger.Logger, cfg Config, llm openai.Client, rdb *goredis.Client) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "", ProviderHashing:
		e = NewHashing(cfg.Dimension)
	case ProviderOpenAI:
		e, err = NewOpenAI(llm, cfg.Dimension)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", cfg.Provider)
	}
	log.Info("Embedder selected", "provider", e.Name(), "dim", e.Dimension(), "cache", rdb != nil)
	return WithRedisCache(e, rdb, cfg.CacheTTL, log), nil
}
