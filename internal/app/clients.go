package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lexcorpus-backend/internal/clients/redis"
	"github.com/yungbote/lexcorpus-backend/internal/data/db"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/extractor"
	"github.com/yungbote/lexcorpus-backend/internal/platform/gcp"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/neo4jdb"
	"github.com/yungbote/lexcorpus-backend/internal/platform/objectstore"
	"github.com/yungbote/lexcorpus-backend/internal/platform/openai"
)

// Clients holds external connections. Everything except DB is optional and nil when unconfigured.
type Clients struct {
	DB      *db.Service
	Redis   *goredis.Client
	Neo4j   *neo4jdb.Client
	Vision  gcp.Vision
	LLM     openai.Client
	Archive objectstore.Store
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	database, err := db.NewService(log)
	if err != nil {
		return c, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrateAll(); err != nil {
		_ = database.Close()
		return c, fmt.Errorf("automigrate: %w", err)
	}
	c.DB = database

	if c.Redis, err = redis.NewClient(log); err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	if c.Neo4j, err = neo4jdb.NewFromEnv(log); err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}

	if extractor.OCRConfigFromEnv().Provider == extractor.OCRProviderVision {
		if c.Vision, err = gcp.NewVision(log); err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init vision client: %w", err)
		}
	}

	c.LLM, err = openai.NewClient(log, openai.ConfigFromEnv())
	switch {
	case errors.Is(err, openai.ErrNotConfigured):
		log.Warn("No LLM API key configured; answers will use the corpus-only fallback")
		c.LLM = nil
	case err != nil:
		c.Close()
		return Clients{}, fmt.Errorf("init llm client: %w", err)
	}

	if c.Archive, err = resolveArchive(log); err != nil {
		c.Close()
		return Clients{}, err
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Vision != nil {
		_ = c.Vision.Close()
	}
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.Neo4j.Close(ctx)
		cancel()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
