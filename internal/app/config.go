package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/lexcorpus-backend/internal/domain/documents"
	"github.com/yungbote/lexcorpus-backend/internal/ingestion/chunker"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/prompt"
	"github.com/yungbote/lexcorpus-backend/internal/modules/chat/references"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
	"github.com/yungbote/lexcorpus-backend/internal/utils"
)

// RAGConfig is the retrieval/answering tuning block. It can come from the YAML file named by
// CONFIG_FILE; environment variables override it.
type RAGConfig struct {
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	TopK            int    `yaml:"top_k"`
	VerifyScope     string `yaml:"verify_scope"`
	HistoryTurns    int    `yaml:"history_turns"`
	PromptMaxTokens int    `yaml:"prompt_max_tokens"`
	DefaultCountry  string `yaml:"default_country"`
}

type fileConfig struct {
	RAG RAGConfig `yaml:"rag"`
}

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string
	CORSOrigins []string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	VectorStore    string
	Formatting     bool
	PersistTimeout time.Duration

	RAG RAGConfig
}

func defaultRAG() RAGConfig {
	return RAGConfig{
		ChunkSize:       chunker.DefaultSize,
		ChunkOverlap:    chunker.DefaultOverlap,
		TopK:            vectorstore.DefaultTopK,
		VerifyScope:     string(references.ScopeCorpus),
		HistoryTurns:    prompt.DefaultHistoryTurns,
		PromptMaxTokens: prompt.DefaultMaxTokens,
		DefaultCountry:  documents.DefaultCountry,
	}
}

// LoadDotEnv loads ENV_FILE (default .env) into the process environment without overriding
// variables that are already set. A missing file reports loaded=false and no error.
func LoadDotEnv() (path string, loaded bool, err error) {
	path = strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return path, false, err
	}
	return path, true, nil
}

// LoadConfig resolves configuration with precedence env > CONFIG_FILE > defaults.
func LoadConfig(log *logger.Logger) (Config, error) {
	rag := defaultRAG()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := overlayYAML(path, &rag); err != nil {
			return Config{}, err
		}
		log.Info("Loaded config file", "path", path)
	}
	rag = overlayEnv(rag, log)
	if rag.ChunkOverlap >= rag.ChunkSize {
		return Config{}, fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", rag.ChunkOverlap, rag.ChunkSize)
	}

	var origins []string
	for _, o := range strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		Port:           utils.GetEnv("PORT", "8080", log),
		ServiceName:    utils.GetEnv("OTEL_SERVICE_NAME", "lexcorpus-backend", log),
		Environment:    utils.GetEnv("APP_ENV", "development", log),
		Version:        utils.GetEnv("APP_VERSION", "dev", log),
		CORSOrigins:    origins,
		JWTSecretKey:   utils.GetEnv("JWT_SECRET_KEY", "", log),
		AccessTokenTTL: time.Duration(utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)) * time.Second,
		VectorStore:    strings.ToLower(utils.GetEnv("VECTOR_STORE", VectorStoreMemory, log)),
		Formatting:     utils.GetEnvAsBool("ANSWER_FORMATTING", true, log),
		PersistTimeout: time.Duration(utils.GetEnvAsInt("PERSIST_TIMEOUT_SECONDS", 10, log)) * time.Second,
		RAG:            rag,
	}, nil
}

func overlayYAML(path string, rag *RAGConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{RAG: *rag}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	*rag = fc.RAG
	return nil
}

func overlayEnv(rag RAGConfig, log *logger.Logger) RAGConfig {
	rag.ChunkSize = utils.GetEnvAsInt("CHUNK_SIZE", rag.ChunkSize, log)
	rag.ChunkOverlap = utils.GetEnvAsInt("CHUNK_OVERLAP", rag.ChunkOverlap, log)
	rag.TopK = utils.GetEnvAsInt("TOP_K", rag.TopK, log)
	rag.VerifyScope = utils.GetEnv("REFERENCE_VERIFY_SCOPE", rag.VerifyScope, log)
	rag.HistoryTurns = utils.GetEnvAsInt("HISTORY_TURNS", rag.HistoryTurns, log)
	rag.PromptMaxTokens = utils.GetEnvAsInt("PROMPT_MAX_TOKENS", rag.PromptMaxTokens, log)
	rag.DefaultCountry = strings.ToLower(utils.GetEnv("DEFAULT_COUNTRY", rag.DefaultCountry, log))
	return rag
}
