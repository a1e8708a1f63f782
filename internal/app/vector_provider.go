package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
	"github.com/yungbote/lexcorpus-backend/internal/platform/qdrant"
	"github.com/yungbote/lexcorpus-backend/internal/platform/vectorstore"
)

const (
	VectorStoreMemory = "memory"
	VectorStoreSQL    = "sql"
	VectorStoreQdrant = "qdrant"
)

var (
	newQdrantVectorStore = qdrant.NewVectorStore
	newSQLVectorStore    = vectorstore.NewSQL
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider     VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorMissingQdrantURL    VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL    VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl   VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorInvalidQdrantVector VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorQdrantConfigFailed  VectorProviderBootstrapErrorCode = "qdrant_config_failed"
	VectorProviderBootstrapErrorDimensionMismatch   VectorProviderBootstrapErrorCode = "dimension_mismatch"
	VectorProviderBootstrapErrorConnectFailed       VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed  VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore builds the store selected by VECTOR_STORE for embeddings of length dim.
// gdb backs the sql provider and may be nil for the others.
func resolveVectorStore(ctx context.Context, log *logger.Logger, provider string, gdb *gorm.DB, dim int) (vectorstore.Store, error) {
	provider = strings.TrimSpace(strings.ToLower(provider))
	if provider == "" {
		provider = VectorStoreMemory
	}
	metrics := observability.Current()
	metrics.SetVectorStoreProviderActive(provider)

	var (
		vs  vectorstore.Store
		err error
	)
	switch provider {
	case VectorStoreMemory:
		log.Info("Selecting vector store provider", "provider", provider, "dim", dim)
		vs = vectorstore.NewMemory(dim)

	case VectorStoreSQL:
		log.Info("Selecting vector store provider", "provider", provider, "dim", dim)
		vs, err = newSQLVectorStore(gdb, dim, log)

	case VectorStoreQdrant:
		var qcfg qdrant.Config
		qcfg, err = qdrant.ResolveConfigFromEnv(dim)
		if err == nil && qcfg.VectorDim != dim {
			err = &VectorProviderBootstrapError{
				Code:     VectorProviderBootstrapErrorDimensionMismatch,
				Provider: provider,
				Cause:    fmt.Errorf("QDRANT_VECTOR_DIM=%d does not match embedding dimension %d", qcfg.VectorDim, dim),
			}
		}
		if err == nil {
			log.Info(
				"Selecting vector store provider",
				"provider", provider,
				"qdrant_url", qcfg.URL,
				"qdrant_collection", qcfg.Collection,
				"qdrant_namespace_prefix", qcfg.NamespacePrefix,
				"qdrant_vector_dim", qcfg.VectorDim,
			)
			vs, err = newQdrantVectorStore(ctx, log, qcfg)
		}

	default:
		err = &VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported VECTOR_STORE %q (allowed: memory, sql, qdrant)", provider),
		}
	}

	if err != nil {
		classified := classifyVectorProviderBootstrapError(provider, err)
		code := vectorProviderBootstrapErrorCode(classified)
		metrics.ObserveVectorStoreBootstrap(provider, "error", string(code))
		log.Error("Vector store provider bootstrap failed", "provider", provider, "error_code", code, "error", classified)
		return nil, classified
	}
	metrics.ObserveVectorStoreBootstrap(provider, "success", "none")
	return instrumentVectorStore(provider, vs), nil
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	var already *VectorProviderBootstrapError
	if errors.As(err, &already) {
		return err
	}
	wrap := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return wrap(VectorProviderBootstrapErrorConnectFailed)
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return wrap(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return wrap(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorInvalidVectorDim:
			return wrap(VectorProviderBootstrapErrorInvalidQdrantVector)
		default:
			return wrap(VectorProviderBootstrapErrorQdrantConfigFailed)
		}
	}
	return wrap(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorConnectFailed
}
