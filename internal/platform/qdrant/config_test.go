package qdrant

import (
	"errors"
	"testing"
)

func TestResolveConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "")
	t.Setenv("QDRANT_VECTOR_DIM", "")
	t.Setenv("QDRANT_API_KEY", "secret")

	cfg, err := ResolveConfigFromEnv(384)
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Collection != DefaultCollection {
		t.Fatalf("Collection: want=%q got=%q", DefaultCollection, cfg.Collection)
	}
	if cfg.NamespacePrefix != DefaultNamespacePrefix {
		t.Fatalf("NamespacePrefix: want=%q got=%q", DefaultNamespacePrefix, cfg.NamespacePrefix)
	}
	if cfg.VectorDim != 384 {
		t.Fatalf("VectorDim: want=%d got=%d", 384, cfg.VectorDim)
	}
	if cfg.APIKey != "secret" {
		t.Fatalf("APIKey: want=%q got=%q", "secret", cfg.APIKey)
	}
}

func TestResolveConfigFromEnvOverrideDim(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")

	cfg, err := ResolveConfigFromEnv(384)
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.VectorDim != 1536 {
		t.Fatalf("VectorDim: want=%d got=%d", 1536, cfg.VectorDim)
	}
}

func TestResolveConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		url  string
		dim  string
		want ConfigErrorCode
	}{
		{"missing url", "", "", ConfigErrorMissingURL},
		{"relative url", "qdrant:6333", "", ConfigErrorInvalidURL},
		{"bad dim", "http://qdrant:6333", "abc", ConfigErrorInvalidVectorDim},
		{"zero dim", "http://qdrant:6333", "0", ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			t.Setenv("QDRANT_VECTOR_DIM", tc.dim)
			_, err := ResolveConfigFromEnv(384)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
			}
			if cfgErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, cfgErr.Code)
			}
		})
	}
}
