package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lexcorpus-backend/internal/platform/openai"
)

type remoteEmbedder struct {
	client openai.Client
	dim    int
}

// NewOpenAI embeds through an OpenAI-compatible embeddings endpoint, requesting dim dimensions.
func NewOpenAI(client openai.Client, dim int) (Embedder, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client required")
	}
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &remoteEmbedder{client: client, dim: dim}, nil
}

func (e *remoteEmbedder) Dimension() int { return e.dim }

func (e *remoteEmbedder) Name() string { return "openai" }

func (e *remoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &Error{Provider: e.Name(), Err: ErrEmptyText}
	}
	vecs, err := e.client.Embed(ctx, []string{text}, e.dim)
	if err != nil {
		return nil, &Error{Provider: e.Name(), Err: err}
	}
	if len(vecs) != 1 {
		return nil, &Error{Provider: e.Name(), Err: fmt.Errorf("expected 1 vector, got %d", len(vecs))}
	}
	v := vecs[0]
	Normalize(v)
	return v, nil
}
