package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

var tokenRE = regexp.MustCompile(`\p{L}+|\p{N}+`)

type hashingEmbedder struct {
	dim int
}

// NewHashing returns an offline embedder using signed feature hashing of unigrams and bigrams.
func NewHashing(dim int) Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &hashingEmbedder{dim: dim}
}

func (h *hashingEmbedder) Dimension() int { return h.dim }

func (h *hashingEmbedder) Name() string { return "hashing" }

func (h *hashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tokens := tokenRE.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil, &Error{Provider: h.Name(), Err: ErrEmptyText}
	}
	v := make([]float32, h.dim)
	for i, tok := range tokens {
		h.add(v, tok)
		if i > 0 {
			h.add(v, tokens[i-1]+" "+tok)
		}
	}
	Normalize(v)
	return v, nil
}

func (h *hashingEmbedder) add(v []float32, feature string) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := sum % uint64(h.dim)
	if sum>>63 == 1 {
		v[idx]--
		return
	}
	v[idx]++
}
