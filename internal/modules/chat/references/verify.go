package references

import (
	"context"
	"regexp"
	"strings"

	"github.com/yungbote/lexcorpus-backend/internal/domain/chat"
	"github.com/yungbote/lexcorpus-backend/internal/domain/documents"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

// MaxPerList caps each reference list attached to a message.
const MaxPerList = 10

type Scope string

const (
	// ScopeCorpus accepts a candidate found anywhere in the stored chunks.
	ScopeCorpus Scope = "corpus"
	// ScopeRetrieved accepts a candidate only when one of the turn's retrieved texts contains it.
	ScopeRetrieved Scope = "retrieved"
)

func ParseScope(s string) Scope {
	if Scope(strings.ToLower(strings.TrimSpace(s))) == ScopeRetrieved {
		return ScopeRetrieved
	}
	return ScopeCorpus
}

// Corpus answers case-insensitive substring queries over every stored chunk.
type Corpus interface {
	ContainsText(ctx context.Context, needle string) (bool, error)
}

type Verifier struct {
	log    *logger.Logger
	corpus Corpus
	scope  Scope
}

func NewVerifier(log *logger.Logger, corpus Corpus, scope Scope) *Verifier {
	if corpus == nil {
		scope = ScopeRetrieved
	}
	return &Verifier{log: log.With("service", "ReferenceVerifier"), corpus: corpus, scope: scope}
}

func (v *Verifier) Scope() Scope { return v.scope }

// Verify keeps the candidates present in the corpus (or in retrieved, per scope), dedups them
// case-insensitively in first-seen order and caps each list. Articles are reported as laws.
func (v *Verifier) Verify(ctx context.Context, candidates []Candidate, retrieved []string) chat.References {
	out := chat.EmptyReferences()
	haystack := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		haystack = append(haystack, Key(r))
	}
	seen := map[string]bool{}
	for _, c := range candidates {
		key := Key(c.Text)
		if key == "" {
			continue
		}
		list := &out.Laws
		if c.Kind == KindCase {
			list = &out.Cases
		}
		if len(*list) >= MaxPerList {
			continue
		}
		if _, done := seen[key]; done {
			continue
		}
		ok := v.present(ctx, key, haystack)
		seen[key] = ok
		if ok {
			*list = append(*list, c.Text)
		}
	}
	return out
}

func (v *Verifier) present(ctx context.Context, key string, haystack []string) bool {
	for _, h := range haystack {
		if strings.Contains(h, key) {
			return true
		}
	}
	if v.scope == ScopeRetrieved || v.corpus == nil {
		return false
	}
	ok, err := v.corpus.ContainsText(ctx, key)
	if err != nil {
		v.log.Warn("corpus lookup failed; dropping candidate", "candidate", key, "error", err)
		return false
	}
	return ok
}

// FromChunk extracts the references literally present in a chunk's own text.
func FromChunk(x Extractor, text string) documents.ChunkReferences {
	refs := documents.ChunkReferences{Laws: []string{}, Cases: []string{}, Articles: []string{}}
	seen := map[string]bool{}
	for _, c := range x.Extract(text) {
		key := Key(c.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		switch c.Kind {
		case KindCase:
			refs.Cases = appendCapped(refs.Cases, c.Text)
		case KindArticle:
			refs.Articles = appendCapped(refs.Articles, c.Text)
		default:
			refs.Laws = appendCapped(refs.Laws, c.Text)
		}
	}
	return refs
}

func appendCapped(list []string, s string) []string {
	if len(list) >= MaxPerList {
		return list
	}
	return append(list, s)
}

var caseLawQueryRE = regexp.MustCompile(`(?i)\b(case|cases|precedent|precedents|authorities|authority|judgment|judgments|judgement|judgements|decision|decisions|ruling|rulings)\b`)

// IsCaseLawQuery reports whether the question asks for decided-case authority.
func IsCaseLawQuery(q string) bool {
	return caseLawQueryRE.MatchString(q)
}

// HasCaseText reports whether any text looks like it names a decided case.
func HasCaseText(texts []string) bool {
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), " v. ") {
			return true
		}
	}
	return false
}
