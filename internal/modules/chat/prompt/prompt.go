package prompt

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultHistoryTurns          = 10
	DefaultMaxTokens             = 5500
	DefaultTruncatedContextChars = 3000
	DefaultExcerptChars          = 600

	TruncationSuffix = "... [truncated context]"
)

const rules = `Rules (STRICT):
- Cite ONLY provisions/sections that appear in the corpus context above.
- Do NOT cite cases unless they appear in the corpus context.
- If the user asks for cases and none are in corpus, state that no verified cases are in the corpus and provide statutory analysis only.
- If a specific section/citation is not present in the retrieved text, do not fabricate it; say 'Not available in corpus.'
- Lead with a one-sentence direct rule; then short analysis grounded in the corpus; then practical next steps.
- No apologies or disclaimers unless the user explicitly clarifies a prior misunderstanding; in that case, begin with a single brief apology (one line) and proceed.
- End with 'Suggested next questions' (2-3 bullets) that you can answer from the above corpus context only; if insufficient corpus, omit this section.`

const apologyLine = `If the user clarified an abbreviation (e.g., 'ATM' meaning 'awaiting trial inmate/man'), begin with: 'Thanks for the clarification. I misunderstood earlier.'`

const answerFormat = `Answer format: (1) Direct rule in one sentence. (2) Focused legal basis with corpus citations. (3) Short practical next steps. (4) Suggested next questions (only if answerable from corpus).`

const (
	historyHeader = "Previous conversation:"
	contextHeader = "Corpus context (cite ONLY from these; do NOT invent citations):"
)

type Turn struct {
	Role    string
	Content string
}

// Excerpt is one retrieved chunk; Source is the originating filename.
type Excerpt struct {
	Source string
	Text   string
}

type Input struct {
	Country  string
	Question string
	History  []Turn
	Context  []Excerpt
	Apology  bool
}

type Output struct {
	Prompt          string
	EstimatedTokens int
	Truncated       bool
}

type Config struct {
	HistoryTurns          int
	MaxTokens             int
	TruncatedContextChars int
	ExcerptChars          int
}

type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.TruncatedContextChars <= 0 {
		cfg.TruncatedContextChars = DefaultTruncatedContextChars
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = DefaultExcerptChars
	}
	return &Builder{cfg: cfg}
}

// Build assembles persona, rules, optional apology, history, context, question and answer
// format in that order. When the estimate exceeds MaxTokens the context block alone is cut to
// TruncatedContextChars and the prompt is rebuilt once.
func (b *Builder) Build(in Input) Output {
	history := b.historyBlock(in.History)
	context := b.contextBlock(in.Context)

	p := assemble(in, history, context)
	tokens := EstimateTokens(p)
	if tokens <= b.cfg.MaxTokens || context == "" {
		return Output{Prompt: p, EstimatedTokens: tokens}
	}
	context = truncateRunes(context, b.cfg.TruncatedContextChars) + TruncationSuffix
	p = assemble(in, history, context)
	return Output{Prompt: p, EstimatedTokens: EstimateTokens(p), Truncated: true}
}

func assemble(in Input, history, context string) string {
	sections := []string{
		"You are a " + titleCase(in.Country) + " legal expert AI assistant. Provide a strictly corpus-grounded answer.",
		rules,
	}
	if in.Apology {
		sections = append(sections, apologyLine)
	}
	if history != "" {
		sections = append(sections, historyHeader+"\n"+history)
	}
	if context != "" {
		sections = append(sections, contextHeader+"\n"+context)
	}
	sections = append(sections, "Question: "+strings.TrimSpace(in.Question), answerFormat)
	return strings.Join(sections, "\n\n")
}

func (b *Builder) historyBlock(turns []Turn) string {
	if len(turns) > b.cfg.HistoryTurns {
		turns = turns[len(turns)-b.cfg.HistoryTurns:]
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		role := "User"
		if t.Role != "user" {
			role = "Assistant"
		}
		lines = append(lines, role+": "+strings.TrimSpace(t.Content))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) contextBlock(excerpts []Excerpt) string {
	lines := make([]string, 0, len(excerpts))
	for _, e := range excerpts {
		lines = append(lines, "- ["+filepath.Base(e.Source)+"] "+truncateRunes(e.Text, b.cfg.ExcerptChars))
	}
	return strings.Join(lines, "\n")
}

// EstimateTokens approximates tokens as one per four characters, rounded up.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}

var atmRE = regexp.MustCompile(`(?i)\batm\b`)

var detentionTerms = []string{"detain", "remand", "awaiting trial", "custody"}

// NeedsApology detects a user clarifying an earlier misunderstanding.
func NeedsApology(history []Turn, message string) bool {
	text := strings.ToLower(message)
	if strings.Contains(text, "i mean") {
		return true
	}
	if !atmRE.MatchString(text) {
		return false
	}
	recent := history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for _, t := range recent {
		c := strings.ToLower(t.Content)
		for _, kw := range detentionTerms {
			if strings.Contains(c, kw) {
				return true
			}
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
