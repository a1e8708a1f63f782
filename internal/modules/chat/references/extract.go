package references

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindLaw     Kind = "law"
	KindCase    Kind = "case"
	KindArticle Kind = "article"
)

// Candidate is a citation-shaped span of text. Text is the literal match with whitespace collapsed.
type Candidate struct {
	Kind Kind
	Text string
}

// Extractor finds citation candidates in free text.
type Extractor interface {
	Extract(text string) []Candidate
}

const (
	num      = `\d+[A-Za-z]?(?:\s*\(\d+[A-Za-z]?\))*`
	numList  = num + `(?:\s*(?:,|and|to|-|–)\s*` + num + `)*`
	titleW   = `(?:[A-Z][\w'’&-]*|of|and|for|on|the|in)`
	caseWord = `(?:(?:Ltd|Co|Inc|Plc|Ors|Anor|Nig)\.|[A-Z][\w'’&-]*)`
	caseJoin = `(?:of|&|the|for)`
)

var (
	lawRE = regexp.MustCompile(
		`\b(?i:sections?)\s+` + numList + `\s+of\s+the\s+(?:` + titleW + `\s+){0,10}?(?:Act|Law|Code|Regulations?|Decree|Edict|Constitution)\b`)
	actFirstRE = regexp.MustCompile(
		`\b(?:[A-Z][\w'’&-]*\s+){1,8}?(?:Act|Law|Code)(?:,?\s+\d{4})?,?\s+(?i:sections?)\s+` + numList)
	articleRE = regexp.MustCompile(
		`\b(?i:articles?)\s+` + numList + `\s+of\s+the\s+(?:` + titleW + `\s+){0,10}?(?:Constitution|Charter|Treaty|Convention)\b`)
	caseRE = regexp.MustCompile(
		`\b` + caseWord + `(?:\s+(?:` + caseWord + `|` + caseJoin + `))*\s+(?:v|vs)\.\s+` + caseWord + `(?:\s+(?:` + caseWord + `|` + caseJoin + `))*`)
)

var leadingConnectives = map[string]struct{}{
	"in": {}, "see": {}, "per": {}, "cf": {}, "also": {}, "and": {}, "under": {}, "the": {},
}

var trailingJoiners = map[string]struct{}{
	"of": {}, "and": {}, "&": {}, "the": {}, "for": {}, "in": {},
}

type regexExtractor struct{}

// NewRegexExtractor matches statute sections, constitutional articles and "X v. Y" case names.
func NewRegexExtractor() Extractor { return regexExtractor{} }

func (regexExtractor) Extract(text string) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []Candidate
	for _, m := range lawRE.FindAllString(text, -1) {
		out = append(out, Candidate{Kind: KindLaw, Text: collapse(m)})
	}
	for _, m := range actFirstRE.FindAllString(text, -1) {
		out = append(out, Candidate{Kind: KindLaw, Text: strings.Join(trimLeading(strings.Fields(m)), " ")})
	}
	for _, m := range articleRE.FindAllString(text, -1) {
		out = append(out, Candidate{Kind: KindArticle, Text: collapse(m)})
	}
	for _, m := range caseRE.FindAllString(text, -1) {
		if c := trimCaseName(m); c != "" {
			out = append(out, Candidate{Kind: KindCase, Text: c})
		}
	}
	return out
}

// trimLeading drops sentence connectives ("In", "See", "The") the capitalised-word patterns pick up.
func trimLeading(words []string) []string {
	for len(words) > 0 {
		w := strings.ToLower(strings.Trim(words[0], ",;:"))
		if _, ok := leadingConnectives[w]; !ok {
			break
		}
		words = words[1:]
	}
	return words
}

func trimCaseName(m string) string {
	words := trimLeading(strings.Fields(m))
	for len(words) > 0 {
		if _, ok := trailingJoiners[strings.ToLower(words[len(words)-1])]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	s := strings.TrimRight(strings.Join(words, " "), ".,;:")
	lower := strings.ToLower(s)
	i := strings.Index(lower, " v. ")
	if i < 0 {
		i = strings.Index(lower, " vs. ")
	}
	if i <= 0 || strings.HasSuffix(lower, " v") || strings.HasSuffix(lower, " vs") {
		return ""
	}
	return s
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key is the case- and whitespace-insensitive identity used for dedup.
func Key(s string) string {
	return strings.ToLower(collapse(s))
}
