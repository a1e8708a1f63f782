package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

type Chunk struct {
	Ordinal int
	Text    string
}

// Config sizes are counted in characters (runes).
type Config struct {
	Size    int
	Overlap int
}

type Chunker struct {
	size    int
	overlap int
}

func New(cfg Config) *Chunker {
	size := cfg.Size
	if size <= 0 {
		size = DefaultSize
	}
	overlap := cfg.Overlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split packs sentences into chunks of at most Size characters. Each chunk after the
// first starts with a word tail of its predecessor no longer than Overlap. A sentence
// longer than Size becomes a chunk of its own. Ordinals start at 1.
func (c *Chunker) Split(text string) []Chunk {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []Chunk
	emit := func(s string) {
		out = append(out, Chunk{Ordinal: len(out) + 1, Text: s})
	}

	buf := ""
	for _, s := range sentences {
		if buf == "" {
			buf = s
			continue
		}
		if runeLen(buf)+1+runeLen(s) <= c.size {
			buf += " " + s
			continue
		}
		emit(buf)
		seed := wordTail(buf, min(c.overlap, c.size-1-runeLen(s)))
		if seed == "" {
			buf = s
		} else {
			buf = seed + " " + s
		}
	}
	emit(buf)
	return out
}

// wordTail returns the longest run of trailing whole words of s whose length is at most limit.
func wordTail(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	words := strings.Fields(s)
	n := 0
	start := len(words)
	for i := len(words) - 1; i >= 0; i-- {
		add := runeLen(words[i])
		if start < len(words) {
			add++
		}
		if n+add > limit {
			break
		}
		n += add
		start = i
	}
	return strings.Join(words[start:], " ")
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// Abbreviations that end with a period but never end a sentence in legal prose.
var abbreviations = map[string]struct{}{
	"v.": {}, "vs.": {}, "no.": {}, "nos.": {}, "s.": {}, "ss.": {}, "sec.": {}, "secs.": {},
	"art.": {}, "arts.": {}, "cap.": {}, "ch.": {}, "pt.": {}, "para.": {}, "paras.": {},
	"mr.": {}, "mrs.": {}, "ms.": {}, "dr.": {}, "hon.": {}, "ltd.": {}, "co.": {}, "inc.": {},
	"e.g.": {}, "i.e.": {}, "cf.": {}, "id.": {}, "j.": {}, "jj.": {}, "jsc.": {}, "jca.": {},
	"san.": {}, "esq.": {}, "plc.": {}, "vol.": {}, "rev.": {}, "ors.": {}, "anor.": {},
}

// Sentences splits whitespace-normalised text at '.', '!' or '?' followed by whitespace
// and an upper-case letter, except after known abbreviations and single-letter initials.
func Sentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	rs := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(rs); i++ {
		if rs[i] != '.' && rs[i] != '!' && rs[i] != '?' {
			continue
		}
		end := i + 1
		for end < len(rs) && isCloser(rs[end]) {
			end++
		}
		if end+1 >= len(rs) || rs[end] != ' ' {
			continue
		}
		next := rs[end+1]
		if isOpener(next) && end+2 < len(rs) {
			next = rs[end+2]
		}
		if !unicode.IsUpper(next) {
			continue
		}
		if rs[i] == '.' && isAbbreviation(rs[start:i+1]) {
			continue
		}
		out = append(out, string(rs[start:end]))
		start = end + 1
		i = end
	}
	if start < len(rs) {
		out = append(out, string(rs[start:]))
	}
	return out
}

func isAbbreviation(sentence []rune) bool {
	j := len(sentence) - 1
	for j > 0 && sentence[j-1] != ' ' && !isOpener(sentence[j-1]) {
		j--
	}
	word := string(sentence[j:])
	if _, ok := abbreviations[strings.ToLower(word)]; ok {
		return true
	}
	letters := []rune(word)
	return len(letters) == 2 && unicode.IsLetter(letters[0])
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

func isOpener(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '“', '‘':
		return true
	}
	return false
}
