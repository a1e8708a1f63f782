package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func legalText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("Under Section 35 of the Constitution a person arrested shall be brought before a court within a reasonable time. ")
		b.WriteString("In Okafor v. State the court applied s. 12 of the Act and held bail ought to be granted. ")
	}
	return b.String()
}

func TestSentencesRespectsLegalAbbreviations(t *testing.T) {
	got := Sentences("See Okafor v. State (2001) No. 4 at p. 12. Per Mr. J. Smith, the rule applies. Section 5 governs! Art. 36 is clear? Yes.")
	want := []string{
		"See Okafor v. State (2001) No. 4 at p. 12.",
		"Per Mr. J. Smith, the rule applies.",
		"Section 5 governs!",
		"Art. 36 is clear?",
		"Yes.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sentences:\nwant=%q\ngot=%q", want, got)
	}
}

func TestSentencesRequiresUpperCaseAfterBoundary(t *testing.T) {
	got := Sentences("Section 12. of the Act applies. \"The court\" agreed.")
	want := []string{"Section 12. of the Act applies.", "\"The court\" agreed."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sentences: want=%q got=%q", want, got)
	}
}

func TestSplitDeterministicContiguousBounded(t *testing.T) {
	c := New(Config{Size: 300, Overlap: 60})
	text := legalText(20)
	a := c.Split(text)
	b := c.Split(text)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Split is not deterministic")
	}
	if len(a) < 2 {
		t.Fatalf("expected several chunks, got=%d", len(a))
	}
	for i, ch := range a {
		if ch.Ordinal != i+1 {
			t.Fatalf("ordinal: want=%d got=%d", i+1, ch.Ordinal)
		}
		if n := utf8.RuneCountInString(ch.Text); n > 300 {
			t.Fatalf("chunk %d exceeds size: %d", ch.Ordinal, n)
		}
	}
}

func TestSplitSeedsOverlapFromPreviousChunk(t *testing.T) {
	c := New(Config{Size: 120, Overlap: 40})
	chunks := c.Split("Alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu. Nu xi omicron pi rho sigma tau upsilon phi chi psi omega end.")
	if len(chunks) != 2 {
		t.Fatalf("chunks: want=2 got=%d (%q)", len(chunks), chunks)
	}
	prevWords := strings.Fields(chunks[0].Text)
	tail := prevWords[len(prevWords)-1]
	if !strings.Contains(chunks[1].Text, tail+" Nu xi") {
		t.Fatalf("second chunk should start with the tail of the first: %q", chunks[1].Text)
	}
	seed := strings.TrimSuffix(chunks[1].Text, " Nu xi omicron pi rho sigma tau upsilon phi chi psi omega end.")
	if utf8.RuneCountInString(seed) > 40 {
		t.Fatalf("overlap seed too long: %q", seed)
	}
}

func TestSplitOversizedSentenceEmittedWhole(t *testing.T) {
	long := "The " + strings.Repeat("appellant ", 40) + "appealed."
	text := "Short opening sentence. " + long + " Closing remark here."
	c := New(Config{Size: 100, Overlap: 20})
	chunks := c.Split(text)
	found := false
	for _, ch := range chunks {
		n := utf8.RuneCountInString(ch.Text)
		if n > 100 {
			if ch.Text != long {
				t.Fatalf("oversized chunk must be exactly the long sentence: %q", ch.Text)
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("long sentence was dropped or split: %q", chunks)
	}
	if last := chunks[len(chunks)-1].Text; !strings.HasSuffix(last, "Closing remark here.") {
		t.Fatalf("last chunk: got=%q", last)
	}
}

func TestSplitSingleChunkAndEmpty(t *testing.T) {
	c := New(Config{})
	text := "Section 5 of the Evidence Act governs admissibility. See also Section 6."
	chunks := c.Split(text)
	if len(chunks) != 1 || chunks[0].Ordinal != 1 || chunks[0].Text != text {
		t.Fatalf("single chunk: got=%q", chunks)
	}
	if got := c.Split("   \n\t "); got != nil {
		t.Fatalf("empty: want=nil got=%v", got)
	}
}

func TestNewClampsConfig(t *testing.T) {
	c := New(Config{Size: 100, Overlap: 500})
	if c.Size() != 100 || c.Overlap() != 20 {
		t.Fatalf("clamp: want=100/20 got=%d/%d", c.Size(), c.Overlap())
	}
	c = New(Config{Size: -1, Overlap: -1})
	if c.Size() != DefaultSize || c.Overlap() != 0 {
		t.Fatalf("defaults: got=%d/%d", c.Size(), c.Overlap())
	}
}
