package documents

import "testing"

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"section 5":    "section 5",
		"100%":         `100\%`,
		"a_b":          `a\_b`,
		`back\slash`:   `back\\slash`,
		`mix_%\`:       `mix\_\%\\`,
	}
	for in, want := range cases {
		if got := EscapeLike(in); got != want {
			t.Fatalf("EscapeLike(%q): want=%q got=%q", in, want, got)
		}
	}
}
