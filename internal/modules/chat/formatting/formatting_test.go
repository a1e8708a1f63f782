package formatting

import "testing"

func TestFormat(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{
			"disclaimer tail removed",
			"Bail is available under Section 35. Please consult a lawyer for details.\nNext steps follow.",
			"Bail is available under **Section 35**. \nNext steps follow.",
		},
		{
			"whole line disclaimer",
			"I am not a lawyer, but here goes.\n\n\n\nSection 5 of the Evidence Act applies.",
			"**Section 5** of the Evidence Act applies.",
		},
		{
			"already bold is not doubled",
			"See **Section 12** and Section 12A.",
			"See **Section 12** and **Section 12A**.",
		},
		{
			"case insensitive disclaimer",
			"Rule.\nbased on my training data, probably.",
			"Rule.",
		},
	}
	for _, tc := range cases {
		if got := Format(tc.in); got != tc.want {
			t.Fatalf("%s:\nwant=%q\ngot=%q", tc.name, tc.want, got)
		}
	}
}
