package formatting

import (
	"regexp"
	"strings"
)

var disclaimerRE = regexp.MustCompile(`(?im)(?:` + strings.Join([]string{
	`I don't have access to`,
	`I cannot provide`,
	`Please consult`,
	`I am not a lawyer`,
	`This is not legal advice`,
	`I cannot give legal advice`,
	`Please seek professional`,
	`I don't have recent`,
	`I cannot cite`,
	`Based on my training`,
}, "|") + `)[^\n]*`)

var (
	sectionRE    = regexp.MustCompile(`\*{0,2}\bSection\s+\d+[A-Za-z]?\*{0,2}`)
	blankLinesRE = regexp.MustCompile(`\n{3,}`)
)

// Format removes boilerplate disclaimers (to end of line) and bolds "Section N" citations.
func Format(text string) string {
	text = RemoveDisclaimers(text)
	return BoldSections(text)
}

func RemoveDisclaimers(text string) string {
	text = disclaimerRE.ReplaceAllString(text, "")
	text = blankLinesRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func BoldSections(text string) string {
	return sectionRE.ReplaceAllStringFunc(text, func(m string) string {
		core := strings.Trim(m, "*")
		return "**" + core + "**"
	})
}
