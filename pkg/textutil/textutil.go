package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeTerm lowercases a search term, strips the quotes of an exact
// phrase and collapses runs of whitespace to one space.
func NormalizeTerm(term string) string {
	term = strings.ToLower(term)
	term = strings.Trim(term, " \n\t")
	if len(term) >= 2 && strings.HasPrefix(term, `"`) && strings.HasSuffix(term, `"`) {
		term = term[1 : len(term)-1]
	}
	term = whitespaceRegex.ReplaceAllString(strings.TrimSpace(term), " ")
	return term
}
