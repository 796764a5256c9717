package normalize

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
)

// Words that end like plurals but are singular already.
var singularExceptions = map[string]bool{
	"canvas": true, "atlas": true, "chaos": true, "lens": true, "alias": true,
	"physics": true, "mathematics": true, "economics": true, "linguistics": true,
	"ethics": true, "politics": true,
	"news": true, "series": true, "species": true,
}

type singularRule struct {
	find    *regexp.Regexp
	replace string
}

func rule(find, replace string) singularRule {
	return singularRule{find: regexp.MustCompile("(?i)" + find), replace: replace}
}

// singularOverrides are tried in order before the stock inflection rules;
// the first match wins. They are local to this package and leave the
// inflection tables shared with other importers untouched.
var singularOverrides = []singularRule{
	rule("^(camp|bon|foc|cens|chor|circ|gen|corp|apparat|syllab|stimul|radi|nex|thesaur|cact|fung|lot|surpl|consens|prospect)us(es)?$", "${1}us"),
	rule("^(ax|oas|emphas|hypothes|synthes|genes|ellips)is$", "${1}is"),
	rule("(a)$", "${1}"), // data, agenda, Asia: no "-um" rewrite for titles
	rule("^(kn|w|l)ives$", "${1}ife"),
	rule("^(lea|thie|loa)ves$", "${1}f"),
	rule("(ave|ove|ive|eve|rve)s$", "${1}"),
}

// Singularize reduces an English plural to its singular form. Matching is
// case-insensitive and the case of the surviving stem is kept. Only the
// last word of a multi-word target is inflected, so "Reading lists"
// becomes "Reading list".
func Singularize(s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	i := strings.LastIndexAny(s, " /") + 1
	head, word := s[:i], s[i:]
	if word == "" {
		return s
	}
	return head + singularWord(word)
}

func singularWord(word string) string {
	if singularExceptions[strings.ToLower(word)] {
		return word
	}
	for _, r := range singularOverrides {
		if r.find.MatchString(word) {
			return r.find.ReplaceAllString(word, r.replace)
		}
	}
	return inflection.Singular(word)
}
