package normalize

import (
	"unicode"
	"unicode/utf8"

	"github.com/linkmend/linkmend/internal/wikilink"
)

// Rules selects the textual transformations applied to a target.
type Rules struct {
	Capitalize  bool `yaml:"capitalize" json:"capitalize"`
	Singularize bool `yaml:"singularize" json:"singularize"`
}

// Enabled reports whether any rule is switched on.
func (r Rules) Enabled() bool {
	return r.Capitalize || r.Singularize
}

// Normalize returns the canonical form of a raw token: the normalized
// target with the original alias reattached verbatim.
func Normalize(raw string, rules Rules) string {
	target, alias := wikilink.SplitAlias(raw)
	return Target(target, rules) + alias
}

// Target applies the rules to a bare target. A heading or block subpath
// ("#Section") is kept as written.
func Target(target string, rules Rules) string {
	name, subpath := wikilink.SplitSubpath(target)
	if name == "" {
		return target
	}
	if rules.Capitalize {
		name = Capitalize(name)
	}
	if rules.Singularize {
		name = Singularize(name)
	}
	return name + subpath
}

// Capitalize uppercases the first rune and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	up := unicode.ToUpper(r)
	if up == r {
		return s
	}
	return string(up) + s[size:]
}
