package wikilink

import "strings"

// Rewrite replaces every [[original]] whose token has an entry in
// replacements with [[replacement]]. Text outside references is copied
// unchanged. It returns the new text and the number of tokens replaced.
func Rewrite(text string, replacements map[string]string) (string, int) {
	if len(replacements) == 0 {
		return text, 0
	}
	var b strings.Builder
	b.Grow(len(text))
	count, last := 0, 0
	for _, sp := range spans(text) {
		raw := text[sp.tokStart:sp.tokEnd]
		repl, ok := replacements[raw]
		if !ok || repl == raw {
			continue
		}
		b.WriteString(text[last:sp.start])
		b.WriteString(Format(repl))
		last = sp.end
		count++
	}
	b.WriteString(text[last:])
	return b.String(), count
}
