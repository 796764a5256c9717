package wikilink

import "strings"

const (
	// Open and Close delimit a reference token in note text.
	Open  = "[["
	Close = "]]"

	// AliasSeparator splits a token into target and display alias.
	AliasSeparator = "|"
)

// Reference is one raw token as written between the delimiters.
type Reference struct {
	Raw    string // e.g. "Target|Alias"
	Target string // text before the first "|"
	Alias  string // "|Alias", pipe included, verbatim; empty when absent
}

// Parse splits a raw token on its first pipe.
func Parse(raw string) Reference {
	target, alias := SplitAlias(raw)
	return Reference{Raw: raw, Target: target, Alias: alias}
}

// SplitAlias returns the text before the first pipe and the remainder
// starting at that pipe. Later pipes stay in the alias untouched.
func SplitAlias(raw string) (target, alias string) {
	if i := strings.Index(raw, AliasSeparator); i >= 0 {
		return raw[:i], raw[i:]
	}
	return raw, ""
}

// Scan returns every raw token in text in first-occurrence order.
// Duplicates are kept; a text without references yields nil.
func Scan(text string) []string {
	var tokens []string
	for _, sp := range spans(text) {
		tokens = append(tokens, text[sp.tokStart:sp.tokEnd])
	}
	return tokens
}

// span locates one reference: text[start:end] is "[[token]]" and
// text[tokStart:tokEnd] is the token.
type span struct {
	start, end       int
	tokStart, tokEnd int
}

// spans finds references left to right. The first "]]" after an opening
// "[[" ends the token. A candidate whose token would be empty or cross a
// line break is abandoned and the search resumes one byte later.
func spans(text string) []span {
	var out []span
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], Open)
		if i < 0 {
			break
		}
		start := pos + i
		tokStart := start + len(Open)
		j := strings.Index(text[tokStart:], Close)
		if j < 0 {
			break
		}
		tokEnd := tokStart + j
		if j == 0 || strings.ContainsRune(text[tokStart:tokEnd], '\n') {
			pos = start + 1
			continue
		}
		out = append(out, span{start: start, end: tokEnd + len(Close), tokStart: tokStart, tokEnd: tokEnd})
		pos = tokEnd + len(Close)
	}
	return out
}

// ScanReferences is Scan followed by Parse on each token.
func ScanReferences(text string) []Reference {
	tokens := Scan(text)
	if tokens == nil {
		return nil
	}
	refs := make([]Reference, len(tokens))
	for i, tok := range tokens {
		refs[i] = Parse(tok)
	}
	return refs
}

// Format wraps a raw token in the reference delimiters.
func Format(raw string) string {
	return Open + raw + Close
}

// SplitSubpath separates a heading ("#Section") or block ("#^id") suffix
// from a target. The name part is what addresses a document.
func SplitSubpath(target string) (name, subpath string) {
	if i := strings.Index(target, "#"); i >= 0 {
		return target[:i], target[i:]
	}
	return target, ""
}
