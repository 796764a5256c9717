// Package wikilink extracts [[double-bracket]] references from note text,
// splits them into target and display alias, and rewrites them in place.
package wikilink
