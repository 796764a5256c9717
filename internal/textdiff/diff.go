// Package textdiff computes line diffs between two versions of a note and
// renders them in unified form for previews.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type Kind int

const (
	Context Kind = iota
	Added
	Removed
)

// Line is one line of a diff. OldLine and NewLine are 1-based and zero
// when the line does not exist on that side.
type Line struct {
	Kind    Kind
	Text    string
	OldLine int
	NewLine int
}

// DefaultContext is the number of unchanged lines kept around a change.
const DefaultContext = 2

// Lines diffs before and after line by line.
func Lines(before, after string) []Line {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []Line
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		chunk := strings.Split(d.Text, "\n")
		if n := len(chunk); n > 0 && chunk[n-1] == "" {
			chunk = chunk[:n-1]
		}
		for _, text := range chunk {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				lines = append(lines, Line{Kind: Context, Text: text, OldLine: oldLine, NewLine: newLine})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				lines = append(lines, Line{Kind: Removed, Text: text, OldLine: oldLine})
				oldLine++
			case diffmatchpatch.DiffInsert:
				lines = append(lines, Line{Kind: Added, Text: text, NewLine: newLine})
				newLine++
			}
		}
	}
	return lines
}

// Changed reports whether any line differs.
func Changed(lines []Line) bool {
	for _, l := range lines {
		if l.Kind != Context {
			return true
		}
	}
	return false
}

// Unified renders the changes between before and after as a unified diff
// labelled with name, keeping contextLines unchanged lines around each
// change. It returns "" when nothing changed.
func Unified(name, before, after string, contextLines int) string {
	if contextLines < 0 {
		contextLines = DefaultContext
	}
	lines := Lines(before, after)
	if !Changed(lines) {
		return ""
	}

	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.Kind == Context {
			continue
		}
		for j := max(0, i-contextLines); j <= min(len(lines)-1, i+contextLines); j++ {
			keep[j] = true
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", name, name)
	oldAt, newAt := 1, 1
	for i := 0; i < len(lines); {
		if !keep[i] {
			oldAt, newAt = advance(lines[i], oldAt, newAt)
			i++
			continue
		}
		end := i
		for end < len(lines) && keep[end] {
			end++
		}
		writeHunk(&b, lines[i:end], oldAt, newAt)
		for _, l := range lines[i:end] {
			oldAt, newAt = advance(l, oldAt, newAt)
		}
		i = end
	}
	return b.String()
}

func advance(l Line, oldAt, newAt int) (int, int) {
	switch l.Kind {
	case Context:
		return oldAt + 1, newAt + 1
	case Removed:
		return oldAt + 1, newAt
	default:
		return oldAt, newAt + 1
	}
}

func writeHunk(b *strings.Builder, hunk []Line, oldAt, newAt int) {
	var oldCount, newCount int
	for _, l := range hunk {
		if l.Kind != Added {
			oldCount++
		}
		if l.Kind != Removed {
			newCount++
		}
	}
	if oldCount == 0 {
		oldAt--
	}
	if newCount == 0 {
		newAt--
	}
	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", oldAt, oldCount, newAt, newCount)
	for _, l := range hunk {
		switch l.Kind {
		case Added:
			b.WriteString("+")
		case Removed:
			b.WriteString("-")
		default:
			b.WriteString(" ")
		}
		b.WriteString(l.Text)
		b.WriteString("\n")
	}
}
