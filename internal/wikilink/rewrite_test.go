package wikilink

import "testing"

func TestRewrite(t *testing.T) {
	text := "See [[dogs]], [[Cat|my cat]] and [[dogs]] again.\n[[birds|flock]]"
	repl := map[string]string{
		"dogs":         "Dog",
		"birds|flock":  "Bird|flock",
		"Cat|my cat":   "Cat|my cat",
		"unused token": "Unused",
	}

	got, n := Rewrite(text, repl)
	want := "See [[Dog]], [[Cat|my cat]] and [[Dog]] again.\n[[Bird|flock]]"
	if got != want {
		t.Errorf("Rewrite() text = %q, want %q", got, want)
	}
	if n != 3 {
		t.Errorf("Rewrite() count = %d, want 3", n)
	}
}

func TestRewriteNoReplacements(t *testing.T) {
	text := "keep [[as is]]"
	got, n := Rewrite(text, nil)
	if got != text || n != 0 {
		t.Errorf("Rewrite(nil) = %q, %d; want unchanged", got, n)
	}
}
