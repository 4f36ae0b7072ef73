package automaton

import (
	"strings"
	"testing"
)

func FuzzAutomaton(f *testing.F) {
	f.Add("a,ab,b", "ab")
	f.Add("aa", "aaa")
	f.Add("he,she,his,hers", "ushers")
	f.Add("", "")
	f.Add("x,,y", "xyxy")

	f.Fuzz(func(t *testing.T, dict, text string) {
		if len(dict) > 200 || len(text) > 1000 {
			return
		}
		var patterns []string
		for _, p := range strings.Split(dict, ",") {
			if p != "" {
				patterns = append(patterns, p)
			}
		}

		a, entries := build(patterns...)
		act := activateAll(a, entries)
		if got, want := countMatches(a, act, text), bruteCount(patterns, text); got != want {
			t.Fatalf("patterns %q text %q: got %d, want %d", patterns, text, got, want)
		}

		// every transition agrees with the uncached fallback
		cur := Root
		for i := 0; i < len(text); i++ {
			next := a.Goto(cur, text[i])
			if want := naiveGoto(a, cur, text[i]); next != want {
				t.Fatalf("goto(%d, %q) = %d, want %d", cur, text[i], next, want)
			}
			cur = next
		}
	})
}
