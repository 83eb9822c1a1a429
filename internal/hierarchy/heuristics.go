package hierarchy

import (
	"strings"
	"unicode"

	implicitmatcher "github.com/kittclouds/kgraph/pkg/implicit-matcher"
)

// minProjectHintOccurrences is how many sibling labels a capitalized token
// must appear in before it is surfaced as a project/product hint (§4.6
// step C.2): one-off capitalization is just a sentence start, a recurring
// one is a name worth keeping as its own category.
const minProjectHintOccurrences = 2

// detectProjectNames finds capitalized tokens that recur across a
// container's children — the heuristic the spec calls out for catching
// project or product names an LLM should keep as a single category rather
// than splitting across buckets.
func detectProjectNames(labels []string) []string {
	counts := map[string]int{}
	order := []string{}
	for _, label := range labels {
		seen := map[string]bool{}
		for _, word := range strings.Fields(label) {
			trimmed := strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
			if len(trimmed) < 3 || !unicode.IsUpper(rune(trimmed[0])) {
				continue
			}
			canon := implicitmatcher.CanonicalizeForMatch(trimmed)
			if implicitmatcher.StopWords[canon] || seen[trimmed] {
				continue
			}
			seen[trimmed] = true
			if counts[trimmed] == 0 {
				order = append(order, trimmed)
			}
			counts[trimmed]++
		}
	}

	var hints []string
	for _, word := range order {
		if counts[word] >= minProjectHintOccurrences {
			hints = append(hints, word)
		}
	}
	return hints
}
