package hierarchy

import (
	"sort"
	"strings"
	"unicode"

	implicitmatcher "github.com/kittclouds/kgraph/pkg/implicit-matcher"
)

// genericNames blocks subdivision labels that say nothing about their
// contents — an LLM asked to split a bucket into subcategories reaches for
// these constantly when it can't find a real pattern.
var genericNames = map[string]bool{
	"other": true, "misc": true, "diverse": true, "various": true,
	"uncategorized": true, "unclassified": true, "general": true,
	"remaining": true, "leftover": true,
}

// isGenericName reports whether a proposed subcategory label is too vague
// to keep.
func isGenericName(label string) bool {
	canon := implicitmatcher.CanonicalizeForMatch(label)
	if genericNames[canon] {
		return true
	}
	for word := range genericNames {
		if canon == word {
			return true
		}
	}
	return false
}

// repairGenericName replaces a rejected label with one derived from the
// titles actually assigned to it: a dominant proper noun if one recurs,
// else the most frequent non-stopword common word, else a disambiguated
// fallback ("Topic N") so two repaired siblings never collide.
func repairGenericName(memberTitles []string, fallbackIndex int) string {
	if name := dominantProperNoun(memberTitles); name != "" {
		return name
	}
	if name := frequentCommonWord(memberTitles); name != "" {
		return strings.Title(name)
	}
	return disambiguatedFallback(fallbackIndex)
}

func dominantProperNoun(titles []string) string {
	counts := map[string]int{}
	for _, t := range titles {
		for _, word := range strings.Fields(t) {
			trimmed := strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
			if len(trimmed) < 3 {
				continue
			}
			if !unicode.IsUpper(rune(trimmed[0])) {
				continue
			}
			canon := implicitmatcher.CanonicalizeForMatch(trimmed)
			if implicitmatcher.StopWords[canon] {
				continue
			}
			counts[trimmed]++
		}
	}
	return topByCount(counts, len(titles)/2+1)
}

func frequentCommonWord(titles []string) string {
	counts := map[string]int{}
	for _, t := range titles {
		for _, tok := range implicitmatcher.TokenizeNorm(t) {
			if len(tok) < 4 {
				continue
			}
			counts[tok]++
		}
	}
	return topByCount(counts, 1)
}

// topByCount returns the highest-count key meeting minCount, or "" if none
// qualifies. Ties break alphabetically for determinism.
func topByCount(counts map[string]int, minCount int) string {
	type kc struct {
		word  string
		count int
	}
	list := make([]kc, 0, len(counts))
	for w, c := range counts {
		list = append(list, kc{w, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].word < list[j].word
	})
	if len(list) == 0 || list[0].count < minCount {
		return ""
	}
	return list[0].word
}

func disambiguatedFallback(index int) string {
	return "Topic " + itoa(index+1)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
