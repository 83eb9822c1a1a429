// Package implicitmatcher provides a reusable Aho-Corasick text canonicalizer
// and dictionary matcher. The automaton construction and canonicalization
// rules are carried over unchanged from the teacher's narrative entity
// scanner. In this module CanonicalizeForMatch, TokenizeNorm and StopWords
// are used by the classifier, the TF-IDF clusterer, the local embedder and
// the hierarchy builder's naming heuristics. The symbol dictionary
// (Compile, Lookup, Scan) and TokenizeWithOffsets have no caller here; the
// code importer (internal/codeimport) does not use this package.
package implicitmatcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
)

// isJoiner returns true for punctuation that commonly appears INSIDE
// identifiers and phrases worth keeping coherent during matching: "don't",
// "snake_case", "Type::method", "module/path".
func isJoiner(r rune) bool {
	switch r {
	case '\'', '’', '‘',
		'-', '–', '—',
		'·', '.', '_', '/', '#', '&', ':':
		return true
	default:
		return false
	}
}

func isSeparator(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || isJoiner(r) {
		return false
	}
	return true
}

// CanonicalizeForMatch lowercases text, folds curly quotes/dashes to their
// plain forms, and collapses every run of separator characters to a single
// space. It is the one normalizer shared by pattern compilation and text
// scanning, so a cue phrase like "so, basically" matches "so basically" and
// a doc reference like "Foo::Bar" matches a compiled "foo::bar" pattern.
func CanonicalizeForMatch(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := foldRune(ch)
		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteRune(' ')
			lastWasSpace = true
		}
	}

	result := out.String()
	if len(result) > 0 && result[len(result)-1] == ' ' {
		result = result[:len(result)-1]
	}
	return result
}

func foldRune(ch rune) rune {
	c := unicode.ToLower(ch)
	switch c {
	case '’', '‘':
		return '\''
	case '–', '—':
		return '-'
	default:
		return c
	}
}

// Tok is a canonicalized token with its byte span in the original text.
type Tok struct {
	Text  string
	Start int
	End   int
}

// TokenizeWithOffsets splits text on separators, canonicalizing each token
// while preserving the original byte offsets, so a matched token can be
// anchored back to its position in the source text.
func TokenizeWithOffsets(s string) []Tok {
	out := make([]Tok, 0, 64)

	i := 0
	for i < len(s) {
		for i < len(s) {
			r, w := utf8.DecodeRuneInString(s[i:])
			if !isSeparator(r) {
				break
			}
			i += w
		}
		start := i

		for i < len(s) {
			r, w := utf8.DecodeRuneInString(s[i:])
			if isSeparator(r) {
				break
			}
			i += w
		}
		end := i

		if start < end {
			out = append(out, Tok{Text: CanonicalizeForMatch(s[start:end]), Start: start, End: end})
		}
	}
	return out
}

// StopWords is a small built-in filter list, layered beneath the more
// complete orsinium-labs/stopwords corpus used by the clusterer (§4.5) — kept
// here as a lightweight backstop (TokenizeNorm, the hierarchy naming
// heuristics) that needs no larger dependency for a handful of
// honorifics/articles.
var StopWords = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"the": true, "of": true, "and": true, "a": true, "an": true,
	"to": true, "in": true, "on": true, "for": true, "at": true, "by": true,
	"is": true, "it": true, "as": true, "be": true, "was": true,
	"are": true, "been": true, "with": true, "from": true, "into": true,
	"that": true, "this": true, "has": true, "have": true, "had": true,
}

// TokenizeNorm splits, canonicalizes, and drops stopwords.
func TokenizeNorm(text string) []string {
	words := strings.Fields(CanonicalizeForMatch(text))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" && !StopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

// Symbol is one entry compiled into a RuntimeDictionary: a code item
// (function, type, struct, …) that documentation mentions can be resolved
// against.
type Symbol struct {
	ID      string
	Name    string
	Aliases []string
}

// RuntimeDictionary is a single Aho-Corasick automaton serving both exact
// lookup (does this canonical string name a known symbol?) and full-text
// scanning (which known symbols does this doc paragraph mention?).
type RuntimeDictionary struct {
	ac           *ahocorasick.Automaton
	patternToIDs [][]string
	patternIndex map[string]int
	idToSymbol   map[string]*Symbol
	patterns     []string
}

// Compile builds a RuntimeDictionary from a set of code symbols. Each
// symbol's name and any explicit aliases (qualifier-stripped forms, e.g.
// "method" from "Type::method") become matchable surface forms.
func Compile(symbols []Symbol) (*RuntimeDictionary, error) {
	d := &RuntimeDictionary{
		patternIndex: make(map[string]int),
		idToSymbol:   make(map[string]*Symbol),
	}

	for _, sym := range symbols {
		s := sym
		d.idToSymbol[s.ID] = &s

		surfaces := append([]string{s.Name}, s.Aliases...)
		for _, surface := range surfaces {
			key := CanonicalizeForMatch(surface)
			if key == "" {
				continue
			}
			if idx, ok := d.patternIndex[key]; ok {
				d.patternToIDs[idx] = appendUnique(d.patternToIDs[idx], s.ID)
				continue
			}
			idx := len(d.patterns)
			d.patterns = append(d.patterns, key)
			d.patternIndex[key] = idx
			d.patternToIDs = append(d.patternToIDs, []string{s.ID})
		}
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(d.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	d.ac = automaton
	return d, nil
}

// Lookup resolves an exact canonicalized surface form to its symbol IDs.
func (d *RuntimeDictionary) Lookup(surface string) []string {
	idx, ok := d.patternIndex[CanonicalizeForMatch(surface)]
	if !ok {
		return nil
	}
	return d.patternToIDs[idx]
}

// Symbol returns the registered Symbol for an ID, or nil.
func (d *RuntimeDictionary) Symbol(id string) *Symbol {
	return d.idToSymbol[id]
}

// Match is one scan hit, with offsets into the original (uncanonicalized)
// text so callers can report where a reference was found.
type Match struct {
	Start       int
	End         int
	MatchedText string
	SymbolIDs   []string
}

// Scan finds every mention of a known symbol in text in a single
// Aho-Corasick pass, rather than one substring search per symbol.
func (d *RuntimeDictionary) Scan(text string) []Match {
	if d.ac == nil {
		return nil
	}

	canonical := CanonicalizeForMatch(text)
	offsetMap := buildOffsetMap(text)

	hits := d.ac.FindAllOverlapping([]byte(canonical))
	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		start := mapOffset(h.Start, offsetMap, len(text))
		end := mapOffset(h.End, offsetMap, len(text))
		if start >= len(text) || end > len(text) || start >= end {
			continue
		}
		out = append(out, Match{
			Start:       start,
			End:         end,
			MatchedText: text[start:end],
			SymbolIDs:   d.patternToIDs[h.PatternID],
		})
	}
	return out
}

// buildOffsetMap maps each byte position of the canonicalized string back to
// its originating byte position in the source text.
func buildOffsetMap(original string) []int {
	mapping := make([]int, 0, len(original)+1)
	lastWasSpace := true
	origPos := 0

	for _, ch := range original {
		runeLen := utf8.RuneLen(ch)
		c := foldRune(ch)

		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			for i := 0; i < utf8.RuneLen(c); i++ {
				mapping = append(mapping, origPos)
			}
			lastWasSpace = false
		} else if !lastWasSpace {
			mapping = append(mapping, origPos)
			lastWasSpace = true
		}
		origPos += runeLen
	}
	mapping = append(mapping, origPos)
	return mapping
}

func mapOffset(canonOffset int, mapping []int, originalLen int) int {
	if canonOffset >= len(mapping) {
		return originalLen
	}
	if canonOffset < 0 {
		return 0
	}
	return mapping[canonOffset]
}

func appendUnique(slice []string, item string) []string {
	for _, s := range slice {
		if s == item {
			return slice
		}
	}
	return append(slice, item)
}
