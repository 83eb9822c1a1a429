// Package classifier assigns a content type and visibility tier to a node's
// raw text (§4.2). The pattern regime below is self-contained and runs for
// every node; internal/classifier/llm.go layers an optional LLM-refined
// second pass on top of it.
package classifier

import (
	"strings"

	"github.com/coregx/ahocorasick"
	implicitmatcher "github.com/kittclouds/kgraph/pkg/implicit-matcher"

	"github.com/kittclouds/kgraph/internal/model"
)

const (
	pasteLengthThreshold = 1800
	pasteMinLines        = 12
	trivialMaxLength     = 24
)

var cueAutomaton *ahocorasick.Automaton

func init() {
	patterns := make([]string, len(cueTable))
	for i, c := range cueTable {
		patterns[i] = implicitmatcher.CanonicalizeForMatch(c.phrase)
	}
	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		panic("classifier: cue automaton build: " + err.Error())
	}
	cueAutomaton = ac
}

// Classify assigns a content type (and, by extension, tier) from a single
// pattern-matching pass over content: stack-trace markers and code fences
// are checked first since they're unambiguous and cheap, then length/shape
// heuristics for trivial fragments and raw pastes, then the cue-phrase
// automaton, defaulting to exploration when nothing fires.
func Classify(content string) model.ContentType {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return model.ContentTrivial
	}

	if looksLikeStackTrace(trimmed) {
		return model.ContentDebug
	}
	if strings.Contains(trimmed, "```") {
		return model.ContentCode
	}
	if looksTrivial(trimmed) {
		return model.ContentTrivial
	}
	if looksLikePaste(trimmed) {
		return model.ContentPaste
	}
	if ct, ok := matchCue(trimmed); ok {
		return ct
	}
	return model.ContentExploration
}

func looksLikeStackTrace(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range stackTraceMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func looksTrivial(content string) bool {
	if len(content) > trivialMaxLength {
		return false
	}
	canon := implicitmatcher.CanonicalizeForMatch(content)
	for _, g := range trivialGreetings {
		if canon == g || strings.HasPrefix(canon, g+" ") {
			return true
		}
	}
	return false
}

// looksLikePaste flags long, densely line-broken content with little
// sentence punctuation — logs, config dumps, tabular output — that didn't
// already match a stack trace or a code fence.
func looksLikePaste(content string) bool {
	if len(content) < pasteLengthThreshold {
		return false
	}
	lines := strings.Split(content, "\n")
	if len(lines) < pasteMinLines {
		return false
	}
	sentenceEnders := strings.Count(content, ". ") + strings.Count(content, "? ") + strings.Count(content, "! ")
	return sentenceEnders*40 < len(content)
}

// matchCue scans the cue-phrase table in one Aho-Corasick pass and, among
// every phrase that hits, returns the content type of the one listed
// earliest in cueTable — visible-tier phrases are listed first so they win
// over a supporting-tier phrase also present in the same text.
func matchCue(content string) (model.ContentType, bool) {
	canon := implicitmatcher.CanonicalizeForMatch(content)
	hits := cueAutomaton.FindAllOverlapping([]byte(canon))
	if len(hits) == 0 {
		return "", false
	}

	best := -1
	for _, h := range hits {
		if best == -1 || h.PatternID < best {
			best = h.PatternID
		}
	}
	return cueTable[best].ct, true
}

// MechanicalTitle produces a title without calling the LLM, used for hidden
// tier content (§4.2: hidden-tier nodes skip AI enrichment entirely) and as
// a fallback whenever AI enrichment is unavailable or fails.
func MechanicalTitle(ct model.ContentType, content string) string {
	prefix := titlePrefix(ct)
	snippet := firstLine(content, 60)
	if snippet == "" {
		return prefix
	}
	return prefix + ": " + snippet
}

func titlePrefix(ct model.ContentType) string {
	switch ct {
	case model.ContentCode:
		return "Code"
	case model.ContentDebug:
		return "Debug"
	case model.ContentPaste:
		return "Paste"
	case model.ContentTrivial:
		return "Note"
	default:
		return "Note"
	}
}

func firstLine(content string, maxLen int) string {
	trimmed := strings.TrimSpace(content)
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.TrimSpace(trimmed)
	if len(trimmed) > maxLen {
		return trimmed[:maxLen] + "…"
	}
	return trimmed
}
