package classifier

import "github.com/kittclouds/kgraph/internal/model"

// cuePhrase binds a surface phrase to the content type it signals. Phrases
// are matched against canonicalized text (lowercased, punctuation folded to
// spaces) the same way the dictionary matcher canonicalizes entity surface
// forms, so "so, basically" and "so basically" match identically.
type cuePhrase struct {
	phrase string
	ct     model.ContentType
}

// cueTable lists every phrase cue, grouped by the spec's tier ordering
// (visible, then supporting) so a text matching phrases from both tiers
// prefers the visible classification — visible content is the common case
// worth surfacing, and a supporting-tier phrase ("turns out") often shows up
// inside an insight too.
var cueTable = []cuePhrase{
	// Visible tier
	{"i realized", model.ContentInsight},
	{"the key is", model.ContentInsight},
	{"so basically", model.ContentInsight},
	{"what if", model.ContentExploration},
	{"let me try", model.ContentExploration},
	{"i wonder", model.ContentExploration},
	{"to summarize", model.ContentSynthesis},
	{"the pattern is", model.ContentSynthesis},
	{"todo", model.ContentPlanning},
	{"roadmap", model.ContentPlanning},
	{"next steps", model.ContentPlanning},

	// Supporting tier
	{"turns out", model.ContentInvestigation},
	{"fixed by", model.ContentInvestigation},
	{"in roleplay", model.ContentCreative},
	{"once upon a time", model.ContentCreative},
}

// stackTraceMarkers are substrings whose presence is a strong signal of a
// pasted error/stack trace (hidden tier, content_type debug).
var stackTraceMarkers = []string{
	"traceback (most recent call last)",
	"panic:",
	"goroutine ",
	"at java.",
	"exception in thread",
	"unhandled exception",
	"segmentation fault",
	"npm err!",
}

// trivialGreetings are short-fragment openers that, combined with the
// length heuristic, mark a node as trivial rather than exploration.
var trivialGreetings = []string{
	"hi", "hello", "hey", "thanks", "thank you", "ok", "okay", "sure", "yep", "nope",
}
