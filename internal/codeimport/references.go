package codeimport

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/kittclouds/kgraph/internal/model"
)

// backtickRefPattern matches `name`, `Type::method`, `module::fn(args)`,
// `obj.method()` — the argument list (if any) is stripped before the
// segments are split on "::"/".".
var backtickRefPattern = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_:.]*)(?:\\([^)]*\\))?`")

// snakeCaseCallPattern matches a plain snake_case function call outside
// backticks.
var snakeCaseCallPattern = regexp.MustCompile(`\b([a-z_][a-z0-9_]*)\s*\(`)

// camelTypePattern matches a plain CamelCase identifier outside backticks.
var camelTypePattern = regexp.MustCompile(`\b([A-Z][a-zA-Z0-9]+)\b`)

// snakeCaseStopwords filters keywords and common builtins that would
// otherwise register as false-positive function references.
var snakeCaseStopwords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true,
	"func": true, "def": true, "fn": true, "let": true, "var": true,
	"const": true, "import": true, "package": true, "class": true,
}

// camelStopwords blocks common acronyms/words that are capitalized but not
// type references.
var camelStopwords = map[string]bool{
	"The": true, "JSON": true, "API": true, "HTTP": true, "HTTPS": true,
	"URL": true, "URI": true, "ID": true, "SQL": true, "CSV": true,
	"XML": true, "HTML": true, "TODO": true, "FIXME": true, "NOTE": true,
}

const minSnakeCaseLen = 3

// ExtractReferences scans every doc node's content for the three reference
// patterns in §4.7 and produces `documents` edges to whichever code node
// each resolved identifier maps to. codeByName indexes code nodes by their
// bare name (the name->id map the spec calls for); a name with more than
// one code node is skipped as ambiguous rather than guessed at.
func ExtractReferences(docs []*model.Node, codeByName map[string]string, now int64) []*model.Edge {
	var edges []*model.Edge
	seen := map[string]bool{}

	for _, doc := range docs {
		names := map[string]bool{}
		for _, seg := range backtickIdentifiers(doc.Content) {
			names[seg] = true
		}
		for _, m := range snakeCaseCallPattern.FindAllStringSubmatch(doc.Content, -1) {
			name := m[1]
			if len(name) >= minSnakeCaseLen && !snakeCaseStopwords[name] {
				names[name] = true
			}
		}
		for _, m := range camelTypePattern.FindAllStringSubmatch(doc.Content, -1) {
			name := m[1]
			if !camelStopwords[name] {
				names[name] = true
			}
		}

		for name := range names {
			targetID, ok := codeByName[name]
			if !ok {
				continue
			}
			id := documentsEdgeID(doc.ID, targetID)
			if seen[id] {
				continue
			}
			seen[id] = true

			confidence := 0.9
			edges = append(edges, &model.Edge{
				ID:         id,
				SourceID:   doc.ID,
				TargetID:   targetID,
				EdgeType:   model.EdgeDocuments,
				EdgeSource: model.SourceCodeImport,
				Confidence: &confidence,
				CreatedAt:  now,
			})
		}
	}
	return edges
}

// backtickIdentifiers pulls every `::`/`.`-delimited segment out of each
// backtick reference, so `Type::method` yields both "Type" and "method".
func backtickIdentifiers(content string) []string {
	var out []string
	for _, m := range backtickRefPattern.FindAllStringSubmatch(content, -1) {
		ref := m[1]
		for _, seg := range strings.FieldsFunc(ref, func(r rune) bool { return r == ':' || r == '.' }) {
			if seg != "" {
				out = append(out, seg)
			}
		}
	}
	return out
}

func documentsEdgeID(source, target string) string {
	sum := sha1.Sum([]byte("documents:" + source + "->" + target))
	return "doc-" + hex.EncodeToString(sum[:])[:20]
}

// BuildNameIndex builds the name->id map ExtractReferences needs from a set
// of code nodes. A name shared by more than one code node is dropped
// entirely rather than resolved arbitrarily.
func BuildNameIndex(codeNodes []*model.Node) map[string]string {
	counts := map[string]int{}
	ids := map[string]string{}
	for _, n := range codeNodes {
		counts[n.Title]++
		ids[n.Title] = n.ID
	}
	out := make(map[string]string, len(ids))
	for name, id := range ids {
		if counts[name] == 1 {
			out[name] = id
		}
	}
	return out
}
