// Package codeimport parses code items out of a source tree into nodes
// with deterministic ids, then extracts `documents` edges from markdown/doc
// nodes to those code nodes by scanning doc content for code references
// (§4.7). Regex style grounded on the teacher's `pkg/extraction/parser.go`
// (package-level `regexp.MustCompile` vars, `FindAllString`); deterministic
// id hashing grounded on `internal/store`'s deterministic-id-as-idempotency-
// key convention (`topic-{cluster_id}`).
package codeimport

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/kittclouds/kgraph/internal/model"
)

// ItemKind enumerates the code constructs the importer recognizes.
type ItemKind string

const (
	KindFunction  ItemKind = "function"
	KindStruct    ItemKind = "struct"
	KindEnum      ItemKind = "enum"
	KindTrait     ItemKind = "trait"
	KindType      ItemKind = "type"
	KindClass     ItemKind = "class"
	KindInterface ItemKind = "interface"
)

// Item is one parsed code construct, not yet a node.
type Item struct {
	FilePath  string
	Kind      ItemKind
	Qualifier string // enclosing type/module, "" if top-level
	Name      string
	Content   string
}

// NodeID derives the deterministic id §4.7 requires: a hash of the
// normalized file path plus "{item_type}:{qualifier}:{name}", so re-running
// the importer over an unchanged tree reproduces the same ids and
// InsertNode's duplicate-id skip makes the whole pass idempotent.
func NodeID(filePath string, kind ItemKind, qualifier, name string) string {
	norm := normalizePath(filePath)
	key := norm + "|" + string(kind) + ":" + qualifier + ":" + name
	sum := sha1.Sum([]byte(key))
	return "code-" + hex.EncodeToString(sum[:])[:20]
}

func normalizePath(p string) string {
	p = filepath.ToSlash(p)
	return strings.TrimPrefix(p, "./")
}

// BuildNode turns a parsed Item into a code node ready for InsertNode. The
// caller supplies createdAt/updatedAt since the importer has no clock of
// its own (§5's no-implicit-timestamps discipline mirrors the rest of the
// engine).
func BuildNode(item Item, now int64) *model.Node {
	return &model.Node{
		ID:          NodeID(item.FilePath, item.Kind, item.Qualifier, item.Name),
		Title:       item.Name,
		Content:     item.Content,
		URL:         normalizePath(item.FilePath),
		ContentType: model.ContentCode,
		IsItem:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
