package model

// EdgeType enumerates the kinds of typed edges the association layer
// maintains. Importers may introduce additional source-specific tags in
// EdgeSource without extending this set — the core treats unrecognized
// kinds as opaque.
type EdgeType string

const (
	EdgeBelongsTo EdgeType = "belongs_to"
	EdgeRelated   EdgeType = "related"
	EdgeDefinedIn EdgeType = "defined_in"
	EdgeDocuments EdgeType = "documents"
)

// Edge provenance tags.
const (
	SourceAI         = "ai"
	SourceUser       = "user"
	SourceCodeImport = "code-import"
)

// Edge is a typed, optionally weighted relationship between two nodes.
type Edge struct {
	ID         string
	SourceID   string
	TargetID   string
	EdgeType   EdgeType
	Label      string
	Weight     *float64
	EdgeSource string
	EvidenceID string
	Confidence *float64
	CreatedAt  int64
}

// IsUserOwned reports whether automated passes must leave this edge alone.
func (e *Edge) IsUserOwned() bool {
	return e.EdgeSource == SourceUser
}

// IsAIOwned reports whether this edge may be deleted/rewritten by automated
// clustering, hierarchy, or semantic-edge regeneration passes. Legacy edges
// with an empty EdgeSource are treated as AI-owned for cleanup purposes.
func (e *Edge) IsAIOwned() bool {
	return e.EdgeSource == SourceAI || e.EdgeSource == ""
}
