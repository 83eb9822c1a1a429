// Package model defines the persistent node/edge data model shared by every
// component of the engine: the store, the clusterer, the hierarchy builder,
// the association layer, and the privacy engine.
package model

import "math"

// ContentType is the 13-variant classification assigned by the classifier.
type ContentType string

const (
	ContentInsight      ContentType = "insight"
	ContentExploration  ContentType = "exploration"
	ContentSynthesis    ContentType = "synthesis"
	ContentQuestion     ContentType = "question"
	ContentPlanning     ContentType = "planning"
	ContentInvestigation ContentType = "investigation"
	ContentDiscussion   ContentType = "discussion"
	ContentReference    ContentType = "reference"
	ContentCreative     ContentType = "creative"
	ContentDebug        ContentType = "debug"
	ContentCode         ContentType = "code"
	ContentPaste        ContentType = "paste"
	ContentTrivial      ContentType = "trivial"
)

// AllContentTypes lists every recognized content type, in the order cue
// tables are evaluated.
var AllContentTypes = []ContentType{
	ContentInsight, ContentExploration, ContentSynthesis, ContentQuestion,
	ContentPlanning, ContentInvestigation, ContentDiscussion, ContentReference,
	ContentCreative, ContentDebug, ContentCode, ContentPaste, ContentTrivial,
}

// IsValidContentType reports whether s names a recognized content type.
func IsValidContentType(s string) bool {
	for _, c := range AllContentTypes {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Tier is the coarse importance bucket a content type maps to.
type Tier string

const (
	TierHidden     Tier = "hidden"
	TierSupporting Tier = "supporting"
	TierVisible    Tier = "visible"
)

// UnclusteredID is the reserved cluster_id -1, meaning "unclustered".
const UnclusteredID = -1

// TierOf maps a content type to its coarse importance bucket (§4.2).
func TierOf(ct ContentType) Tier {
	switch ct {
	case ContentCode, ContentDebug, ContentPaste, ContentTrivial:
		return TierHidden
	case ContentInvestigation, ContentDiscussion, ContentReference, ContentCreative:
		return TierSupporting
	default:
		return TierVisible
	}
}

// Node is the unit of the knowledge graph: an item of real content, or a
// container that groups other nodes into a topic.
type Node struct {
	ID string

	// Content
	Title       string
	Content     string
	URL         string
	ContentType ContentType

	// Derived content
	AITitle     string
	Summary     string
	Tags        []string
	Emoji       string
	Embedding   []float32
	IsProcessed bool

	// Structural
	Depth           int
	IsItem          bool
	IsUniverse      bool
	ParentID        *string
	ChildCount      int
	ClusterID       int
	ClusterLabel    string
	NeedsClustering bool
	ConversationID  string
	SequenceIndex   int
	IsPinned        bool
	LastAccessedAt  int64
	LatestChildDate int64
	IsPrivate       *bool // nil = unscanned
	PrivacyReason   string

	CreatedAt int64
	UpdatedAt int64
}

// IsContainer reports whether the node groups children rather than holding
// leaf content (invariant 4: is_item and is_universe are mutually exclusive).
func (n *Node) IsContainer() bool {
	return !n.IsItem
}

// EmbeddingNorm returns the L2 norm of the stored embedding, or 0 if absent.
func (n *Node) EmbeddingNorm() float64 {
	if len(n.Embedding) == 0 {
		return 0
	}
	var sum float64
	for _, v := range n.Embedding {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
