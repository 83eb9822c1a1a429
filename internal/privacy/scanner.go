package privacy

import (
	"context"
	"fmt"
	"time"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/kglog"
	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/progress"
	"github.com/kittclouds/kgraph/internal/store"
)

// betweenScansDelay is the inter-request pacing for batch scans (§5),
// giving a rate-limited LLM provider room to breathe between calls.
const betweenScansDelay = 100 * time.Millisecond

// nodeClassifier is the minimal interface Scanner depends on; *Classifier
// satisfies it in production, tests can substitute a fake verdict source.
type nodeClassifier interface {
	Classify(ctx context.Context, n *model.Node) (bool, string)
}

// Scanner drives the privacy engine's three scan modes over a store.
type Scanner struct {
	st   *store.Store
	cls  nodeClassifier
	sink *progress.Sink
}

// NewScanner wires a Scanner. svc may be nil (heuristic classification
// only); sink may be nil (no progress events).
func NewScanner(st *store.Store, svc *llmclient.Service, sink *progress.Sink, showcase bool) *Scanner {
	return &Scanner{st: st, cls: NewClassifier(svc, showcase), sink: sink}
}

// NewScannerWithClassifier wires a Scanner around a caller-supplied
// classifier, bypassing the LLM/heuristic dispatch entirely — used by
// tests that need a deterministic verdict for a known node.
func NewScannerWithClassifier(st *store.Store, cls nodeClassifier, sink *progress.Sink) *Scanner {
	return &Scanner{st: st, cls: cls, sink: sink}
}

// Result reports what a scan pass did.
type Result struct {
	Scanned    int
	Private    int
	Propagated int // descendants marked private by category-scan inheritance
}

// ScanNode classifies and persists a single node's privacy state,
// overriding any prior automated verdict (manual overrides bypass this
// path entirely — callers must not route set_node_privacy through here).
func (s *Scanner) ScanNode(ctx context.Context, n *model.Node) error {
	isPrivate, reason := s.cls.Classify(ctx, n)
	if err := s.st.UpdateNodePrivacy(n.ID, isPrivate, reason); err != nil {
		return fmt.Errorf("privacy: scan_node %s: %w", n.ID, err)
	}
	n.IsPrivate = &isPrivate
	n.PrivacyReason = reason
	return nil
}

// ScanBatch classifies every unscanned item (is_private IS NULL), pacing
// requests and emitting per-item progress (§4.8.2).
func (s *Scanner) ScanBatch(ctx context.Context, tok *cancel.Token) (*Result, error) {
	log := kglog.Op("analyze_privacy")
	done := kglog.Timer(log.Info())
	defer done()

	items, err := s.st.GetItems()
	if err != nil {
		return nil, fmt.Errorf("privacy: list items: %w", err)
	}

	var unscanned []*model.Node
	for _, it := range items {
		if it.IsPrivate == nil {
			unscanned = append(unscanned, it)
		}
	}

	res := &Result{}
	start := time.Now()
	for i, n := range unscanned {
		if tok.Cancelled() {
			s.emit(n, len(unscanned), i, start, progress.StatusCancelled)
			return res, &cancel.CancelledError{Op: "analyze_privacy"}
		}

		s.emit(n, len(unscanned), i, start, progress.StatusProcessing)
		if err := s.ScanNode(ctx, n); err != nil {
			s.emit(n, len(unscanned), i, start, progress.StatusError)
			continue
		}
		res.Scanned++
		if n.IsPrivate != nil && *n.IsPrivate {
			res.Private++
		}
		s.emit(n, len(unscanned), i, start, progress.StatusSuccess)

		if i < len(unscanned)-1 {
			time.Sleep(betweenScansDelay)
		}
	}
	return res, nil
}

func (s *Scanner) emit(n *model.Node, total, idx int, start time.Time, status progress.Status) {
	isPrivate := false
	if n.IsPrivate != nil {
		isPrivate = *n.IsPrivate
	}
	s.sink.EmitPrivacy(progress.PrivacyProgress{
		Current:   idx + 1,
		Total:     total,
		NodeTitle: n.Title,
		IsPrivate: isPrivate,
		Status:    status,
		Elapsed:   time.Since(start),
	})
}

// ScanCategories classifies every unscanned container and propagates a
// private verdict to its entire subtree (§4.8.3): much cheaper than a
// per-item scan because one LLM call can eliminate thousands of
// descendants.
func (s *Scanner) ScanCategories(ctx context.Context, tok *cancel.Token) (*Result, error) {
	nodes, err := s.st.GetAllNodes()
	if err != nil {
		return nil, fmt.Errorf("privacy: list nodes: %w", err)
	}

	res := &Result{}
	for _, n := range nodes {
		if n.IsItem || n.IsUniverse {
			continue
		}
		if n.IsPrivate != nil {
			continue
		}
		if tok.Cancelled() {
			return res, &cancel.CancelledError{Op: "analyze_privacy"}
		}

		if err := s.ScanNode(ctx, n); err != nil {
			continue
		}
		res.Scanned++
		if n.IsPrivate == nil || !*n.IsPrivate {
			continue
		}
		res.Private++

		count, err := s.propagateSubtree(n.ID, n.Title)
		if err != nil {
			return res, fmt.Errorf("privacy: propagate subtree from %s: %w", n.ID, err)
		}
		res.Propagated += count

		time.Sleep(betweenScansDelay)
	}
	return res, nil
}

// propagateSubtree marks every transitive descendant of containerID as
// private, with a reason naming the ancestor container that triggered it.
func (s *Scanner) propagateSubtree(containerID, title string) (int, error) {
	children, err := s.st.GetChildren(containerID)
	if err != nil {
		return 0, err
	}

	count := 0
	reason := "Inherited from private category: " + title
	for _, c := range children {
		if err := s.st.UpdateNodePrivacy(c.ID, true, reason); err != nil {
			return count, err
		}
		count++
		if !c.IsItem {
			sub, err := s.propagateSubtree(c.ID, title)
			if err != nil {
				return count, err
			}
			count += sub
		}
	}
	return count, nil
}
