package graphhealth

import (
	"sort"
	"time"

	"github.com/kittclouds/kgraph/internal/model"
)

const (
	secondsPerDay  = 86400
	recentWindowDays = 7
)

// StaleNode is old (per staleDays) but still being referenced by recently
// created edges.
type StaleNode struct {
	ID                  string
	Title               string
	DaysSinceUpdate     int64
	RecentReferenceCount int
}

// StaleSummary is a `documents` edge whose target was updated after its
// source (§4.7) -- the nearest analog this model's edge taxonomy has to
// the original's dedicated "summarizes" edge type, which this spec does
// not carry (see DESIGN.md).
type StaleSummary struct {
	SourceID   string
	SourceTitle string
	TargetID   string
	TargetTitle string
	DriftDays  int64
}

// StalenessReport is old-but-referenced nodes plus drifted summaries.
type StalenessReport struct {
	StaleNodes        []StaleNode
	StaleSummaries    []StaleSummary
	StaleNodeCount    int
	StaleSummaryCount int
}

// ComputeStaleness finds nodes older than staleDays that are still being
// pointed at by edges created within the last week, and `documents` edges
// whose target has drifted ahead of its source.
func ComputeStaleness(s *Snapshot, staleDays int64) StalenessReport {
	now := time.Now().Unix()
	staleThreshold := staleDays * secondsPerDay
	recentWindow := int64(recentWindowDays * secondsPerDay)

	var staleNodes []StaleNode
	for id, n := range s.Nodes {
		age := now - n.UpdatedAt
		if age <= staleThreshold {
			continue
		}

		recent := 0
		for _, sourceID := range s.InAdj[id] {
			for _, e := range s.Edges {
				if e.SourceID == sourceID && e.TargetID == id && now-e.CreatedAt < recentWindow {
					recent++
				}
			}
		}
		if recent > 0 {
			staleNodes = append(staleNodes, StaleNode{
				ID:                   id,
				Title:                n.Title,
				DaysSinceUpdate:      age / secondsPerDay,
				RecentReferenceCount: recent,
			})
		}
	}
	sort.Slice(staleNodes, func(i, j int) bool {
		return staleNodes[i].RecentReferenceCount > staleNodes[j].RecentReferenceCount
	})

	var staleSummaries []StaleSummary
	for _, e := range s.Edges {
		if e.EdgeType != model.EdgeDocuments {
			continue
		}
		source, ok := s.Nodes[e.SourceID]
		if !ok {
			continue
		}
		target, ok := s.Nodes[e.TargetID]
		if !ok {
			continue
		}
		if target.UpdatedAt > source.UpdatedAt {
			staleSummaries = append(staleSummaries, StaleSummary{
				SourceID:    e.SourceID,
				SourceTitle: source.Title,
				TargetID:    e.TargetID,
				TargetTitle: target.Title,
				DriftDays:   (target.UpdatedAt - source.UpdatedAt) / secondsPerDay,
			})
		}
	}
	sort.Slice(staleSummaries, func(i, j int) bool { return staleSummaries[i].DriftDays > staleSummaries[j].DriftDays })

	return StalenessReport{
		StaleNodes:        staleNodes,
		StaleSummaries:    staleSummaries,
		StaleNodeCount:    len(staleNodes),
		StaleSummaryCount: len(staleSummaries),
	}
}
