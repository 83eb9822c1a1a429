package graphhealth

import "sort"

// degreeBucketLabels are the log-scale degree histogram buckets used by
// compute_topology in the original.
var degreeBucketLabels = [7]string{"0", "1", "2-3", "4-7", "8-15", "16-31", "32+"}

// HubNode is a node with above-threshold degree.
type HubNode struct {
	ID       string
	Title    string
	Degree   int
	InDegree int
	OutDegree int
}

// DegreeBucket is one entry of the degree histogram.
type DegreeBucket struct {
	Label string
	Count int
}

// TopologyReport summarizes connected components, orphans, the degree
// distribution, and hub nodes.
type TopologyReport struct {
	TotalNodes        int
	TotalEdges        int
	NumComponents     int
	LargestComponent  int
	SmallestComponent int
	OrphanCount       int
	OrphanIDs         []string
	DegreeHistogram   []DegreeBucket
	Hubs              []HubNode
}

// ComputeTopology reports connectivity structure: components via
// union-find, a log-scale degree histogram, orphans, and hubs (nodes with
// degree above hubThreshold). orphanIDs and hubs are each capped at topN.
func ComputeTopology(s *Snapshot, hubThreshold, topN int) TopologyReport {
	total := len(s.Nodes)
	if total == 0 {
		return TopologyReport{DegreeHistogram: defaultHistogram()}
	}

	ids := make([]string, 0, total)
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	uf := newUnionFind(ids)
	for _, e := range s.Edges {
		uf.union(e.SourceID, e.TargetID)
	}
	components := uf.components()
	largest, smallest := 0, 0
	if len(components) > 0 {
		smallest = len(components[0])
		for _, c := range components {
			if len(c) > largest {
				largest = len(c)
			}
			if len(c) < smallest {
				smallest = len(c)
			}
		}
	}

	var orphans []string
	var buckets [7]int
	var hubs []HubNode
	for id, n := range s.Nodes {
		degree := len(s.Adj[id])
		if degree == 0 {
			orphans = append(orphans, id)
		}
		buckets[degreeBucket(degree)]++
		if degree > hubThreshold {
			hubs = append(hubs, HubNode{
				ID:        id,
				Title:     n.Title,
				Degree:    degree,
				InDegree:  len(s.InAdj[id]),
				OutDegree: len(s.OutAdj[id]),
			})
		}
	}
	sort.Strings(orphans)
	orphanCount := len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}

	sort.Slice(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}

	histogram := make([]DegreeBucket, len(degreeBucketLabels))
	for i, label := range degreeBucketLabels {
		histogram[i] = DegreeBucket{Label: label, Count: buckets[i]}
	}

	return TopologyReport{
		TotalNodes:        total,
		TotalEdges:        len(s.Edges),
		NumComponents:     len(components),
		LargestComponent:  largest,
		SmallestComponent: smallest,
		OrphanCount:       orphanCount,
		OrphanIDs:         orphans,
		DegreeHistogram:   histogram,
		Hubs:              hubs,
	}
}

func defaultHistogram() []DegreeBucket {
	out := make([]DegreeBucket, len(degreeBucketLabels))
	for i, label := range degreeBucketLabels {
		out[i] = DegreeBucket{Label: label}
	}
	return out
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
