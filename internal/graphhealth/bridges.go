package graphhealth

import "sort"

// ArticulationPoint is a node whose removal would disconnect the graph.
type ArticulationPoint struct {
	ID                 string
	Title              string
	ComponentsIfRemoved int // degree, used as a rough removal-impact estimate
}

// BridgeEdge is an edge whose removal would disconnect the graph.
type BridgeEdge struct {
	SourceID    string
	TargetID    string
	SourceTitle string
	TargetTitle string
}

// FragileConnection is a pair of regions joined by very few edges.
type FragileConnection struct {
	RegionA    string
	RegionB    string
	CrossEdges int
}

// BridgeReport is every bridge/articulation point plus fragile
// inter-region connections.
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint
	BridgeEdges        []BridgeEdge
	FragileConnections []FragileConnection
	APCount            int
	BridgeCount        int
}

// ComputeBridges finds bridges and articulation points with an iterative
// Tarjan's algorithm (an explicit (node, parent, neighbor-index) stack
// frame in place of native recursion, so a long chain can't blow the
// stack), plus region pairs connected by two or fewer cross edges.
func ComputeBridges(s *Snapshot) BridgeReport {
	if len(s.Nodes) == 0 {
		return BridgeReport{}
	}

	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	n := len(ids)

	adj := make([][]int, n)
	seen := make(map[[2]int]bool)
	for _, e := range s.Edges {
		u, okU := idx[e.SourceID]
		v, okV := idx[e.TargetID]
		if !okU || !okV || u == v {
			continue
		}
		key := [2]int{u, v}
		if u > v {
			key = [2]int{v, u}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
	}

	const noParent = -1
	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isAP := make([]bool, n)
	counter := 1
	var bridgePairs [][2]int

	type frame struct{ node, parent, ni int }

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		visited[start] = true
		disc[start] = counter
		low[start] = counter
		counter++

		stack := []frame{{start, noParent, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node, parent := top.node, top.parent

			if top.ni < len(adj[node]) {
				child := adj[node][top.ni]
				top.ni++

				if child == parent {
					continue
				}
				if visited[child] {
					if disc[child] < low[node] {
						low[node] = disc[child]
					}
					continue
				}

				visited[child] = true
				disc[child] = counter
				low[child] = counter
				counter++
				if node == start {
					rootChildren++
				}
				stack = append(stack, frame{child, node, 0})
				continue
			}

			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				pf := &stack[len(stack)-1]
				pn := pf.node
				if low[node] < low[pn] {
					low[pn] = low[node]
				}
				if low[node] > disc[pn] {
					bridgePairs = append(bridgePairs, [2]int{pn, node})
				}
				if pn != start && low[node] >= disc[pn] {
					isAP[pn] = true
				}
			}
		}

		if rootChildren >= 2 {
			isAP[start] = true
		}
	}

	var aps []ArticulationPoint
	for i := 0; i < n; i++ {
		if !isAP[i] {
			continue
		}
		id := ids[i]
		aps = append(aps, ArticulationPoint{
			ID:                  id,
			Title:               s.Nodes[id].Title,
			ComponentsIfRemoved: len(adj[i]),
		})
	}

	var bridgeEdges []BridgeEdge
	for _, pair := range bridgePairs {
		uID, vID := ids[pair[0]], ids[pair[1]]
		bridgeEdges = append(bridgeEdges, BridgeEdge{
			SourceID:    uID,
			TargetID:    vID,
			SourceTitle: s.Nodes[uID].Title,
			TargetTitle: s.Nodes[vID].Title,
		})
	}

	type regionPair struct{ a, b string }
	counts := make(map[regionPair]int)
	for _, e := range s.Edges {
		ra := s.Regions[e.SourceID]
		if ra == "" {
			ra = unassignedRegion
		}
		rb := s.Regions[e.TargetID]
		if rb == "" {
			rb = unassignedRegion
		}
		if ra == rb {
			continue
		}
		key := regionPair{ra, rb}
		if ra > rb {
			key = regionPair{rb, ra}
		}
		counts[key]++
	}

	var fragile []FragileConnection
	for pair, count := range counts {
		if count <= 2 {
			fragile = append(fragile, FragileConnection{RegionA: pair.a, RegionB: pair.b, CrossEdges: count})
		}
	}
	sort.Slice(fragile, func(i, j int) bool { return fragile[i].CrossEdges < fragile[j].CrossEdges })

	return BridgeReport{
		ArticulationPoints: aps,
		BridgeEdges:        bridgeEdges,
		FragileConnections: fragile,
		APCount:            len(aps),
		BridgeCount:        len(bridgeEdges),
	}
}
