package depgraph

import (
	"encoding/json"
	"sort"
)

// Graph is an immutable, frozen directed multigraph. It is built once
// by Build and never mutated afterward; all query methods are pure.
type Graph struct {
	nodes     []ObjectRef
	edges     []Edge
	outAdj    map[string][]Edge
	inAdj     map[string][]Edge
	nodeByKey map[string]ObjectRef
}

// Build freezes a node and edge set into a queryable Graph. Edges are
// sorted by (source, target, origin) so every derived ordering is
// stable across runs, per the core's determinism guarantee.
func Build(nodes []ObjectRef, edges []Edge) Graph {
	nodeByKey := make(map[string]ObjectRef, len(nodes))
	for _, n := range nodes {
		nodeByKey[n.Key()] = n
	}

	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Source.Key() != b.Source.Key() {
			return a.Source.Less(b.Source)
		}
		if a.Target.Key() != b.Target.Key() {
			return a.Target.Less(b.Target)
		}
		return a.Origin < b.Origin
	})

	outAdj := map[string][]Edge{}
	inAdj := map[string][]Edge{}
	for _, e := range sorted {
		outAdj[e.Source.Key()] = append(outAdj[e.Source.Key()], e)
		inAdj[e.Target.Key()] = append(inAdj[e.Target.Key()], e)
	}

	orderedNodes := make([]ObjectRef, len(nodes))
	copy(orderedNodes, nodes)
	sort.Slice(orderedNodes, func(i, j int) bool { return orderedNodes[i].Less(orderedNodes[j]) })

	return Graph{
		nodes:     orderedNodes,
		edges:     sorted,
		outAdj:    outAdj,
		inAdj:     inAdj,
		nodeByKey: nodeByKey,
	}
}

func (g Graph) Nodes() []ObjectRef { return g.nodes }
func (g Graph) Edges() []Edge      { return g.edges }

func (g Graph) NeighborsOut(node ObjectRef) []Edge { return g.outAdj[node.Key()] }
func (g Graph) NeighborsIn(node ObjectRef) []Edge  { return g.inAdj[node.Key()] }

// Impact computes the reverse-reachable closure of node: every node
// that transitively depends on it. node itself is always excluded,
// even when it participates in a cycle that would otherwise revisit
// it.
func (g Graph) Impact(node ObjectRef) []ObjectRef {
	visited := map[string]bool{node.Key(): true}
	var order []ObjectRef
	queue := []ObjectRef{node}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.inAdj[cur.Key()] {
			if visited[e.Source.Key()] {
				continue
			}
			visited[e.Source.Key()] = true
			order = append(order, e.Source)
			queue = append(queue, e.Source)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })
	return order
}

// ImpactByKind tallies Impact(node) per ObjectKind.
func (g Graph) ImpactByKind(node ObjectRef) map[ObjectKind]int {
	counts := map[ObjectKind]int{}
	for _, ref := range g.Impact(node) {
		counts[ref.Kind]++
	}
	return counts
}

// HotspotRisk labels a table's in-degree hotspot severity.
type HotspotRisk int

const (
	HotspotLow HotspotRisk = iota
	HotspotMedium
	HotspotHigh
	HotspotCritical
)

func (r HotspotRisk) String() string {
	switch r {
	case HotspotLow:
		return "low"
	case HotspotMedium:
		return "medium"
	case HotspotHigh:
		return "high"
	case HotspotCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (r HotspotRisk) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// Hotspot is one table ranked by incoming edge count.
type Hotspot struct {
	Table    ObjectRef  `json:"table"`
	InDegree int        `json:"in_degree"`
	Risk     HotspotRisk `json:"risk"`
}

func hotspotRiskFor(inDegree int) HotspotRisk {
	switch {
	case inDegree >= 20:
		return HotspotCritical
	case inDegree >= 10:
		return HotspotHigh
	case inDegree >= 5:
		return HotspotMedium
	default:
		return HotspotLow
	}
}

// Hotspots returns the topN Table nodes with the highest in-degree,
// descending, ties broken by FQN.
func (g Graph) Hotspots(topN int) []Hotspot {
	var out []Hotspot
	for _, n := range g.nodes {
		if n.Kind != KindTable {
			continue
		}
		deg := len(g.inAdj[n.Key()])
		out = append(out, Hotspot{Table: n, InDegree: deg, Risk: hotspotRiskFor(deg)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InDegree != out[j].InDegree {
			return out[i].InDegree > out[j].InDegree
		}
		return out[i].Table.Less(out[j].Table)
	})
	if topN >= 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}
