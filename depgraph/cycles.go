package depgraph

import "sort"

// tarjan holds the per-node bookkeeping for Tarjan's SCC algorithm.
type tarjan struct {
	g        Graph
	index    map[string]int
	lowlink  map[string]int
	onStack  map[string]bool
	stack    []ObjectRef
	counter int
	sccs    [][]ObjectRef
}

func (g Graph) adjacency(key string) []ObjectRef {
	seen := map[string]bool{}
	var out []ObjectRef
	for _, e := range g.outAdj[key] {
		if seen[e.Target.Key()] {
			continue
		}
		seen[e.Target.Key()] = true
		out = append(out, e.Target)
	}
	return out
}

// Cycles runs Tarjan's algorithm over the graph flattened to a simple
// digraph (parallel edges collapsed) and returns every SCC of size ≥ 2
// together with every self-looping singleton. Each cycle's node list
// is rotated so its lexicographically smallest FQN is first.
func (g Graph) Cycles() [][]ObjectRef {
	tj := &tarjan{
		g:       g,
		index:   map[string]int{},
		lowlink: map[string]int{},
		onStack: map[string]bool{},
	}

	for _, n := range g.nodes {
		if _, seen := tj.index[n.Key()]; !seen {
			tj.strongConnect(n)
		}
	}

	var cycles [][]ObjectRef
	for _, scc := range tj.sccs {
		if len(scc) >= 2 || hasSelfLoop(g, scc[0]) {
			cycles = append(cycles, rotateToSmallest(scc))
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0].Less(cycles[j][0]) })
	return cycles
}

func hasSelfLoop(g Graph, n ObjectRef) bool {
	for _, t := range g.adjacency(n.Key()) {
		if t.Key() == n.Key() {
			return true
		}
	}
	return false
}

func rotateToSmallest(nodes []ObjectRef) []ObjectRef {
	minIdx := 0
	for i, n := range nodes {
		if n.Less(nodes[minIdx]) {
			minIdx = i
		}
	}
	rotated := make([]ObjectRef, 0, len(nodes))
	rotated = append(rotated, nodes[minIdx:]...)
	rotated = append(rotated, nodes[:minIdx]...)
	return rotated
}

func (tj *tarjan) strongConnect(v ObjectRef) {
	tj.index[v.Key()] = tj.counter
	tj.lowlink[v.Key()] = tj.counter
	tj.counter++
	tj.stack = append(tj.stack, v)
	tj.onStack[v.Key()] = true

	for _, w := range tj.g.adjacency(v.Key()) {
		if _, seen := tj.index[w.Key()]; !seen {
			tj.strongConnect(w)
			if tj.lowlink[w.Key()] < tj.lowlink[v.Key()] {
				tj.lowlink[v.Key()] = tj.lowlink[w.Key()]
			}
		} else if tj.onStack[w.Key()] {
			if tj.index[w.Key()] < tj.lowlink[v.Key()] {
				tj.lowlink[v.Key()] = tj.index[w.Key()]
			}
		}
	}

	if tj.lowlink[v.Key()] == tj.index[v.Key()] {
		var scc []ObjectRef
		for {
			n := len(tj.stack) - 1
			w := tj.stack[n]
			tj.stack = tj.stack[:n]
			tj.onStack[w.Key()] = false
			scc = append(scc, w)
			if w.Key() == v.Key() {
				break
			}
		}
		tj.sccs = append(tj.sccs, scc)
	}
}
