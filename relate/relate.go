// Package relate fuses explicit foreign keys, extractor-derived join
// pairs and column-naming heuristics into the typed edge set consumed
// by the dependency graph.
package relate

import (
	"sort"
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
)

var irregularPlural = map[string]string{
	"person": "people",
	"child":  "children",
}

var irregularSingular = func() map[string]string {
	m := map[string]string{}
	for s, p := range irregularPlural {
		m[p] = s
	}
	return m
}()

var idSuffixes = []string{"Id", "_id", "ID"}

// stemFromIDColumn splits a column name like "StudentId" into "Student",
// ok=false if the name doesn't end in one of the three recognized
// <Stem>Id forms.
func stemFromIDColumn(name string) (stem string, ok bool) {
	for _, suffix := range idSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)], true
		}
	}
	return "", false
}

func endsWithIDSuffix(name string) bool {
	_, ok := stemFromIDColumn(name)
	return ok
}

// nameMatchesStem reports whether a table's bare name plausibly denotes
// the given stem. strongMatch is true for an exact match or a regular
// pluralization (<Stem>s, <Stem>es) — the confident forms, worth 95 —
// and false when the match only holds through the irregular-plural
// lookup table, worth the weaker 60.
func nameMatchesStem(tableName, stem string) (matched, strongMatch bool) {
	if strings.EqualFold(tableName, stem) {
		return true, true
	}
	for _, c := range []string{stem + "s", stem + "es"} {
		if strings.EqualFold(tableName, c) {
			return true, true
		}
	}
	if p, ok := irregularPlural[strings.ToLower(stem)]; ok && strings.EqualFold(tableName, p) {
		return true, false
	}
	if s, ok := irregularSingular[strings.ToLower(stem)]; ok && strings.EqualFold(tableName, s) {
		return true, false
	}
	return false, false
}

func isIntegerKind(k catalog.TypeKind) bool { return k == catalog.TypeKindInteger }
func isStringKind(k catalog.TypeKind) bool  { return k == catalog.TypeKindString }

func compatibleTypes(a, b catalog.DataType) bool {
	if isIntegerKind(a.Kind) && isIntegerKind(b.Kind) {
		return true
	}
	if isStringKind(a.Kind) && isStringKind(b.Kind) {
		if a.Length == nil || b.Length == nil {
			return true
		}
		return *a.Length == *b.Length
	}
	return false
}

func hasExplicitFKOn(t catalog.Table, column string) bool {
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			if strings.EqualFold(c, column) {
				return true
			}
		}
	}
	return false
}

func tableRef(fqn catalog.FQN) depgraph.ObjectRef {
	return depgraph.ObjectRef{Kind: depgraph.KindTable, FQN: fqn}
}

func objectRefFor(cat catalog.Catalog, fqn catalog.FQN) (depgraph.ObjectRef, bool) {
	if t, ok := cat.Table(fqn); ok {
		return depgraph.ObjectRef{Kind: depgraph.KindTable, FQN: t.FQN}, true
	}
	if v, ok := cat.View(fqn); ok {
		return depgraph.ObjectRef{Kind: depgraph.KindView, FQN: v.FQN}, true
	}
	if r, ok := cat.Routine(fqn); ok {
		kind := depgraph.KindProcedure
		if r.Kind == catalog.RoutineKindFunction {
			kind = depgraph.KindFunction
		}
		return depgraph.ObjectRef{Kind: kind, FQN: r.FQN}, true
	}
	return depgraph.ObjectRef{}, false
}

// Build produces the full edge set for a catalog: explicit FK edges,
// symmetric join-based edges, naming-heuristic edges, call edges and
// reference edges, 
func Build(cat catalog.Catalog) []depgraph.Edge {
	var edges []depgraph.Edge

	edges = append(edges, explicitFKEdges(cat)...)
	edges = append(edges, joinEdges(cat)...)
	edges = append(edges, namingHeuristicEdges(cat)...)
	edges = append(edges, callEdges(cat)...)
	edges = append(edges, referenceEdges(cat)...)

	return edges
}

func explicitFKEdges(cat catalog.Catalog) []depgraph.Edge {
	var edges []depgraph.Edge
	for _, t := range cat.Tables() {
		for _, fk := range t.ForeignKeys {
			if _, ok := cat.Table(fk.ReferencedTable); !ok {
				continue
			}
			edges = append(edges, depgraph.Edge{
				Source:     tableRef(t.FQN),
				Target:     tableRef(fk.ReferencedTable),
				Kind:       depgraph.EdgeForeignKey,
				Confidence: depgraph.ConfidenceFor(depgraph.OriginCatalogFK, false),
				Origin:     depgraph.OriginCatalogFK,
			})
		}
	}
	return edges
}

// joinedPairs returns, per routine, the set of table FQNs that
// participated in at least one join edge from that routine — needed so
// referenceEdges can skip tables already covered by a join edge.
func joinedPairs(cat catalog.Catalog) map[string]map[string]bool {
	result := map[string]map[string]bool{}
	for _, r := range cat.Routines() {
		set := map[string]bool{}
		for _, pair := range r.Joins {
			set[pair[0].Key()] = true
			set[pair[1].Key()] = true
		}
		result[r.FQN.Key()] = set
	}
	return result
}

func joinEdges(cat catalog.Catalog) []depgraph.Edge {
	var edges []depgraph.Edge
	for _, r := range cat.Routines() {
		if _, ok := objectRefFor(cat, r.FQN); !ok {
			continue
		}
		seen := map[string]bool{}
		for _, pair := range r.Joins {
			t1, ok1 := cat.Table(pair[0])
			t2, ok2 := cat.Table(pair[1])
			if !ok1 || !ok2 {
				continue
			}
			key := t1.FQN.Key() + "|" + t2.FQN.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges,
				depgraph.Edge{
					Source: tableRef(t1.FQN), Target: tableRef(t2.FQN),
					Kind: depgraph.EdgeJoins, Origin: depgraph.OriginBodyJoin,
					Confidence: depgraph.ConfidenceFor(depgraph.OriginBodyJoin, false),
					Via:        r.FQN,
				},
				depgraph.Edge{
					Source: tableRef(t2.FQN), Target: tableRef(t1.FQN),
					Kind: depgraph.EdgeJoins, Origin: depgraph.OriginBodyJoin,
					Confidence: depgraph.ConfidenceFor(depgraph.OriginBodyJoin, false),
					Via:        r.FQN,
				},
			)
		}
	}
	return edges
}

func callEdges(cat catalog.Catalog) []depgraph.Edge {
	var edges []depgraph.Edge
	for _, r := range cat.Routines() {
		callerRef, ok := objectRefFor(cat, r.FQN)
		if !ok {
			continue
		}
		for _, callee := range r.CalledRoutines {
			calleeRef, ok := objectRefFor(cat, callee)
			if !ok || calleeRef.Kind == depgraph.KindTable || calleeRef.Kind == depgraph.KindView {
				continue
			}
			edges = append(edges, depgraph.Edge{
				Source:     callerRef,
				Target:     calleeRef,
				Kind:       depgraph.EdgeCalls,
				Origin:     depgraph.OriginBodyCall,
				Confidence: depgraph.ConfidenceFor(depgraph.OriginBodyCall, false),
			})
		}
	}
	return edges
}

func referenceEdges(cat catalog.Catalog) []depgraph.Edge {
	var edges []depgraph.Edge
	joined := joinedPairs(cat)

	for _, r := range cat.Routines() {
		ref, ok := objectRefFor(cat, r.FQN)
		if !ok {
			continue
		}
		covered := joined[r.FQN.Key()]
		for _, tfqn := range r.ReferencedTables {
			if covered[tfqn.Key()] {
				continue
			}
			if _, ok := cat.Table(tfqn); !ok {
				continue
			}
			edges = append(edges, depgraph.Edge{
				Source:     ref,
				Target:     tableRef(tfqn),
				Kind:       depgraph.EdgeReferences,
				Origin:     depgraph.OriginBodyReference,
				Confidence: depgraph.ConfidenceFor(depgraph.OriginBodyReference, false),
			})
		}
	}

	for _, v := range cat.Views() {
		ref, ok := objectRefFor(cat, v.FQN)
		if !ok {
			continue
		}
		for _, tfqn := range v.References {
			if _, ok := cat.Table(tfqn); !ok {
				continue
			}
			edges = append(edges, depgraph.Edge{
				Source:     ref,
				Target:     tableRef(tfqn),
				Kind:       depgraph.EdgeReferences,
				Origin:     depgraph.OriginBodyReference,
				Confidence: depgraph.ConfidenceFor(depgraph.OriginBodyReference, false),
			})
		}
	}
	return edges
}

// namingHeuristicEdges implements the <Stem>Id inference rule.
func namingHeuristicEdges(cat catalog.Catalog) []depgraph.Edge {
	var edges []depgraph.Edge
	tables := cat.Tables()

	for _, t := range tables {
		for _, col := range t.Columns {
			stem, ok := stemFromIDColumn(col.Name)
			if !ok {
				continue
			}
			if hasExplicitFKOn(t, col.Name) {
				continue
			}

			var candidates []catalog.Table
			var exactSingular bool
			for _, s := range tables {
				if s.FQN.Equal(t.FQN) {
					continue
				}
				if len(s.PrimaryKey) != 1 || !endsWithIDSuffix(s.PrimaryKey[0]) {
					continue
				}
				matched, exact := nameMatchesStem(s.FQN.Name, stem)
				if !matched {
					continue
				}
				pkCol, ok := s.Column(s.PrimaryKey[0])
				if !ok || !compatibleTypes(col.Type, pkCol.Type) {
					continue
				}
				candidates = append(candidates, s)
				exactSingular = exact
			}

			if len(candidates) != 1 {
				continue
			}
			target := candidates[0]
			edges = append(edges, depgraph.Edge{
				Source:     tableRef(t.FQN),
				Target:     tableRef(target.FQN),
				Kind:       depgraph.EdgeNamingImplied,
				Origin:     depgraph.OriginNamingHeuristic,
				Confidence: depgraph.ConfidenceFor(depgraph.OriginNamingHeuristic, exactSingular),
			})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source.Key() != edges[j].Source.Key() {
			return edges[i].Source.Less(edges[j].Source)
		}
		return edges[i].Target.Less(edges[j].Target)
	})
	return edges
}
