// Package report assembles the stable, serializable output models the
// reporter boundary consumes : Report for a single-catalog
// analysis, DiffReport for a two-snapshot comparison. Neither type is
// ever mutated after Assemble/AssembleDiff returns; reporters only
// borrow from it.
package report

import (
	"github.com/google/uuid"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/dbforensic/dbforensic/diff"
	"github.com/dbforensic/dbforensic/health"
	"github.com/dbforensic/dbforensic/issues"
)

// CatalogSummary is the report's top-level description of the catalog
// it was built from.
type CatalogSummary struct {
	Provider      catalog.Provider `json:"provider"`
	DefaultSchema string           `json:"default_schema"`
	TableCount    int              `json:"table_count"`
	ViewCount     int              `json:"view_count"`
	RoutineCount  int              `json:"routine_count"`
}

// HealthSummary is the rendered health.Breakdown the reporters show.
type HealthSummary struct {
	Score int         `json:"score"`
	Band  health.Band `json:"band"`
}

// GraphView is the serializable projection of a depgraph.Graph.
type GraphView struct {
	Nodes []depgraph.ObjectRef `json:"nodes"`
	Edges []depgraph.Edge      `json:"edges"`
}

// RoutineStat surfaces one routine's computed complexity artifacts.
type RoutineStat struct {
	FQN                catalog.FQN              `json:"fqn"`
	Kind               catalog.RoutineKind      `json:"kind"`
	ComplexityScore    float64                  `json:"complexity_score"`
	ComplexityCategory catalog.ComplexityCategory `json:"complexity_category"`
	AntiPatterns       []catalog.AntiPattern    `json:"anti_patterns,omitempty"`
}

// ImpactEntry is one node's precomputed reverse-reachable closure,
// cached so reporters never need to re-walk the graph themselves.
type ImpactEntry struct {
	Object  depgraph.ObjectRef   `json:"object"`
	Count   int                  `json:"count"`
	ByKind  map[string]int       `json:"by_kind"`
	Members []depgraph.ObjectRef `json:"members"`
}

// Report is the full assembled analysis result for one catalog
// snapshot.
type Report struct {
	RunID          uuid.UUID               `json:"run_id"`
	CatalogSummary CatalogSummary          `json:"catalog_summary"`
	Health         HealthSummary           `json:"health"`
	Issues         []issues.Issue          `json:"issues"`
	Graph          GraphView               `json:"graph"`
	RoutineStats   []RoutineStat           `json:"routine_stats"`
	ImpactCache    map[string]ImpactEntry  `json:"impact_cache"`
	Hotspots       []depgraph.Hotspot      `json:"hotspots"`
	Warnings       []string                `json:"warnings,omitempty"`
}

// Assemble bundles a catalog, its built graph, its detector findings
// and its health breakdown into one immutable Report.
func Assemble(cat catalog.Catalog, g depgraph.Graph, allIssues []issues.Issue, hb health.Breakdown, warnings []string) Report {
	r := Report{
		RunID: uuid.New(),
		CatalogSummary: CatalogSummary{
			Provider:      cat.Provider,
			DefaultSchema: cat.DefaultSchema,
			TableCount:    len(cat.Tables()),
			ViewCount:     len(cat.Views()),
			RoutineCount:  len(cat.Routines()),
		},
		Health:       HealthSummary{Score: hb.Score, Band: hb.Band},
		Issues:       allIssues,
		Graph:        GraphView{Nodes: g.Nodes(), Edges: g.Edges()},
		RoutineStats: routineStats(cat),
		ImpactCache:  impactCache(g),
		Hotspots:     g.Hotspots(10),
		Warnings:     warnings,
	}
	return r
}

func routineStats(cat catalog.Catalog) []RoutineStat {
	routines := cat.Routines()
	out := make([]RoutineStat, 0, len(routines))
	for _, r := range routines {
		out = append(out, RoutineStat{
			FQN:                r.FQN,
			Kind:               r.Kind,
			ComplexityScore:    r.ComplexityScore,
			ComplexityCategory: r.ComplexityCategory,
			AntiPatterns:       r.AntiPatterns,
		})
	}
	return out
}

func impactCache(g depgraph.Graph) map[string]ImpactEntry {
	cache := make(map[string]ImpactEntry, len(g.Nodes()))
	for _, n := range g.Nodes() {
		members := g.Impact(n)
		byKind := map[string]int{}
		for _, m := range members {
			byKind[m.Kind.String()]++
		}
		cache[n.Key()] = ImpactEntry{Object: n, Count: len(members), ByKind: byKind, Members: members}
	}
	return cache
}
