package depgraph

import (
	"testing"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proc(name string) ObjectRef {
	return ObjectRef{Kind: KindProcedure, FQN: catalog.NewFQN("dbo", name)}
}

func table(name string) ObjectRef {
	return ObjectRef{Kind: KindTable, FQN: catalog.NewFQN("dbo", name)}
}

func TestCycles_ScenarioD_CircularDependency(t *testing.T) {
	a, b, c := proc("A"), proc("B"), proc("C")
	nodes := []ObjectRef{a, b, c}
	edges := []Edge{
		{Source: a, Target: b, Kind: EdgeCalls, Origin: OriginBodyCall, Confidence: 90},
		{Source: b, Target: c, Kind: EdgeCalls, Origin: OriginBodyCall, Confidence: 90},
		{Source: c, Target: a, Kind: EdgeCalls, Origin: OriginBodyCall, Confidence: 90},
	}

	g := Build(nodes, edges)
	cycles := g.Cycles()

	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], 3)
	assert.True(t, cycles[0][0].Equal(a)) // "A" sorts first lexicographically
}

func TestCycles_EmptyForDAG(t *testing.T) {
	a, b := table("Orders"), table("Customers")
	g := Build([]ObjectRef{a, b}, []Edge{
		{Source: a, Target: b, Kind: EdgeForeignKey, Origin: OriginCatalogFK, Confidence: 100},
	})
	assert.Empty(t, g.Cycles())
}

func TestCycles_SelfLoopIsACycle(t *testing.T) {
	a := proc("Recursive")
	g := Build([]ObjectRef{a}, []Edge{
		{Source: a, Target: a, Kind: EdgeCalls, Origin: OriginBodyCall, Confidence: 90},
	})
	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], 1)
}

func TestImpact_ExcludesSelfEvenInCycle(t *testing.T) {
	a, b := proc("A"), proc("B")
	g := Build([]ObjectRef{a, b}, []Edge{
		{Source: a, Target: b, Kind: EdgeCalls, Origin: OriginBodyCall},
		{Source: b, Target: a, Kind: EdgeCalls, Origin: OriginBodyCall},
	})
	impact := g.Impact(a)
	for _, ref := range impact {
		assert.False(t, ref.Equal(a))
	}
}

func TestImpact_ReverseReachability(t *testing.T) {
	students := table("Students")
	sp := proc("sp_SearchStudents")
	view := ObjectRef{Kind: KindView, FQN: catalog.NewFQN("dbo", "vw_StudentOverview")}

	g := Build([]ObjectRef{students, sp, view}, []Edge{
		{Source: sp, Target: students, Kind: EdgeReferences, Origin: OriginBodyReference},
		{Source: view, Target: students, Kind: EdgeReferences, Origin: OriginBodyReference},
	})

	impact := g.Impact(students)
	require.Len(t, impact, 2)
}

func TestHotspots_Banding(t *testing.T) {
	hub := table("Hub")
	var nodes []ObjectRef
	var edges []Edge
	nodes = append(nodes, hub)
	for i := 0; i < 12; i++ {
		src := proc(string(rune('A' + i)))
		nodes = append(nodes, src)
		edges = append(edges, Edge{Source: src, Target: hub, Kind: EdgeReferences, Origin: OriginBodyReference})
	}

	g := Build(nodes, edges)
	hotspots := g.Hotspots(5)
	require.NotEmpty(t, hotspots)
	assert.Equal(t, hub, hotspots[0].Table)
	assert.Equal(t, 12, hotspots[0].InDegree)
	assert.Equal(t, HotspotHigh, hotspots[0].Risk)
}
