package issues

import (
	"testing"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingPK(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{FQN: catalog.NewFQN("dbo", "Logs")})
	cat, err := b.Build()
	require.NoError(t, err)

	found := MissingPK(cat, depgraph.Build(nil, nil))
	require.Len(t, found, 1)
	assert.Equal(t, SeverityHigh, found[0].Severity)
}

func TestMissingPK_SkipsStagingTables(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{FQN: catalog.NewFQN("dbo", "stg_Import"), IsStaging: true})
	cat, err := b.Build()
	require.NoError(t, err)

	assert.Empty(t, MissingPK(cat, depgraph.Build(nil, nil)))
}

func TestEmptyTable(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{FQN: catalog.NewFQN("dbo", "Seasonal"), HasRowCount: true, RowCount: 0, PrimaryKey: []string{}})
	cat, err := b.Build()
	require.NoError(t, err)

	found := EmptyTable(cat, depgraph.Build(nil, nil))
	require.Len(t, found, 1)
	assert.Equal(t, SeverityLow, found[0].Severity)
}

func TestCircularDependency_ScenarioD(t *testing.T) {
	a := depgraph.ObjectRef{Kind: depgraph.KindProcedure, FQN: catalog.NewFQN("dbo", "A")}
	bb := depgraph.ObjectRef{Kind: depgraph.KindProcedure, FQN: catalog.NewFQN("dbo", "B")}
	c := depgraph.ObjectRef{Kind: depgraph.KindProcedure, FQN: catalog.NewFQN("dbo", "C")}
	g := depgraph.Build([]depgraph.ObjectRef{a, bb, c}, []depgraph.Edge{
		{Source: a, Target: bb, Kind: depgraph.EdgeCalls, Origin: depgraph.OriginBodyCall},
		{Source: bb, Target: c, Kind: depgraph.EdgeCalls, Origin: depgraph.OriginBodyCall},
		{Source: c, Target: a, Kind: depgraph.EdgeCalls, Origin: depgraph.OriginBodyCall},
	})

	found := CircularDependency(catalog.Catalog{}, g)
	require.Len(t, found, 1)
	assert.Equal(t, SeverityHigh, found[0].Severity)
	assert.Len(t, found[0].Affected, 3)
}

func TestInconsistentNaming(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{
		FQN:     catalog.NewFQN("dbo", "Enrollments"),
		Columns: []catalog.Column{{Name: "StudentId"}},
	})
	b.AddTable(catalog.Table{
		FQN:     catalog.NewFQN("dbo", "Grades"),
		Columns: []catalog.Column{{Name: "student_id"}},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	found := InconsistentNaming(cat, depgraph.Build(nil, nil))
	require.Len(t, found, 1)
	assert.Equal(t, SeverityLow, found[0].Severity)
}

func TestInconsistentNaming_SingleStyleIsFine(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{
		FQN:     catalog.NewFQN("dbo", "Enrollments"),
		Columns: []catalog.Column{{Name: "StudentId"}},
	})
	b.AddTable(catalog.Table{
		FQN:     catalog.NewFQN("dbo", "Grades"),
		Columns: []catalog.Column{{Name: "StudentId"}},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	assert.Empty(t, InconsistentNaming(cat, depgraph.Build(nil, nil)))
}

func TestRun_OrdersBySeverityDescThenID(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{FQN: catalog.NewFQN("dbo", "NoKey")})
	b.AddTable(catalog.Table{FQN: catalog.NewFQN("dbo", "Empty"), HasRowCount: true, RowCount: 0})
	cat, err := b.Build()
	require.NoError(t, err)

	found := Run(cat, depgraph.Build(nil, nil))
	require.GreaterOrEqual(t, len(found), 2)
	for i := 1; i < len(found); i++ {
		assert.True(t, found[i-1].Severity > found[i].Severity ||
			(found[i-1].Severity == found[i].Severity && found[i-1].ID <= found[i].ID))
	}
}

func TestMissingFKIndex(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{
		FQN:        catalog.NewFQN("dbo", "Students"),
		Columns:    []catalog.Column{{Name: "StudentId"}},
		PrimaryKey: []string{"StudentId"},
	})
	b.AddTable(catalog.Table{
		FQN:        catalog.NewFQN("dbo", "Enrollments"),
		Columns:    []catalog.Column{{Name: "EnrollmentId"}, {Name: "StudentId"}},
		PrimaryKey: []string{"EnrollmentId"},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "FK_Enrollments_Students", Columns: []string{"StudentId"},
				ReferencedTable: catalog.NewFQN("dbo", "Students"), ReferencedColumn: []string{"StudentId"}},
		},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	found := MissingFKIndex(cat, depgraph.Build(nil, nil))
	require.Len(t, found, 1)
	assert.Equal(t, SeverityHigh, found[0].Severity)
}

func TestDuplicateIndex(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{
		FQN:     catalog.NewFQN("dbo", "Orders"),
		Columns: []catalog.Column{{Name: "CustomerId"}},
		Indexes: []catalog.Index{
			{Name: "IX_Orders_CustomerId_1", Columns: []catalog.IndexColumn{{Column: "CustomerId"}}},
			{Name: "IX_Orders_CustomerId_2", Columns: []catalog.IndexColumn{{Column: "CustomerId"}}},
		},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	found := DuplicateIndex(cat, depgraph.Build(nil, nil))
	require.Len(t, found, 1)
}

func TestComplexRoutine(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddRoutine(catalog.Routine{FQN: catalog.NewFQN("dbo", "sp_Big"), ComplexityScore: 75})
	cat, err := b.Build()
	require.NoError(t, err)

	found := ComplexRoutine(cat, depgraph.Build(nil, nil))
	require.Len(t, found, 1)
	assert.Equal(t, SeverityMedium, found[0].Severity)
}

func TestAntiPatternsDetector(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddRoutine(catalog.Routine{
		FQN:          catalog.NewFQN("dbo", "sp_Legacy"),
		AntiPatterns: []catalog.AntiPattern{catalog.AntiPatternSelectStar, catalog.AntiPatternNolock},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	found := AntiPatterns(cat, depgraph.Build(nil, nil))
	require.Len(t, found, 1)
	assert.Equal(t, SeverityLow, found[0].Severity)
}
