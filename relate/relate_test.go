package relate

import (
	"testing"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intType() catalog.DataType { return catalog.DataType{Kind: catalog.TypeKindInteger} }

func TestBuild_ScenarioC_NamingInference(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{
		FQN: catalog.NewFQN("dbo", "Students"),
		Columns: []catalog.Column{
			{Name: "StudentId", Type: intType()},
		},
		PrimaryKey: []string{"StudentId"},
	})
	b.AddTable(catalog.Table{
		FQN: catalog.NewFQN("dbo", "Attendance"),
		Columns: []catalog.Column{
			{Name: "StudentId", Type: intType()},
		},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	edges := Build(cat)

	var found *depgraph.Edge
	for i := range edges {
		if edges[i].Kind == depgraph.EdgeNamingImplied {
			found = &edges[i]
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.Source.FQN.Equal(catalog.NewFQN("dbo", "Attendance")))
	assert.True(t, found.Target.FQN.Equal(catalog.NewFQN("dbo", "Students")))
	assert.Equal(t, uint8(95), found.Confidence)
}

func TestBuild_ExplicitFKSkipsNamingHeuristic(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{
		FQN: catalog.NewFQN("dbo", "Students"),
		Columns: []catalog.Column{
			{Name: "StudentId", Type: intType()},
		},
		PrimaryKey: []string{"StudentId"},
	})
	b.AddTable(catalog.Table{
		FQN: catalog.NewFQN("dbo", "Attendance"),
		Columns: []catalog.Column{
			{Name: "StudentId", Type: intType()},
		},
		ForeignKeys: []catalog.ForeignKey{
			{Name: "FK_Attendance_Students", Columns: []string{"StudentId"},
				ReferencedTable: catalog.NewFQN("dbo", "Students"), ReferencedColumn: []string{"StudentId"}},
		},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	edges := Build(cat)
	namingCount, fkCount := 0, 0
	for _, e := range edges {
		switch e.Kind {
		case depgraph.EdgeNamingImplied:
			namingCount++
		case depgraph.EdgeForeignKey:
			fkCount++
		}
	}
	assert.Equal(t, 0, namingCount)
	assert.Equal(t, 1, fkCount)
}

func TestBuild_IrregularPluralMatchIsWeakerConfidence(t *testing.T) {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{
		FQN:        catalog.NewFQN("dbo", "People"),
		Columns:    []catalog.Column{{Name: "PersonId", Type: intType()}},
		PrimaryKey: []string{"PersonId"},
	})
	b.AddTable(catalog.Table{
		FQN:     catalog.NewFQN("dbo", "Documents"),
		Columns: []catalog.Column{{Name: "PersonId", Type: intType()}},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	edges := Build(cat)
	found := false
	for _, e := range edges {
		if e.Kind == depgraph.EdgeNamingImplied {
			found = true
			assert.Equal(t, uint8(60), e.Confidence)
		}
	}
	assert.True(t, found)
}

func TestBuild_JoinEdgesAreSymmetric(t *testing.T) {
	students := catalog.NewFQN("dbo", "Students")
	enrollments := catalog.NewFQN("dbo", "Enrollments")

	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo")
	b.AddTable(catalog.Table{FQN: students, Columns: []catalog.Column{{Name: "StudentId", Type: intType()}}, PrimaryKey: []string{"StudentId"}})
	b.AddTable(catalog.Table{FQN: enrollments, Columns: []catalog.Column{{Name: "EnrollmentId", Type: intType()}}, PrimaryKey: []string{"EnrollmentId"}})
	b.AddRoutine(catalog.Routine{
		FQN:  catalog.NewFQN("dbo", "sp_Report"),
		Kind: catalog.RoutineKindProcedure,
		Joins: [][2]catalog.FQN{
			{students, enrollments},
		},
		ReferencedTables: []catalog.FQN{students, enrollments},
	})
	cat, err := b.Build()
	require.NoError(t, err)

	edges := Build(cat)
	forward, backward := false, false
	for _, e := range edges {
		if e.Kind != depgraph.EdgeJoins {
			continue
		}
		if e.Source.FQN.Equal(students) && e.Target.FQN.Equal(enrollments) {
			forward = true
		}
		if e.Source.FQN.Equal(enrollments) && e.Target.FQN.Equal(students) {
			backward = true
		}
	}
	assert.True(t, forward)
	assert.True(t, backward)
}
