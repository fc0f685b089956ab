package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/dbforensic/dbforensic/diff"
	"github.com/dbforensic/dbforensic/relate"
)

func studentsTable() catalog.Table {
	return catalog.Table{
		FQN:        catalog.NewFQN("dbo", "Students"),
		Columns:    []catalog.Column{{Name: "StudentId", Type: catalog.DataType{Kind: catalog.TypeKindInteger, Raw: "int"}}},
		PrimaryKey: []string{"StudentId"},
	}
}

func buildCatalog(t catalog.Table, routines ...catalog.Routine) catalog.Catalog {
	b := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo").AddTable(t)
	for _, r := range routines {
		b = b.AddRoutine(r)
	}
	cat, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cat
}

func graphFor(cat catalog.Catalog) depgraph.Graph {
	edges := relate.Build(cat)
	var nodes []depgraph.ObjectRef
	for _, t := range cat.Tables() {
		nodes = append(nodes, depgraph.ObjectRef{Kind: depgraph.KindTable, FQN: t.FQN})
	}
	for _, r := range cat.Routines() {
		kind := depgraph.KindProcedure
		if r.Kind == catalog.RoutineKindFunction {
			kind = depgraph.KindFunction
		}
		nodes = append(nodes, depgraph.ObjectRef{Kind: kind, FQN: r.FQN})
	}
	for _, v := range cat.Views() {
		nodes = append(nodes, depgraph.ObjectRef{Kind: depgraph.KindView, FQN: v.FQN})
	}
	return depgraph.Build(nodes, edges)
}

func TestDiff_IdentityIsEmpty(t *testing.T) {
	cat := buildCatalog(studentsTable())
	g := graphFor(cat)

	cs := diff.Build(cat, cat, g)

	assert.Empty(t, cs.Changes)
	assert.Equal(t, 0, cs.Summary.Total)
	assert.Equal(t, diff.RiskNone, cs.Summary.OverallRisk)
}

func TestDiff_TableRemovedIsCritical(t *testing.T) {
	target := buildCatalog(studentsTable())
	source := buildCatalog(catalog.Table{FQN: catalog.NewFQN("dbo", "Other")})
	g := graphFor(target)

	cs := diff.Build(source, target, g)

	require.Len(t, cs.Changes, 2) // TableAdded(Other), TableRemoved(Students)
	var sawRemoved bool
	for _, c := range cs.Changes {
		if tr, ok := c.(diff.TableRemoved); ok {
			sawRemoved = true
			assert.Equal(t, diff.RiskCritical, tr.Risk())
		}
	}
	assert.True(t, sawRemoved)
	assert.Equal(t, diff.RiskCritical, cs.Summary.OverallRisk)
}

// Scenario E: a column is removed from a table that a routine and a
// view reference; since the table's impact set contains the view, the
// ColumnRemoved risk must be Critical.
func TestDiff_ColumnRemovedCriticalWhenViewDepends(t *testing.T) {
	withCol := studentsTable()
	withCol.Columns = append(withCol.Columns, catalog.Column{
		Name: "LegacyCode", Type: catalog.DataType{Kind: catalog.TypeKindString, Raw: "varchar"}, Nullable: true,
	})

	routine1 := catalog.Routine{
		FQN:  catalog.NewFQN("dbo", "sp_SearchStudents"),
		Kind: catalog.RoutineKindProcedure,
		Body: "SELECT LegacyCode FROM dbo.Students",
	}
	// Populate the resolved reference artifacts the way the extractor
	// would, since this test builds the catalog directly.
	routine1.ReferencedTables = []catalog.FQN{withCol.FQN}

	cat, err := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo").
		AddTable(withCol).
		AddRoutine(routine1).
		AddView(catalog.View{FQN: catalog.NewFQN("dbo", "vw_StudentOverview"), Body: "x", References: []catalog.FQN{withCol.FQN}}).
		Build()
	require.NoError(t, err)

	withoutCol := studentsTable()
	sourceCat, err := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo").AddTable(withoutCol).Build()
	require.NoError(t, err)

	g := graphFor(cat)
	cs := diff.Build(sourceCat, cat, g)

	var found bool
	for _, c := range cs.Changes {
		if cr, ok := c.(diff.ColumnRemoved); ok && cr.Column.Name == "LegacyCode" {
			found = true
			assert.Equal(t, diff.RiskCritical, cr.Risk())
		}
	}
	assert.True(t, found, "expected a ColumnRemoved change for LegacyCode")
}

func TestDiff_ColumnAddedNullableIsNone(t *testing.T) {
	target := studentsTable()
	source := studentsTable()
	source.Columns = append(source.Columns, catalog.Column{Name: "Nickname", Nullable: true})

	sourceCat := buildCatalog(source)
	targetCat := buildCatalog(target)
	g := graphFor(targetCat)

	cs := diff.Build(sourceCat, targetCat, g)
	require.Len(t, cs.Changes, 1)
	assert.Equal(t, diff.RiskNone, cs.Changes[0].Risk())
}

func TestDiff_ColumnModifiedWidening(t *testing.T) {
	target := studentsTable()
	source := studentsTable()
	source.Columns[0].Type = catalog.DataType{Kind: catalog.TypeKindInteger, Raw: "bigint"}

	sourceCat := buildCatalog(source)
	targetCat := buildCatalog(target)
	g := graphFor(targetCat)

	cs := diff.Build(sourceCat, targetCat, g)
	require.Len(t, cs.Changes, 1)
	cm, ok := cs.Changes[0].(diff.ColumnModified)
	require.True(t, ok)
	assert.Equal(t, "widening", cm.Classification)
	assert.Equal(t, diff.RiskLow, cm.Risk())
}
