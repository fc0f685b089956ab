package extract

import (
	"testing"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownNames(fqns ...catalog.FQN) []catalog.FQN { return fqns }

func TestExtract_ScenarioA_JoinExtraction(t *testing.T) {
	students := catalog.NewFQN("dbo", "Students")
	enrollments := catalog.NewFQN("dbo", "Enrollments")

	res := Extract(Input{
		Body: `SELECT s.Name FROM dbo.Students s INNER JOIN dbo.Enrollments e
		       ON s.StudentId = e.StudentId WHERE s.Active = 1`,
		DefaultSchema: "dbo",
		KnownNames:    knownNames(students, enrollments),
	})

	require.Len(t, res.Referenced, 2)
	assert.True(t, res.Referenced[0].Equal(enrollments))
	assert.True(t, res.Referenced[1].Equal(students))

	require.Len(t, res.Joins, 1)
	assert.True(t, res.Joins[0].Left.Equal(enrollments))
	assert.True(t, res.Joins[0].Right.Equal(students))

	assert.True(t, res.CRUD[students.Key()].Read)
	assert.True(t, res.CRUD[enrollments.Key()].Read)
	assert.Empty(t, res.AntiPatterns)
}

func TestExtract_ScenarioB_AntiPatternDetection(t *testing.T) {
	users := catalog.NewFQN("dbo", "Users")

	res := Extract(Input{
		Body:          `SELECT * FROM dbo.Users WITH (NOLOCK)`,
		DefaultSchema: "dbo",
		KnownNames:    knownNames(users),
	})

	require.Len(t, res.Referenced, 1)
	assert.True(t, res.Referenced[0].Equal(users))
	assert.ElementsMatch(t, []catalog.AntiPattern{
		catalog.AntiPatternSelectStar,
		catalog.AntiPatternNolock,
	}, res.AntiPatterns)
}

func TestExtract_StringLiteralsNeverYieldIdentifiers(t *testing.T) {
	// A table-shaped name inside a string literal must never surface as
	// a reference (testable property #8).
	decoy := catalog.NewFQN("dbo", "Decoy")
	real := catalog.NewFQN("dbo", "Users")

	res := Extract(Input{
		Body:          `SELECT * FROM dbo.Users WHERE Name = 'dbo.Decoy'`,
		DefaultSchema: "dbo",
		KnownNames:    knownNames(real, decoy),
	})

	require.Len(t, res.Referenced, 1)
	assert.True(t, res.Referenced[0].Equal(real))
}

func TestExtract_CommentsNeverContributeReferences(t *testing.T) {
	real := catalog.NewFQN("dbo", "Users")
	decoy := catalog.NewFQN("dbo", "Decoy")

	res := Extract(Input{
		Body: `-- FROM dbo.Decoy
		       SELECT * FROM dbo.Users /* JOIN dbo.Decoy ON 1=1 */`,
		DefaultSchema: "dbo",
		KnownNames:    knownNames(real, decoy),
	})

	require.Len(t, res.Referenced, 1)
	assert.True(t, res.Referenced[0].Equal(real))
}

func TestExtract_IsIdempotent(t *testing.T) {
	students := catalog.NewFQN("dbo", "Students")
	enrollments := catalog.NewFQN("dbo", "Enrollments")
	in := Input{
		Body: `SELECT s.Name FROM dbo.Students s INNER JOIN dbo.Enrollments e
		       ON s.StudentId = e.StudentId`,
		DefaultSchema: "dbo",
		KnownNames:    knownNames(students, enrollments),
	}

	first := Extract(in)
	second := Extract(in)
	assert.Equal(t, first.Referenced, second.Referenced)
	assert.Equal(t, first.Joins, second.Joins)
	assert.Equal(t, first.AntiPatterns, second.AntiPatterns)
}

func TestExtract_CTEExcludedFromReferences(t *testing.T) {
	users := catalog.NewFQN("dbo", "Users")

	res := Extract(Input{
		Body: `WITH RecentUsers AS (SELECT Id FROM dbo.Users WHERE CreatedAt > '2020-01-01')
		       SELECT * FROM RecentUsers`,
		DefaultSchema: "dbo",
		KnownNames:    knownNames(users),
	})

	require.Len(t, res.Referenced, 1)
	assert.True(t, res.Referenced[0].Equal(users))
}

func TestExtract_InsertUpdateDeleteCRUD(t *testing.T) {
	orders := catalog.NewFQN("dbo", "Orders")
	archive := catalog.NewFQN("dbo", "OrdersArchive")

	res := Extract(Input{
		Body: `INSERT INTO dbo.OrdersArchive SELECT * FROM dbo.Orders;
		       UPDATE dbo.Orders SET Status = 'done';
		       DELETE FROM dbo.Orders WHERE Status = 'cancelled';`,
		DefaultSchema: "dbo",
		KnownNames:    knownNames(orders, archive),
	})

	flags := res.CRUD[orders.Key()]
	assert.True(t, flags.Read)
	assert.True(t, flags.Update)
	assert.True(t, flags.Delete)
	assert.True(t, res.CRUD[archive.Key()].Create)
}

func TestExtract_AmbiguousUnqualifiedNameWarns(t *testing.T) {
	a := catalog.NewFQN("dbo", "Users")
	b := catalog.NewFQN("sales", "Users")

	res := Extract(Input{
		Body:          `SELECT * FROM Users`,
		DefaultSchema: "reporting",
		KnownNames:    knownNames(a, b),
	})

	assert.Empty(t, res.Referenced)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "Users", res.Warnings[0].Identifier)
}

func TestExtract_CalledRoutines(t *testing.T) {
	res := Extract(Input{
		Body:          `EXEC dbo.sp_RecalculateTotals; EXECUTE sales.sp_SyncInventory;`,
		DefaultSchema: "dbo",
	})

	require.Len(t, res.CalledRoutines, 2)
	assert.True(t, res.CalledRoutines[0].Equal(catalog.NewFQN("dbo", "sp_RecalculateTotals")))
	assert.True(t, res.CalledRoutines[1].Equal(catalog.NewFQN("sales", "sp_SyncInventory")))
}

func TestExtract_DynamicSQLAntiPattern(t *testing.T) {
	res := Extract(Input{
		Body:          `EXEC sp_executesql @sql`,
		DefaultSchema: "dbo",
	})
	assert.Contains(t, res.AntiPatterns, catalog.AntiPatternDynamicSQL)
}

func TestExtract_GlobalTempTableAntiPattern(t *testing.T) {
	res := Extract(Input{
		Body:          `SELECT * INTO ##Scratch FROM dbo.Users`,
		DefaultSchema: "dbo",
		KnownNames:    knownNames(catalog.NewFQN("dbo", "Users")),
	})
	assert.Contains(t, res.AntiPatterns, catalog.AntiPatternGlobalTempTable)
}
