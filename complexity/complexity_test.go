package complexity

import (
	"strings"
	"testing"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/stretchr/testify/assert"
)

func TestScore_EmptyBodyIsSimple(t *testing.T) {
	b := Score("")
	assert.Equal(t, 0.0, b.Total)
	assert.Equal(t, catalog.ComplexitySimple, b.Category)
}

func TestScore_CategoryBoundaries(t *testing.T) {
	assert.Equal(t, catalog.ComplexitySimple, categorize(19.9))
	assert.Equal(t, catalog.ComplexityMedium, categorize(20))
	assert.Equal(t, catalog.ComplexityMedium, categorize(50))
	assert.Equal(t, catalog.ComplexityComplex, categorize(50.1))
}

func TestScore_JoinsCountedAndCapped(t *testing.T) {
	body := strings.Repeat("SELECT 1 FROM a JOIN b ON a.id = b.id JOIN c ON b.id = c.id\n", 1)
	b := Score(body)
	assert.Equal(t, 6.0, b.Joins) // 2 joins * 3

	manyJoins := strings.Repeat("JOIN x ON 1 = 1 ", 20)
	b2 := Score(manyJoins)
	assert.Equal(t, joinCap, b2.Joins)
}

func TestScore_StringLiteralsDoNotInflateScore(t *testing.T) {
	body := `SELECT 'this text contains the word JOIN and WHILE and CASE WHEN' AS note`
	b := Score(body)
	assert.Equal(t, 0.0, b.Joins)
	assert.Equal(t, 0.0, b.ControlFlow)
}

func TestScore_CommentsDoNotInflateScore(t *testing.T) {
	body := "-- JOIN JOIN JOIN\nSELECT 1"
	b := Score(body)
	assert.Equal(t, 0.0, b.Joins)
}

func TestScore_DynamicSQLIsFlatPoints(t *testing.T) {
	b := Score("EXEC sp_executesql @sql")
	assert.Equal(t, dynamicSQLPts, b.DynamicSQL)
}

func TestScore_TempTablesCountedAsDistinct(t *testing.T) {
	b := Score("SELECT * INTO #a FROM x; SELECT * FROM #a; SELECT * INTO #b FROM y;")
	assert.Equal(t, 4.0, b.TempTables) // 2 distinct * 2
}

func TestScore_SubqueryDepth(t *testing.T) {
	body := `SELECT * FROM (SELECT * FROM (SELECT id FROM t) inner2) outer1`
	b := Score(body)
	assert.Equal(t, 10.0, b.Subqueries) // depth 2 * 5
}
