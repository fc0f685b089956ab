package health_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/health"
	"github.com/dbforensic/dbforensic/issues"
)

// Scenario F: 2 tables missing PK, 5 FKs missing an index, 1 SCC,
// 3 complex routines. Penalty = 2*5 + 5*2 + 1*10 + 3*2 = 36. No
// bonuses -> score 64, band fair.
func TestScore_ScenarioF(t *testing.T) {
	cat, err := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo").Build()
	assert.NoError(t, err)

	all := []issues.Issue{
		{ID: "MissingPK:1", Detector: "MissingPK", Severity: issues.SeverityHigh},
		{ID: "MissingPK:2", Detector: "MissingPK", Severity: issues.SeverityHigh},
		{ID: "MissingFKIndex:1", Detector: "MissingFKIndex", Severity: issues.SeverityHigh},
		{ID: "MissingFKIndex:2", Detector: "MissingFKIndex", Severity: issues.SeverityHigh},
		{ID: "MissingFKIndex:3", Detector: "MissingFKIndex", Severity: issues.SeverityHigh},
		{ID: "MissingFKIndex:4", Detector: "MissingFKIndex", Severity: issues.SeverityHigh},
		{ID: "MissingFKIndex:5", Detector: "MissingFKIndex", Severity: issues.SeverityHigh},
		{ID: "CircularDependency:1", Detector: "CircularDependency", Severity: issues.SeverityHigh},
		{ID: "ComplexRoutine:1", Detector: "ComplexRoutine", Severity: issues.SeverityMedium},
		{ID: "ComplexRoutine:2", Detector: "ComplexRoutine", Severity: issues.SeverityMedium},
		{ID: "ComplexRoutine:3", Detector: "ComplexRoutine", Severity: issues.SeverityMedium},
	}

	b := health.Score(cat, all)
	assert.Equal(t, 36.0, b.Penalty)
	assert.Equal(t, 64, b.Score)
	assert.Equal(t, health.BandFair, b.Band)
}

func TestScore_ClampedToRange(t *testing.T) {
	cat, err := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo").Build()
	assert.NoError(t, err)

	var all []issues.Issue
	for i := 0; i < 50; i++ {
		all = append(all, issues.Issue{ID: "CircularDependency:x", Detector: "CircularDependency"})
	}
	b := health.Score(cat, all)
	assert.GreaterOrEqual(t, b.Score, 0)
	assert.LessOrEqual(t, b.Score, 100)
	assert.Equal(t, health.BandCritical, b.Band)
}

func TestScore_EmptyCatalogIsExcellent(t *testing.T) {
	cat, err := catalog.NewBuilder(catalog.ProviderSqlServer, "dbo").Build()
	assert.NoError(t, err)

	b := health.Score(cat, nil)
	assert.Equal(t, 100, b.Score)
	assert.Equal(t, health.BandExcellent, b.Band)
}
