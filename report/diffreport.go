package report

import (
	"github.com/google/uuid"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/diff"
)

// CatalogInfo is the DiffReport's lightweight description of one side
// of a comparison — enough for a reporter header, not a full dump.
type CatalogInfo struct {
	Provider      catalog.Provider `json:"provider"`
	DefaultSchema string           `json:"default_schema"`
	TableCount    int              `json:"table_count"`
	ViewCount     int              `json:"view_count"`
	RoutineCount  int              `json:"routine_count"`
}

func infoFor(cat catalog.Catalog) CatalogInfo {
	return CatalogInfo{
		Provider:      cat.Provider,
		DefaultSchema: cat.DefaultSchema,
		TableCount:    len(cat.Tables()),
		ViewCount:     len(cat.Views()),
		RoutineCount:  len(cat.Routines()),
	}
}

// DiffReport is the full assembled comparison between a source
// (desired) and target (current) catalog.
type DiffReport struct {
	RunID       uuid.UUID         `json:"run_id"`
	SourceInfo  CatalogInfo       `json:"source_info"`
	TargetInfo  CatalogInfo       `json:"target_info"`
	Changes     []diff.Change     `json:"changes"`
	Summary     diff.ChangeSummary `json:"summary"`
	OverallRisk diff.RiskLevel    `json:"overall_risk"`
}

// AssembleDiff bundles a computed ChangeSet with both catalogs' summary
// info into one immutable DiffReport.
func AssembleDiff(source, target catalog.Catalog, cs diff.ChangeSet) DiffReport {
	return DiffReport{
		RunID:       uuid.New(),
		SourceInfo:  infoFor(source),
		TargetInfo:  infoFor(target),
		Changes:     cs.Changes,
		Summary:     cs.Summary,
		OverallRisk: cs.Summary.OverallRisk,
	}
}
