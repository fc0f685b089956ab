// Package health implements the weighted health scorer: a pure
// aggregator over the issue set (plus a couple of catalog-wide ratios
// it computes itself) that rolls up to a single score in [0, 100].
package health

import (
	"encoding/json"
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/issues"
)

// Band labels a score range 
type Band int

const (
	BandCritical Band = iota
	BandPoor
	BandFair
	BandGood
	BandExcellent
)

func (b Band) String() string {
	switch b {
	case BandCritical:
		return "critical"
	case BandPoor:
		return "poor"
	case BandFair:
		return "fair"
	case BandGood:
		return "good"
	case BandExcellent:
		return "excellent"
	default:
		return "unknown"
	}
}

func (b Band) MarshalJSON() ([]byte, error) { return json.Marshal(b.String()) }

func bandFor(score int) Band {
	switch {
	case score < 40:
		return BandCritical
	case score < 60:
		return BandPoor
	case score < 75:
		return BandFair
	case score < 90:
		return BandGood
	default:
		return BandExcellent
	}
}

// penaltyFor maps a detector name to its per-occurrence penalty. A
// detector absent from this table (UnusedIndex, OrphanColumn,
// EmptyTable and InconsistentNaming) contributes 0.
var penaltyFor = map[string]float64{
	"MissingPK":          5,
	"MissingFKIndex":     2,
	"DeadRoutine":        1,
	"CircularDependency": 10,
	"ComplexRoutine":     2,
	"DuplicateIndex":     1,
	"AntiPatterns":       0.5,
	"DeadTable":          2,
}

// Breakdown exposes the inputs to the final score, useful for
// --debug-dump and for pinning the Scenario F arithmetic in tests.
type Breakdown struct {
	Penalty           float64 `json:"penalty"`
	FKCoverageBonus   float64 `json:"fk_coverage_bonus"`
	NamingBonus       float64 `json:"naming_bonus"`
	FKCoverageRatio   float64 `json:"fk_coverage_ratio"`
	NamingConsistency float64 `json:"naming_consistency"`
	Score             int     `json:"score"`
	Band              Band    `json:"band"`
}

// Score computes the health score for a catalog given its already-run
// issue set, 
func Score(cat catalog.Catalog, all []issues.Issue) Breakdown {
	var b Breakdown

	for _, iss := range all {
		b.Penalty += penaltyFor[iss.Detector]
	}

	b.FKCoverageRatio = fkCoverageRatio(cat)
	if b.FKCoverageRatio >= 0.8 {
		b.FKCoverageBonus = 5
	}

	b.NamingConsistency = namingConsistency(cat)
	if b.NamingConsistency >= 0.9 {
		b.NamingBonus = 3
	}

	raw := 100 + b.FKCoverageBonus + b.NamingBonus - roundHalf(b.Penalty)
	b.Score = clamp(int(roundHalf(raw)), 0, 100)
	b.Band = bandFor(b.Score)
	return b
}

// roundHalf rounds to the nearest integer, halves away from zero —
// applied to the accumulated penalty and to the raw score before the
// clamp; AntiPatterns' 0.5-per-hit penalty is the sole source of
// fractional accumulation.
func roundHalf(v float64) float64 {
	if v >= 0 {
		return float64(int(v + 0.5))
	}
	return float64(int(v - 0.5))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// fkCoverageRatio is fks_defined / expected_fks_from_naming: the count
// of actual ForeignKey constraints against the count of columns that
// structurally look like FK candidates (the <Stem>Id/_id/ID shapes the
// naming heuristic of relate.Build also keys off).
func fkCoverageRatio(cat catalog.Catalog) float64 {
	var defined, candidates int
	for _, t := range cat.Tables() {
		defined += len(t.ForeignKeys)
		for _, c := range t.Columns {
			if isFKCandidateColumn(c.Name) {
				candidates++
			}
		}
	}
	if candidates == 0 {
		return 0 // nothing to measure: no naming-implied FKs, so no coverage bonus
	}
	return float64(defined) / float64(candidates)
}

// namingConsistency is the fraction of FK-candidate columns that use
// the PascalCase <Stem>Id spelling specifically — the one definition
// pinned here out of the two ad-hoc ways this ratio could be computed.
func namingConsistency(cat catalog.Catalog) float64 {
	var total, pascalForm int
	for _, t := range cat.Tables() {
		for _, c := range t.Columns {
			if !isFKCandidateColumn(c.Name) {
				continue
			}
			total++
			if strings.HasSuffix(c.Name, "Id") && !strings.Contains(c.Name, "_") {
				pascalForm++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(pascalForm) / float64(total)
}

func isFKCandidateColumn(name string) bool {
	for _, suffix := range []string{"Id", "_id", "ID"} {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return true
		}
	}
	return false
}
