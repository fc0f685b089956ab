// Package issues implements the built-in issue detectors: independent
// pure functions over a (Catalog, Graph) pair, each producing zero or
// more Issue records.
package issues

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
)

// Severity ranks an Issue's urgency. Higher values sort first in
// reports (severity desc, id asc).
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// Issue is one detector finding.
type Issue struct {
	ID             string                `json:"id"`
	Detector       string                `json:"detector"`
	Severity       Severity              `json:"severity"`
	Message        string                `json:"message"`
	Affected       []depgraph.ObjectRef  `json:"affected"`
	RemediationSQL string                `json:"remediation_sql,omitempty"`
}

func tableRef(fqn catalog.FQN) depgraph.ObjectRef {
	return depgraph.ObjectRef{Kind: depgraph.KindTable, FQN: fqn}
}

func makeID(detector string, primary depgraph.ObjectRef) string {
	return detector + ":" + primary.Key()
}

// Detector is the common signature every built-in detector satisfies —
// a registered list rather than string-keyed dispatch, per the
// redesign note on avoiding reflective lookup tables.
type Detector func(cat catalog.Catalog, g depgraph.Graph) []Issue

// All lists the built-in detectors in a fixed, documented order. Their
// outputs are concatenated then re-sorted by (severity desc, id asc),
// so registration order here doesn't affect the final report.
var All = []Detector{
	MissingPK,
	MissingFKIndex,
	UnusedIndex,
	DuplicateIndex,
	DeadTable,
	DeadRoutine,
	OrphanColumn,
	EmptyTable,
	CircularDependency,
	ComplexRoutine,
	AntiPatterns,
	InconsistentNaming,
}

// Run executes every registered detector and returns their combined
// findings, ordered by (severity desc, id asc) for deterministic,
// diffable reports.
func Run(cat catalog.Catalog, g depgraph.Graph) []Issue {
	var all []Issue
	for _, d := range All {
		all = append(all, d(cat, g)...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Severity != all[j].Severity {
			return all[i].Severity > all[j].Severity
		}
		return all[i].ID < all[j].ID
	})
	return all
}

func MissingPK(cat catalog.Catalog, _ depgraph.Graph) []Issue {
	var out []Issue
	for _, t := range cat.Tables() {
		if len(t.PrimaryKey) == 0 && !t.IsStaging {
			ref := tableRef(t.FQN)
			out = append(out, Issue{
				ID:       makeID("MissingPK", ref),
				Detector: "MissingPK",
				Severity: SeverityHigh,
				Message:  t.FQN.String() + " has no primary key",
				Affected: []depgraph.ObjectRef{ref},
			})
		}
	}
	return out
}

func MissingFKIndex(cat catalog.Catalog, _ depgraph.Graph) []Issue {
	var out []Issue
	for _, t := range cat.Tables() {
		for _, fk := range t.ForeignKeys {
			if len(fk.Columns) == 0 {
				continue
			}
			leading := fk.Columns[0]
			if hasLeadingIndexOn(t, leading) {
				continue
			}
			ref := tableRef(t.FQN)
			out = append(out, Issue{
				ID:       makeID("MissingFKIndex", ref) + ":" + strings.ToLower(fk.Name),
				Detector: "MissingFKIndex",
				Severity: SeverityHigh,
				Message:  t.FQN.String() + "." + leading + " (FK " + fk.Name + ") has no leading-column index",
				Affected: []depgraph.ObjectRef{ref},
			})
		}
	}
	return out
}

func hasLeadingIndexOn(t catalog.Table, column string) bool {
	for _, ix := range t.Indexes {
		if strings.EqualFold(ix.LeadingColumn(), column) {
			return true
		}
	}
	return false
}

func isPKIndex(t catalog.Table, ix catalog.Index) bool {
	if len(ix.Columns) != len(t.PrimaryKey) {
		return false
	}
	for i, c := range ix.Columns {
		if !strings.EqualFold(c.Column, t.PrimaryKey[i]) {
			return false
		}
	}
	return true
}

func UnusedIndex(cat catalog.Catalog, _ depgraph.Graph) []Issue {
	var out []Issue
	for _, t := range cat.Tables() {
		for _, ix := range t.Indexes {
			if isPKIndex(t, ix) || !ix.HasUsageStats {
				continue
			}
			if ix.UsageSeeks == 0 && ix.UsageScans == 0 {
				ref := tableRef(t.FQN)
				out = append(out, Issue{
					ID:       makeID("UnusedIndex", ref) + ":" + strings.ToLower(ix.Name),
					Detector: "UnusedIndex",
					Severity: SeverityMedium,
					Message:  "index " + ix.Name + " on " + t.FQN.String() + " has no recorded seeks or scans",
					Affected: []depgraph.ObjectRef{ref},
				})
			}
		}
	}
	return out
}

func DuplicateIndex(cat catalog.Catalog, _ depgraph.Graph) []Issue {
	var out []Issue
	for _, t := range cat.Tables() {
		byLeading := map[string][]string{}
		for _, ix := range t.Indexes {
			key := strings.ToLower(ix.LeadingColumn())
			if key == "" {
				continue
			}
			byLeading[key] = append(byLeading[key], ix.Name)
		}
		var leadingCols []string
		for k := range byLeading {
			leadingCols = append(leadingCols, k)
		}
		sort.Strings(leadingCols)
		for _, col := range leadingCols {
			names := byLeading[col]
			if len(names) < 2 {
				continue
			}
			sort.Strings(names)
			ref := tableRef(t.FQN)
			out = append(out, Issue{
				ID:       makeID("DuplicateIndex", ref) + ":" + col,
				Detector: "DuplicateIndex",
				Severity: SeverityMedium,
				Message:  "indexes " + strings.Join(names, ", ") + " on " + t.FQN.String() + " share leading column " + col,
				Affected: []depgraph.ObjectRef{ref},
			})
		}
	}
	return out
}

func DeadTable(cat catalog.Catalog, g depgraph.Graph) []Issue {
	var out []Issue
	for _, t := range cat.Tables() {
		ref := tableRef(t.FQN)
		if len(g.NeighborsIn(ref)) == 0 {
			out = append(out, Issue{
				ID:       makeID("DeadTable", ref),
				Detector: "DeadTable",
				Severity: SeverityMedium,
				Message:  t.FQN.String() + " has no incoming references from routines, views or foreign keys",
				Affected: []depgraph.ObjectRef{ref},
			})
		}
	}
	return out
}

func DeadRoutine(cat catalog.Catalog, g depgraph.Graph) []Issue {
	var out []Issue
	for _, r := range cat.Routines() {
		ref := depgraph.ObjectRef{Kind: depgraph.KindProcedure, FQN: r.FQN}
		if r.Kind == catalog.RoutineKindFunction {
			ref.Kind = depgraph.KindFunction
		}
		calls := 0
		for _, e := range g.NeighborsIn(ref) {
			if e.Kind == depgraph.EdgeCalls {
				calls++
			}
		}
		if calls == 0 {
			out = append(out, Issue{
				ID:       makeID("DeadRoutine", ref),
				Detector: "DeadRoutine",
				Severity: SeverityMedium,
				Message:  r.FQN.String() + " has no incoming calls",
				Affected: []depgraph.ObjectRef{ref},
			})
		}
	}
	return out
}

// OrphanColumn flags a column C on table T that no routine or view body
// anywhere in the catalog referenced, directly or through a resolved
// alias. Column-level references are collected by the extractor
// alongside table references and CRUD attribution, so an alias like
// "o" in "o.total" resolves back to the table it was declared against
// before the two catalogs are compared here.
func OrphanColumn(cat catalog.Catalog, g depgraph.Graph) []Issue {
	referenced := map[string]map[string]bool{}
	mark := func(refs []catalog.ColumnRef) {
		for _, cr := range refs {
			set := referenced[cr.Table.Key()]
			if set == nil {
				set = map[string]bool{}
				referenced[cr.Table.Key()] = set
			}
			set[strings.ToLower(cr.Column)] = true
		}
	}
	for _, r := range cat.Routines() {
		mark(r.ColumnRefs)
	}
	for _, v := range cat.Views() {
		mark(v.ColumnRefs)
	}

	var out []Issue
	for _, t := range cat.Tables() {
		ref := tableRef(t.FQN)
		if len(g.NeighborsIn(ref)) == 0 {
			continue // DeadTable already covers fully-unreferenced tables
		}
		seen := referenced[t.FQN.Key()]
		for _, c := range t.Columns {
			key := strings.ToLower(c.Name)
			if seen[key] {
				continue
			}
			out = append(out, Issue{
				ID:       makeID("OrphanColumn", ref) + ":" + key,
				Detector: "OrphanColumn",
				Severity: SeverityLow,
				Message:  t.FQN.String() + "." + c.Name + " is not referenced by any routine or view body",
				Affected: []depgraph.ObjectRef{ref},
			})
		}
	}
	return out
}

func EmptyTable(cat catalog.Catalog, _ depgraph.Graph) []Issue {
	var out []Issue
	for _, t := range cat.Tables() {
		if t.HasRowCount && t.RowCount == 0 {
			ref := tableRef(t.FQN)
			out = append(out, Issue{
				ID:       makeID("EmptyTable", ref),
				Detector: "EmptyTable",
				Severity: SeverityLow,
				Message:  t.FQN.String() + " has zero rows",
				Affected: []depgraph.ObjectRef{ref},
			})
		}
	}
	return out
}

func CircularDependency(_ catalog.Catalog, g depgraph.Graph) []Issue {
	var out []Issue
	for _, cycle := range g.Cycles() {
		primary := cycle[0]
		names := make([]string, len(cycle))
		for i, n := range cycle {
			names[i] = n.FQN.String()
		}
		out = append(out, Issue{
			ID:       makeID("CircularDependency", primary),
			Detector: "CircularDependency",
			Severity: SeverityHigh,
			Message:  "circular dependency among " + strings.Join(names, " -> "),
			Affected: cycle,
		})
	}
	return out
}

func ComplexRoutine(cat catalog.Catalog, _ depgraph.Graph) []Issue {
	var out []Issue
	for _, r := range cat.Routines() {
		if r.ComplexityScore > 50 {
			ref := depgraph.ObjectRef{Kind: depgraph.KindProcedure, FQN: r.FQN}
			if r.Kind == catalog.RoutineKindFunction {
				ref.Kind = depgraph.KindFunction
			}
			out = append(out, Issue{
				ID:       makeID("ComplexRoutine", ref),
				Detector: "ComplexRoutine",
				Severity: SeverityMedium,
				Message:  r.FQN.String() + " has complexity score above 50",
				Affected: []depgraph.ObjectRef{ref},
			})
		}
	}
	return out
}

func AntiPatterns(cat catalog.Catalog, _ depgraph.Graph) []Issue {
	var out []Issue
	for _, r := range cat.Routines() {
		if len(r.AntiPatterns) == 0 {
			continue
		}
		ref := depgraph.ObjectRef{Kind: depgraph.KindProcedure, FQN: r.FQN}
		if r.Kind == catalog.RoutineKindFunction {
			ref.Kind = depgraph.KindFunction
		}
		names := make([]string, len(r.AntiPatterns))
		for i, ap := range r.AntiPatterns {
			names[i] = ap.String()
		}
		out = append(out, Issue{
			ID:       makeID("AntiPatterns", ref),
			Detector: "AntiPatterns",
			Severity: SeverityLow,
			Message:  r.FQN.String() + " exhibits: " + strings.Join(names, ", "),
			Affected: []depgraph.ObjectRef{ref},
		})
	}
	return out
}

// InconsistentNaming flags a stem (e.g. "student") whose <Stem>Id-shaped
// columns appear under more than one spelling convention across the
// database (StudentId vs student_id vs studentId).
func InconsistentNaming(cat catalog.Catalog, _ depgraph.Graph) []Issue {
	type occurrence struct {
		table catalog.FQN
		raw   string
	}
	byStem := map[string][]occurrence{}

	for _, t := range cat.Tables() {
		for _, c := range t.Columns {
			stem, ok := idStem(c.Name)
			if !ok {
				continue
			}
			key := strings.ToLower(stem)
			byStem[key] = append(byStem[key], occurrence{table: t.FQN, raw: c.Name})
		}
	}

	var stems []string
	for k := range byStem {
		stems = append(stems, k)
	}
	sort.Strings(stems)

	var out []Issue
	for _, stem := range stems {
		occs := byStem[stem]
		styles := map[string]bool{}
		for _, o := range occs {
			styles[namingStyle(o.raw)] = true
		}
		if len(styles) < 2 {
			continue
		}
		first := tableRef(occs[0].table)
		var forms []string
		seen := map[string]bool{}
		for _, o := range occs {
			if !seen[o.raw] {
				seen[o.raw] = true
				forms = append(forms, o.raw)
			}
		}
		sort.Strings(forms)
		out = append(out, Issue{
			ID:       makeID("InconsistentNaming", first) + ":" + stem,
			Detector: "InconsistentNaming",
			Severity: SeverityLow,
			Message:  "column naming for \"" + stem + "\" is inconsistent across the database: " + strings.Join(forms, ", "),
			Affected: []depgraph.ObjectRef{first},
		})
	}
	return out
}

func idStem(name string) (string, bool) {
	for _, suffix := range []string{"Id", "_id", "ID"} {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)], true
		}
	}
	return "", false
}

// namingStyle classifies a column's spelling convention: "snake" if it
// contains an underscore, "pascal" if it starts with an uppercase
// letter, "camel" otherwise.
func namingStyle(name string) string {
	if strings.Contains(name, "_") {
		return "snake"
	}
	if len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z' {
		return "pascal"
	}
	return "camel"
}
