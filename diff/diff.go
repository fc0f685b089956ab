package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/dbforensic/dbforensic/errs"
)

// Build computes the ChangeSet between source (desired) and target
// (current), consulting targetGraph for impact-based risk assignment.
// The comparison order is: tables/columns, indexes/FKs,
// routines/views — applied in that order (unique constraints are not
// compared); the final Changes slice is then re-sorted into the migration-step order
// for deterministic, diffable output.
func Build(source, target catalog.Catalog, targetGraph depgraph.Graph) ChangeSet {
	var changes []Change
	var warnings []errs.DiffMismatchWarning

	srcTables := source.Tables()
	tgtTables := target.Tables()
	srcTableSet := toTableSet(srcTables)
	tgtTableSet := toTableSet(tgtTables)

	for _, t := range srcTables {
		if _, ok := tgtTableSet[t.FQN.Key()]; !ok {
			changes = append(changes, TableAdded{base: base{OpKind: "table_added", Level: RiskNone}, Table: t})
		}
	}
	for _, t := range tgtTables {
		if _, ok := srcTableSet[t.FQN.Key()]; !ok {
			changes = append(changes, TableRemoved{base: base{OpKind: "table_removed", Level: RiskCritical}, Table: t})
		}
	}

	for _, st := range srcTables {
		tt, ok := tgtTableSet[st.FQN.Key()]
		if !ok {
			continue
		}
		tableChanges, tableWarnings := diffTable(st, tt, targetGraph)
		changes = append(changes, tableChanges...)
		warnings = append(warnings, tableWarnings...)
	}

	srcRoutines := toRoutineSet(source.Routines())
	tgtRoutines := toRoutineSet(target.Routines())
	for key, r := range srcRoutines {
		if _, ok := tgtRoutines[key]; !ok {
			changes = append(changes, RoutineAdded{base: base{OpKind: "routine_added", Level: RiskNone}, Routine: r.FQN, Kind: r.Kind})
		}
	}
	for key, r := range tgtRoutines {
		sr, ok := srcRoutines[key]
		if !ok {
			affected := impactOf(targetGraph, routineRef(r))
			changes = append(changes, RoutineRemoved{
				base:     base{OpKind: "routine_removed", Level: impactRisk(affected)},
				Routine:  r.FQN,
				Kind:     r.Kind,
				Affected: affected,
			})
			continue
		}
		if normalizeBody(sr.Body) != normalizeBody(r.Body) {
			affected := impactOf(targetGraph, routineRef(r))
			changes = append(changes, RoutineBodyChanged{
				base:     base{OpKind: "routine_body_changed", Level: bodyChangeRisk(affected)},
				Routine:  r.FQN,
				Affected: affected,
			})
		}
	}

	srcViews := toViewSet(source.Views())
	tgtViews := toViewSet(target.Views())
	for key, v := range tgtViews {
		sv, ok := srcViews[key]
		if !ok {
			continue // view add/remove has no dedicated Change variant; treated as a routine-equivalent no-op here
		}
		if normalizeBody(sv.Body) != normalizeBody(v.Body) {
			affected := impactOf(targetGraph, depgraph.ObjectRef{Kind: depgraph.KindView, FQN: v.FQN})
			changes = append(changes, ViewBodyChanged{
				base:     base{OpKind: "view_body_changed", Level: bodyChangeRisk(affected)},
				View:     v.FQN,
				Affected: affected,
			})
		}
	}

	changes = stableSortChanges(changes)

	summary := summarize(changes)
	return ChangeSet{Changes: changes, Summary: summary, Warnings: warnings}
}

func toTableSet(tables []catalog.Table) map[string]catalog.Table {
	m := make(map[string]catalog.Table, len(tables))
	for _, t := range tables {
		m[t.FQN.Key()] = t
	}
	return m
}

func toRoutineSet(routines []catalog.Routine) map[string]catalog.Routine {
	m := make(map[string]catalog.Routine, len(routines))
	for _, r := range routines {
		m[r.FQN.Key()] = r
	}
	return m
}

func toViewSet(views []catalog.View) map[string]catalog.View {
	m := make(map[string]catalog.View, len(views))
	for _, v := range views {
		m[v.FQN.Key()] = v
	}
	return m
}

func routineRef(r catalog.Routine) depgraph.ObjectRef {
	kind := depgraph.KindProcedure
	if r.Kind == catalog.RoutineKindFunction {
		kind = depgraph.KindFunction
	}
	return depgraph.ObjectRef{Kind: kind, FQN: r.FQN}
}

func impactOf(g depgraph.Graph, ref depgraph.ObjectRef) []depgraph.ObjectRef {
	return g.Impact(ref)
}

// impactRisk bands a ColumnRemoved/RoutineRemoved's impact set:
// 0 -> Low, 1-2 -> High, >=3 or contains a view -> Critical.
func impactRisk(affected []depgraph.ObjectRef) RiskLevel {
	if len(affected) == 0 {
		return RiskLow
	}
	for _, a := range affected {
		if a.Kind == depgraph.KindView {
			return RiskCritical
		}
	}
	if len(affected) <= 2 {
		return RiskHigh
	}
	return RiskCritical
}

func bodyChangeRisk(affected []depgraph.ObjectRef) RiskLevel {
	if len(affected) >= 1 {
		return RiskMedium
	}
	return RiskLow
}

// diffTable compares one table present in both snapshots: columns,
// indexes and foreign keys, in that order. Unique constraints are not
// compared.
func diffTable(source, target catalog.Table, targetGraph depgraph.Graph) ([]Change, []errs.DiffMismatchWarning) {
	var changes []Change
	var warnings []errs.DiffMismatchWarning

	srcCols := columnsByName(source)
	tgtCols := columnsByName(target)

	removedCols := map[string]bool{}

	var srcNames, tgtNames []string
	for name := range srcCols {
		srcNames = append(srcNames, name)
	}
	for name := range tgtCols {
		tgtNames = append(tgtNames, name)
	}
	sort.Strings(srcNames)
	sort.Strings(tgtNames)

	for _, name := range srcNames {
		if _, ok := tgtCols[name]; !ok {
			c := srcCols[name]
			changes = append(changes, ColumnAdded{
				base:   base{OpKind: "column_added", Level: columnAddedRisk(c, target)},
				Table:  target.FQN,
				Column: c,
			})
		}
	}
	for _, name := range tgtNames {
		tc, ok := tgtCols[name]
		if !ok {
			continue
		}
		sc, ok := srcCols[name]
		if !ok {
			removedCols[strings.ToLower(tc.Name)] = true
			affected := columnImpact(targetGraph, target.FQN)
			changes = append(changes, ColumnRemoved{
				base:     base{OpKind: "column_removed", Level: impactRisk(affected)},
				Table:    target.FQN,
				Column:   tc,
				Affected: affected,
			})
			continue
		}
		colChanges, colWarnings := diffColumn(target.FQN, tc, sc)
		changes = append(changes, colChanges...)
		warnings = append(warnings, colWarnings...)
	}

	changes = append(changes, diffIndexes(source, target, removedCols)...)
	changes = append(changes, diffForeignKeys(source, target)...)

	return changes, warnings
}

func columnsByName(t catalog.Table) map[string]catalog.Column {
	m := make(map[string]catalog.Column, len(t.Columns))
	for _, c := range t.Columns {
		m[strings.ToLower(c.Name)] = c
	}
	return m
}

// columnImpact approximates impact(table.column): the dependency graph
// has table nodes but no per-column nodes, so the engine uses the
// owning table's impact set as a proxy.
func columnImpact(g depgraph.Graph, table catalog.FQN) []depgraph.ObjectRef {
	return g.Impact(depgraph.ObjectRef{Kind: depgraph.KindTable, FQN: table})
}

func columnAddedRisk(c catalog.Column, target catalog.Table) RiskLevel {
	if c.Nullable || c.DefaultExpr != "" {
		return RiskNone
	}
	if target.HasRowCount && target.RowCount > 0 {
		return RiskHigh
	}
	return RiskLow
}

func diffColumn(table catalog.FQN, before, after catalog.Column) ([]Change, []errs.DiffMismatchWarning) {
	var changes []Change
	var warnings []errs.DiffMismatchWarning

	if !dataTypeEqual(before.Type, after.Type) {
		classification, ok := classifyTypeChange(before.Type, after.Type)
		if !ok {
			warnings = append(warnings, errs.DiffMismatchWarning{
				Object:  table.String() + "." + after.Name,
				Message: "cannot classify type change from " + before.Type.Raw + " to " + after.Type.Raw + " as widening or narrowing",
			})
			classification = "kind_change"
		}
		risk := RiskLow
		if classification != "widening" {
			risk = RiskHigh
		}
		changes = append(changes, ColumnModified{
			base:           base{OpKind: "column_modified", Level: risk},
			Table:          table,
			Column:         after.Name,
			Field:          "type",
			Before:         before.Type.Raw,
			After:          after.Type.Raw,
			Classification: classification,
		})
	}

	if before.Nullable != after.Nullable {
		risk := RiskLow // NOT NULL -> NULL
		if before.Nullable && !after.Nullable {
			risk = RiskHigh // NULL -> NOT NULL
		}
		changes = append(changes, ColumnModified{
			base:   base{OpKind: "column_modified", Level: risk},
			Table:  table,
			Column: after.Name,
			Field:  "nullability",
			Before: fmt.Sprintf("%v", before.Nullable),
			After:  fmt.Sprintf("%v", after.Nullable),
		})
	}

	if before.IsIdentity != after.IsIdentity {
		changes = append(changes, ColumnModified{
			base:   base{OpKind: "column_modified", Level: RiskMedium},
			Table:  table,
			Column: after.Name,
			Field:  "identity",
			Before: fmt.Sprintf("%v", before.IsIdentity),
			After:  fmt.Sprintf("%v", after.IsIdentity),
		})
	}

	if before.DefaultExpr != after.DefaultExpr {
		changes = append(changes, DefaultChanged{
			base:   base{OpKind: "default_changed", Level: RiskLow},
			Table:  table,
			Column: after.Name,
			Before: before.DefaultExpr,
			After:  after.DefaultExpr,
		})
	}

	return changes, warnings
}

func dataTypeEqual(a, b catalog.DataType) bool {
	if a.Kind != b.Kind || a.Raw != b.Raw {
		return false
	}
	return intPtrEqual(a.Length, b.Length) && intPtrEqual(a.Precision, b.Precision) && intPtrEqual(a.Scale, b.Scale)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func diffIndexes(source, target catalog.Table, removedCols map[string]bool) []Change {
	var changes []Change
	srcIx := indexesByName(source)
	tgtIx := indexesByName(target)

	var srcNames, tgtNames []string
	for n := range srcIx {
		srcNames = append(srcNames, n)
	}
	for n := range tgtIx {
		tgtNames = append(tgtNames, n)
	}
	sort.Strings(srcNames)
	sort.Strings(tgtNames)

	for _, n := range srcNames {
		if _, ok := tgtIx[n]; !ok {
			ix := srcIx[n]
			changes = append(changes, IndexAdded{base: base{OpKind: "index_added", Level: RiskLow}, Table: target.FQN, Index: ix})
		}
	}
	for _, n := range tgtNames {
		if _, ok := srcIx[n]; !ok {
			ix := tgtIx[n]
			risk := RiskMedium
			if removedCols[strings.ToLower(ix.LeadingColumn())] {
				risk = RiskLow
			}
			changes = append(changes, IndexRemoved{base: base{OpKind: "index_removed", Level: risk}, Table: target.FQN, Index: ix})
		}
	}
	return changes
}

func indexesByName(t catalog.Table) map[string]catalog.Index {
	m := make(map[string]catalog.Index, len(t.Indexes))
	for _, ix := range t.Indexes {
		m[strings.ToLower(ix.Name)] = ix
	}
	return m
}

func diffForeignKeys(source, target catalog.Table) []Change {
	var changes []Change
	srcFK := fksByName(source)
	tgtFK := fksByName(target)

	var srcNames, tgtNames []string
	for n := range srcFK {
		srcNames = append(srcNames, n)
	}
	for n := range tgtFK {
		tgtNames = append(tgtNames, n)
	}
	sort.Strings(srcNames)
	sort.Strings(tgtNames)

	for _, n := range srcNames {
		if _, ok := tgtFK[n]; !ok {
			fk := srcFK[n]
			changes = append(changes, FKAdded{
				base:           base{OpKind: "fk_added", Level: RiskLow},
				Table:          target.FQN,
				ForeignKey:     fk,
				OrphanCheckSQL: orphanCheckSQL(target.FQN, fk),
			})
		}
	}
	for _, n := range tgtNames {
		if _, ok := srcFK[n]; !ok {
			fk := tgtFK[n]
			changes = append(changes, FKRemoved{base: base{OpKind: "fk_removed", Level: RiskLow}, Table: target.FQN, ForeignKey: fk})
		}
	}
	return changes
}

func fksByName(t catalog.Table) map[string]catalog.ForeignKey {
	m := make(map[string]catalog.ForeignKey, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		m[strings.ToLower(fk.Name)] = fk
	}
	return m
}

// orphanCheckSQL renders a read-only predicate that would find rows
// violating the new FK — the migration step, not the core, executes
// it.
func orphanCheckSQL(table catalog.FQN, fk catalog.ForeignKey) string {
	local := strings.Join(fk.Columns, ", ")
	var conds []string
	for i, col := range fk.Columns {
		ref := fk.ReferencedColumn[i]
		conds = append(conds, fmt.Sprintf("r.%s = t.%s", ref, col))
	}
	return fmt.Sprintf(
		"SELECT %s FROM %s t WHERE NOT EXISTS (SELECT 1 FROM %s r WHERE %s) AND (%s) IS NOT NULL",
		local, table.String(), fk.ReferencedTable.String(), strings.Join(conds, " AND "), local,
	)
}

var orderIndex = map[string]int{
	"table_added":          0,
	"column_added":         1,
	"column_modified":      2,
	"default_changed":      2,
	"index_added":          3,
	"fk_added":             4,
	"routine_added":        5,
	"routine_removed":      5,
	"routine_body_changed": 5,
	"view_body_changed":    5,
	"index_removed":        6,
	"fk_removed":           7,
	"column_removed":       8,
	"table_removed":        9,
}

func stableSortChanges(changes []Change) []Change {
	sort.SliceStable(changes, func(i, j int) bool {
		oi, oj := orderIndex[changes[i].Kind()], orderIndex[changes[j].Kind()]
		if oi != oj {
			return oi < oj
		}
		return changeKey(changes[i]) < changeKey(changes[j])
	})
	return changes
}

// changeKey gives a stable secondary sort key so ties within a step
// order by affected object, then column where applicable.
func changeKey(c Change) string {
	switch v := c.(type) {
	case TableAdded:
		return v.Table.FQN.Key()
	case TableRemoved:
		return v.Table.FQN.Key()
	case ColumnAdded:
		return v.Table.Key() + "." + strings.ToLower(v.Column.Name)
	case ColumnRemoved:
		return v.Table.Key() + "." + strings.ToLower(v.Column.Name)
	case ColumnModified:
		return v.Table.Key() + "." + strings.ToLower(v.Column) + "." + v.Field
	case DefaultChanged:
		return v.Table.Key() + "." + strings.ToLower(v.Column)
	case IndexAdded:
		return v.Table.Key() + "." + strings.ToLower(v.Index.Name)
	case IndexRemoved:
		return v.Table.Key() + "." + strings.ToLower(v.Index.Name)
	case FKAdded:
		return v.Table.Key() + "." + strings.ToLower(v.ForeignKey.Name)
	case FKRemoved:
		return v.Table.Key() + "." + strings.ToLower(v.ForeignKey.Name)
	case RoutineAdded:
		return v.Routine.Key()
	case RoutineRemoved:
		return v.Routine.Key()
	case RoutineBodyChanged:
		return v.Routine.Key()
	case ViewBodyChanged:
		return v.View.Key()
	default:
		return ""
	}
}

func summarize(changes []Change) ChangeSummary {
	summary := ChangeSummary{CountByKind: map[string]int{}}
	for _, c := range changes {
		summary.CountByKind[c.Kind()]++
		summary.Total++
		summary.OverallRisk = maxRisk(summary.OverallRisk, c.Risk())
	}
	return summary
}
