package reporters

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/dbforensic/dbforensic/diff"
	"github.com/dbforensic/dbforensic/report"
)

// SQL renders a DiffReport as a migration script partitioned into 8
// numbered steps: new tables, new columns, modified columns, new
// indexes, new foreign keys, routine/view changes (as a commented
// manifest), removed indexes, removed columns. Table, column and index
// creates and drops, and FK drops, are existence-guarded (safe mode);
// column alterations and FK additions are not. Critical-risk drops are
// emitted commented out under a MANUAL REVIEW banner.
func SQL(w io.Writer, dr report.DiffReport) error {
	provider := dr.TargetInfo.Provider

	steps := [8][]string{}
	for _, c := range dr.Changes {
		switch v := c.(type) {
		case diff.TableAdded:
			steps[0] = append(steps[0], guardedCreateTable(provider, v.Table))
		case diff.ColumnAdded:
			steps[1] = append(steps[1], guardedAddColumn(provider, v.Table, v.Column))
		case diff.ColumnModified:
			steps[2] = append(steps[2], alterColumnStatement(provider, v))
		case diff.DefaultChanged:
			steps[2] = append(steps[2], alterDefaultStatement(provider, v))
		case diff.IndexAdded:
			steps[3] = append(steps[3], createIndexStatement(v.Table, v.Index))
		case diff.FKAdded:
			steps[4] = append(steps[4], addFKStatement(v))
		case diff.RoutineAdded:
			steps[5] = append(steps[5], fmt.Sprintf("-- routine added: %s (%s) — body not generated by this tool", v.Routine.String(), v.Kind.String()))
		case diff.RoutineRemoved:
			steps[5] = append(steps[5], manualReviewComment(fmt.Sprintf("routine removed: %s", v.Routine.String()), v.Risk(), v.Affected))
		case diff.RoutineBodyChanged:
			steps[5] = append(steps[5], fmt.Sprintf("-- routine body changed: %s — review manually", v.Routine.String()))
		case diff.ViewBodyChanged:
			steps[5] = append(steps[5], fmt.Sprintf("-- view body changed: %s — review manually", v.View.String()))
		case diff.IndexRemoved:
			steps[6] = append(steps[6], dropIndexStatement(provider, v))
		case diff.FKRemoved:
			steps[6] = append(steps[6], dropFKStatement(provider, v))
		case diff.ColumnRemoved:
			if v.Risk() == diff.RiskCritical {
				steps[7] = append(steps[7], manualReviewComment(fmt.Sprintf("column removed: %s.%s", v.Table.String(), v.Column.Name), v.Risk(), v.Affected))
			} else {
				steps[7] = append(steps[7], guardedDropColumn(provider, v.Table, v.Column.Name))
			}
		case diff.TableRemoved:
			steps[7] = append(steps[7], manualReviewComment(fmt.Sprintf("table removed: %s", v.Table.FQN.String()), v.Risk(), nil))
		}
	}

	titles := []string{
		"new tables", "new columns", "modified columns", "new indexes",
		"new foreign keys", "routine/view changes", "removed indexes", "removed columns",
	}

	beginTx, commitTx := transactionWrappers(provider)
	fmt.Fprintln(w, beginTx)
	fmt.Fprintln(w)

	for i, stmts := range steps {
		fmt.Fprintf(w, "-- Step %d: %s\n", i+1, titles[i])
		if len(stmts) == 0 {
			fmt.Fprintln(w, "-- (none)")
		}
		for _, s := range stmts {
			fmt.Fprintln(w, s)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, commitTx)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "-- Rollback script")
	fmt.Fprintln(w, "-- "+strings.Repeat("-", 60))
	for i := len(steps) - 1; i >= 0; i-- {
		for _, s := range steps[i] {
			fmt.Fprintf(w, "-- %s\n", s)
		}
	}

	return nil
}

func transactionWrappers(provider catalog.Provider) (string, string) {
	if provider == catalog.ProviderSqlServer {
		return "SET XACT_ABORT ON;\nBEGIN TRANSACTION;", "COMMIT TRANSACTION;"
	}
	return "BEGIN;", "COMMIT;"
}

func quoteIdent(provider catalog.Provider, name string) string {
	if provider == catalog.ProviderSqlServer {
		return "[" + name + "]"
	}
	return `"` + name + `"`
}

func qualifiedName(provider catalog.Provider, fqn catalog.FQN) string {
	return quoteIdent(provider, fqn.Schema) + "." + quoteIdent(provider, fqn.Name)
}

func guardedCreateTable(provider catalog.Provider, t catalog.Table) string {
	name := qualifiedName(provider, t.FQN)
	var cols []string
	for _, c := range t.Columns {
		cols = append(cols, columnDefinition(provider, c))
	}
	body := strings.Join(cols, ",\n    ")
	if len(t.PrimaryKey) > 0 {
		body += fmt.Sprintf(",\n    PRIMARY KEY (%s)", quotedColumnList(provider, t.PrimaryKey))
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (\n    %s\n);", name, body)
	if provider == catalog.ProviderSqlServer {
		return fmt.Sprintf("IF OBJECT_ID('%s.%s', 'U') IS NULL\nBEGIN\n%s\nEND", t.FQN.Schema, t.FQN.Name, stmt)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);", name, body)
}

func columnDefinition(provider catalog.Provider, c catalog.Column) string {
	def := fmt.Sprintf("%s %s", quoteIdent(provider, c.Name), c.Type.Raw)
	if !c.Nullable {
		def += " NOT NULL"
	}
	if c.DefaultExpr != "" {
		def += " DEFAULT " + c.DefaultExpr
	}
	return def
}

func quotedColumnList(provider catalog.Provider, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(provider, c)
	}
	return strings.Join(out, ", ")
}

func guardedAddColumn(provider catalog.Provider, table catalog.FQN, col catalog.Column) string {
	if provider == catalog.ProviderSqlServer {
		return fmt.Sprintf("IF COL_LENGTH('%s.%s', '%s') IS NULL\n    ALTER TABLE %s ADD %s;",
			table.Schema, table.Name, col.Name, qualifiedName(provider, table), columnDefinition(provider, col))
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s;", qualifiedName(provider, table), columnDefinition(provider, col))
}

func guardedDropColumn(provider catalog.Provider, table catalog.FQN, column string) string {
	if provider == catalog.ProviderSqlServer {
		return fmt.Sprintf("IF COL_LENGTH('%s.%s', '%s') IS NOT NULL\n    ALTER TABLE %s DROP COLUMN %s;",
			table.Schema, table.Name, column, qualifiedName(provider, table), quoteIdent(provider, column))
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", qualifiedName(provider, table), quoteIdent(provider, column))
}

func alterColumnStatement(provider catalog.Provider, c diff.ColumnModified) string {
	note := ""
	if c.Classification != "" {
		note = fmt.Sprintf(" -- %s: %s -> %s", c.Classification, c.Before, c.After)
	}
	switch c.Field {
	case "type":
		if provider == catalog.ProviderSqlServer {
			return fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s %s;%s", c.Table.Schema, c.Table.Name, c.Column, c.After, note)
		}
		return fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s TYPE %s;%s", c.Table.Schema, c.Table.Name, c.Column, c.After, note)
	case "nullability":
		if c.After == "true" {
			return fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s DROP NOT NULL;%s", c.Table.Schema, c.Table.Name, c.Column, note)
		}
		return fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s SET NOT NULL;%s", c.Table.Schema, c.Table.Name, c.Column, note)
	default:
		return fmt.Sprintf("-- manual review: %s.%s.%s changed identity (%s -> %s)", c.Table.Schema, c.Table.Name, c.Column, c.Before, c.After)
	}
}

func alterDefaultStatement(provider catalog.Provider, c diff.DefaultChanged) string {
	if c.After == "" {
		return fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s DROP DEFAULT;", c.Table.Schema, c.Table.Name, c.Column)
	}
	return fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s SET DEFAULT %s;", c.Table.Schema, c.Table.Name, c.Column, c.After)
}

func createIndexStatement(table catalog.FQN, ix catalog.Index) string {
	unique := ""
	if ix.IsUnique {
		unique = "UNIQUE "
	}
	var cols []string
	for _, c := range ix.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", c.Column, strings.ToUpper(c.Direction)))
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s.%s (%s);", unique, ix.Name, table.Schema, table.Name, strings.Join(cols, ", "))
}

func dropIndexStatement(provider catalog.Provider, v diff.IndexRemoved) string {
	if provider == catalog.ProviderSqlServer {
		return fmt.Sprintf("DROP INDEX IF EXISTS %s ON %s.%s;", v.Index.Name, v.Table.Schema, v.Table.Name)
	}
	return fmt.Sprintf("DROP INDEX IF EXISTS %s;", v.Index.Name)
}

func addFKStatement(v diff.FKAdded) string {
	var out strings.Builder
	fmt.Fprintf(&out, "-- orphan check: %s\n", v.OrphanCheckSQL)
	fmt.Fprintf(&out, "ALTER TABLE %s.%s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);",
		v.Table.Schema, v.Table.Name, v.ForeignKey.Name,
		strings.Join(v.ForeignKey.Columns, ", "),
		v.ForeignKey.ReferencedTable.String(),
		strings.Join(v.ForeignKey.ReferencedColumn, ", "))
	return out.String()
}

func dropFKStatement(provider catalog.Provider, v diff.FKRemoved) string {
	return fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT IF EXISTS %s;", v.Table.Schema, v.Table.Name, v.ForeignKey.Name)
}

func manualReviewComment(label string, risk diff.RiskLevel, affected []depgraph.ObjectRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- [MANUAL REVIEW] %s (risk: %s)\n", label, risk.String())
	if len(affected) > 0 {
		names := make([]string, 0, len(affected))
		for _, a := range affected {
			names = append(names, a.Kind.String()+" "+a.FQN.String())
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "-- affected dependents: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("-- statement intentionally left commented out; apply manually after review")
	return b.String()
}
