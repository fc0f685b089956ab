package connector

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/complexity"
	"github.com/dbforensic/dbforensic/errs"
	"github.com/dbforensic/dbforensic/extract"
)

// BuildCatalog normalizes a raw Snapshot into a frozen catalog.Catalog,
// running the SQL reference extractor over every routine and view body
// and the complexity scorer over every routine body along the way.
// Extractor ambiguity warnings are returned alongside the catalog
// rather than failing the build; they're non-fatal.
func BuildCatalog(snap Snapshot) (catalog.Catalog, []errs.ExtractorWarning, error) {
	provider := catalog.ProviderUnknown
	switch strings.ToLower(snap.Provider) {
	case "postgres", "postgresql":
		provider = catalog.ProviderPostgres
	case "sqlserver", "mssql":
		provider = catalog.ProviderSqlServer
	}

	b := catalog.NewBuilder(provider, snap.DefaultSchema)
	for _, rt := range snap.Tables {
		b = b.AddTable(toTable(rt))
	}

	known := knownNames(snap)

	var warnings []errs.ExtractorWarning

	for _, rv := range snap.Views {
		fqn := catalog.NewFQN(rv.Schema, rv.Name)
		result := extract.Extract(extract.Input{Body: rv.Body, DefaultSchema: snap.DefaultSchema, KnownNames: known})
		warnings = append(warnings, toExtractorWarnings(fqn, result.Warnings)...)
		b = b.AddView(catalog.View{FQN: fqn, Body: rv.Body, References: result.Referenced, ColumnRefs: toColumnRefs(result.ColumnRefs)})
	}

	for _, rr := range snap.Routines {
		fqn := catalog.NewFQN(rr.Schema, rr.Name)
		result := extract.Extract(extract.Input{Body: rr.Body, DefaultSchema: snap.DefaultSchema, KnownNames: known})
		warnings = append(warnings, toExtractorWarnings(fqn, result.Warnings)...)
		score := complexity.Score(rr.Body)

		kind := catalog.RoutineKindProcedure
		if rr.IsFunction {
			kind = catalog.RoutineKindFunction
		}

		joins := make([][2]catalog.FQN, 0, len(result.Joins))
		for _, jp := range result.Joins {
			joins = append(joins, [2]catalog.FQN{jp.Left, jp.Right})
		}
		crud := make(map[string]catalog.CrudFlags, len(result.CRUD))
		for k, v := range result.CRUD {
			crud[k] = v
		}

		b = b.AddRoutine(catalog.Routine{
			FQN:                fqn,
			Kind:               kind,
			Body:               rr.Body,
			Parameters:         rr.Parameters,
			ComplexityScore:    score.Total,
			ComplexityCategory: score.Category,
			ReferencedTables:   result.Referenced,
			ColumnRefs:         toColumnRefs(result.ColumnRefs),
			Joins:              joins,
			CRUD:               crud,
			CalledRoutines:     result.CalledRoutines,
			AntiPatterns:       result.AntiPatterns,
		})
	}

	cat, err := b.Build()
	return cat, warnings, err
}

func toColumnRefs(refs []extract.ColumnRef) []catalog.ColumnRef {
	if len(refs) == 0 {
		return nil
	}
	out := make([]catalog.ColumnRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, catalog.ColumnRef{Table: r.Table, Column: r.Column})
	}
	return out
}

func toExtractorWarnings(fqn catalog.FQN, warnings []extract.Warning) []errs.ExtractorWarning {
	out := make([]errs.ExtractorWarning, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, errs.ExtractorWarning{Object: fqn.String(), Message: w.Identifier + ": " + w.Message})
	}
	return out
}

func knownNames(snap Snapshot) []catalog.FQN {
	names := make([]catalog.FQN, 0, len(snap.Tables)+len(snap.Views))
	for _, t := range snap.Tables {
		names = append(names, catalog.NewFQN(t.Schema, t.Name))
	}
	for _, v := range snap.Views {
		names = append(names, catalog.NewFQN(v.Schema, v.Name))
	}
	return names
}

func toTable(rt RawTable) catalog.Table {
	cols := make([]catalog.Column, 0, len(rt.Columns))
	for _, rc := range rt.Columns {
		cols = append(cols, catalog.Column{
			Name:         rc.Name,
			Ordinal:      rc.Ordinal,
			Type:         normalizeType(rc.DataType),
			Nullable:     rc.Nullable,
			DefaultExpr:  rc.DefaultExpr,
			IsIdentity:   rc.IsIdentity,
			IsComputed:   rc.IsComputed,
			ComputedExpr: rc.ComputedExpr,
		})
	}

	fks := make([]catalog.ForeignKey, 0, len(rt.ForeignKeys))
	for _, rfk := range rt.ForeignKeys {
		fks = append(fks, catalog.ForeignKey{
			Name:             rfk.Name,
			Columns:          rfk.Columns,
			ReferencedTable:  catalog.NewFQN(rfk.ReferencedSchema, rfk.ReferencedTable),
			ReferencedColumn: rfk.ReferencedColumns,
			OnDelete:         rfk.OnDelete,
			OnUpdate:         rfk.OnUpdate,
		})
	}

	uniqs := make([]catalog.Uniq, 0, len(rt.UniqueConstraints))
	for _, ru := range rt.UniqueConstraints {
		uniqs = append(uniqs, catalog.Uniq{Name: ru.Name, Columns: ru.Columns})
	}

	indexes := make([]catalog.Index, 0, len(rt.Indexes))
	for _, ri := range rt.Indexes {
		ixCols := make([]catalog.IndexColumn, 0, len(ri.Columns))
		for _, ic := range ri.Columns {
			ixCols = append(ixCols, catalog.IndexColumn{Column: ic.Column, Direction: ic.Direction})
		}
		indexes = append(indexes, catalog.Index{
			Name:            ri.Name,
			Columns:         ixCols,
			IsUnique:        ri.IsUnique,
			IsClustered:     ri.IsClustered,
			IncludedColumns: ri.IncludedColumns,
			FilterPredicate: ri.FilterPredicate,
			LastUsed:        ri.LastUsed,
			UsageSeeks:      ri.UsageSeeks,
			UsageScans:      ri.UsageScans,
			UsageUpdates:    ri.UsageUpdates,
			HasUsageStats:   ri.HasUsageStats,
		})
	}

	return catalog.Table{
		FQN:               catalog.NewFQN(rt.Schema, rt.Name),
		Columns:           cols,
		PrimaryKey:        rt.PrimaryKey,
		ForeignKeys:       fks,
		UniqueConstraints: uniqs,
		Indexes:           indexes,
		RowCount:          rt.RowCount,
		HasRowCount:       rt.HasRowCount,
		SizeBytes:         rt.SizeBytes,
		IsStaging:         looksLikeStaging(rt.Name),
	}
}

var stagingNameRe = regexp.MustCompile(`(?i)^(stg|staging|tmp|temp)_|_(stg|staging|tmp|temp)$`)

func looksLikeStaging(name string) bool {
	return stagingNameRe.MatchString(name)
}

var typeDimsRe = regexp.MustCompile(`^([a-zA-Z ]+?)\s*(?:\(\s*(\d+|max)\s*(?:,\s*(\d+)\s*)?\))?$`)

// normalizeType maps a provider-native type string (e.g. "varchar(255)",
// "numeric(10,2)", "int", "timestamp with time zone") to the normalized
// DataType the diff engine and relationship inference key off.
func normalizeType(raw string) catalog.DataType {
	trimmed := strings.TrimSpace(raw)
	m := typeDimsRe.FindStringSubmatch(trimmed)
	name := trimmed
	var dim1, dim2 *int
	if m != nil {
		name = strings.TrimSpace(m[1])
		if m[2] != "" && m[2] != "max" {
			if n, err := strconv.Atoi(m[2]); err == nil {
				dim1 = &n
			}
		}
		if m[3] != "" {
			if n, err := strconv.Atoi(m[3]); err == nil {
				dim2 = &n
			}
		}
	}

	lower := strings.ToLower(name)
	dt := catalog.DataType{Raw: trimmed}

	switch {
	case isOneOf(lower, "tinyint", "smallint", "int", "integer", "int2", "int4", "bigint", "int8", "serial", "bigserial", "smallserial"):
		dt.Kind = catalog.TypeKindInteger
	case isOneOf(lower, "real", "float", "float4", "float8", "double precision"):
		dt.Kind = catalog.TypeKindFloat
	case isOneOf(lower, "decimal", "numeric", "money", "smallmoney"):
		dt.Kind = catalog.TypeKindDecimal
		dt.Precision = dim1
		dt.Scale = dim2
	case isOneOf(lower, "varchar", "nvarchar", "char", "nchar", "text", "ntext", "character varying", "character"):
		dt.Kind = catalog.TypeKindString
		dt.Length = dim1
	case isOneOf(lower, "binary", "varbinary", "image", "bytea"):
		dt.Kind = catalog.TypeKindBinary
		dt.Length = dim1
	case isOneOf(lower, "bit", "boolean", "bool"):
		dt.Kind = catalog.TypeKindBoolean
	case isOneOf(lower, "date", "datetime", "datetime2", "smalldatetime", "datetimeoffset", "timestamp", "time",
		"timestamp with time zone", "timestamp without time zone", "time with time zone", "time without time zone"):
		dt.Kind = catalog.TypeKindDateTime
	default:
		dt.Kind = catalog.TypeKindOther
	}
	return dt
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
