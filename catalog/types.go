package catalog

import (
	"encoding/json"
	"strings"
	"time"
)

// Provider identifies the source dialect a Catalog was captured from.
// The analysis core treats both uniformly; only the connector boundary
// (outside this module's core) is dialect-aware.
type Provider int

const (
	ProviderUnknown Provider = iota
	ProviderSqlServer
	ProviderPostgres
)

func (p Provider) String() string {
	switch p {
	case ProviderSqlServer:
		return "sqlserver"
	case ProviderPostgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// MarshalJSON renders Provider as its lowercase name, per the report
// boundary's contract that enum values serialize in lowercase.
func (p Provider) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// TypeKind is the normalized kind of a column's declared type, used by
// the diff engine to classify widening/narrowing changes without
// re-parsing the raw type string every time.
type TypeKind int

const (
	TypeKindUnknown TypeKind = iota
	TypeKindInteger
	TypeKindFloat
	TypeKindDecimal
	TypeKindString
	TypeKindBinary
	TypeKindBoolean
	TypeKindDateTime
	TypeKindOther
)

func (k TypeKind) String() string {
	switch k {
	case TypeKindInteger:
		return "integer"
	case TypeKindFloat:
		return "float"
	case TypeKindDecimal:
		return "decimal"
	case TypeKindString:
		return "string"
	case TypeKindBinary:
		return "binary"
	case TypeKindBoolean:
		return "boolean"
	case TypeKindDateTime:
		return "datetime"
	case TypeKindOther:
		return "other"
	default:
		return "unknown"
	}
}

func (k TypeKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// DataType is a column's declared type, both as the raw provider string
// and normalized into comparable dimensions.
type DataType struct {
	Raw       string `json:"raw"`
	Kind      TypeKind `json:"kind"`
	Length    *int `json:"length,omitempty"`    // character/byte length, nil if not applicable
	Precision *int `json:"precision,omitempty"` // numeric precision, nil if not applicable
	Scale     *int `json:"scale,omitempty"`     // numeric scale, nil if not applicable
}

// Column is one column of a Table.
type Column struct {
	Name         string   `json:"name"`
	Ordinal      int      `json:"ordinal"`
	Type         DataType `json:"type"`
	Nullable     bool     `json:"nullable"`
	DefaultExpr  string   `json:"default_expr,omitempty"` // raw default expression text, "" if none
	IsIdentity   bool     `json:"is_identity"`
	IsComputed   bool     `json:"is_computed"`
	ComputedExpr string   `json:"computed_expr,omitempty"`
}

// ForeignKey is an explicit foreign-key constraint on a Table.
type ForeignKey struct {
	Name             string   `json:"name"`
	Columns          []string `json:"columns"`
	ReferencedTable  FQN      `json:"referenced_table"`
	ReferencedColumn []string `json:"referenced_column"`
	OnDelete         string   `json:"on_delete,omitempty"`
	OnUpdate         string   `json:"on_update,omitempty"`
}

// IndexColumn is one column participating in an Index, with its sort
// direction.
type IndexColumn struct {
	Column    string `json:"column"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// Index describes a table index, unique constraint-backed or not.
type Index struct {
	Name            string        `json:"name"`
	Columns         []IndexColumn `json:"columns"`
	IsUnique        bool          `json:"is_unique"`
	IsClustered     bool          `json:"is_clustered"`
	IncludedColumns []string      `json:"included_columns,omitempty"`
	FilterPredicate string        `json:"filter_predicate,omitempty"` // "" if unfiltered
	LastUsed        *time.Time    `json:"last_used,omitempty"`
	UsageSeeks      uint64        `json:"usage_seeks"`
	UsageScans      uint64        `json:"usage_scans"`
	UsageUpdates    uint64        `json:"usage_updates"`
	HasUsageStats   bool          `json:"has_usage_stats"` // false when the connector couldn't supply usage counters
}

// LeadingColumn returns the first key column, or "" for an empty index.
func (ix Index) LeadingColumn() string {
	if len(ix.Columns) == 0 {
		return ""
	}
	return ix.Columns[0].Column
}

// Uniq is a named unique constraint that is not the table's primary key
// and not backed by an Index entry of its own.
type Uniq struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Table is one relation in the catalog.
type Table struct {
	FQN               FQN          `json:"fqn"`
	Columns           []Column     `json:"columns"`
	PrimaryKey        []string     `json:"primary_key,omitempty"` // column names, nil if the table has none
	ForeignKeys       []ForeignKey `json:"foreign_keys,omitempty"`
	UniqueConstraints []Uniq       `json:"unique_constraints,omitempty"`
	Indexes           []Index      `json:"indexes,omitempty"`
	RowCount          uint64       `json:"row_count"`
	HasRowCount       bool         `json:"has_row_count"`
	SizeBytes         *uint64      `json:"size_bytes,omitempty"`
	IsStaging         bool         `json:"is_staging"` // heuristically: name matches staging/temp conventions
}

// Column looks up a column by case-insensitive name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnRef is one resolved "alias.column" or "table.column" site the
// extractor found in a routine or view body, alias already resolved
// back to the table/view it names.
type ColumnRef struct {
	Table  FQN    `json:"table"`
	Column string `json:"column"`
}

// View is a stored view: its body plus the tables the extractor resolved
// it to reference.
type View struct {
	FQN        FQN         `json:"fqn"`
	Body       string      `json:"body"`
	References []FQN       `json:"references,omitempty"`
	ColumnRefs []ColumnRef `json:"column_refs,omitempty"`
}

// RoutineKind distinguishes stored procedures from functions.
type RoutineKind int

const (
	RoutineKindProcedure RoutineKind = iota
	RoutineKindFunction
)

func (k RoutineKind) String() string {
	if k == RoutineKindFunction {
		return "function"
	}
	return "procedure"
}

func (k RoutineKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// CrudFlags records which CRUD operations a routine/view performs
// against a single referenced table.
type CrudFlags struct {
	Read   bool `json:"read"`
	Create bool `json:"create"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// Any reports whether at least one CRUD bit is set.
func (c CrudFlags) Any() bool {
	return c.Read || c.Create || c.Update || c.Delete
}

// AntiPattern names a structural SQL anti-pattern the extractor detected
// in a routine or view body.
type AntiPattern int

const (
	AntiPatternSelectStar AntiPattern = iota
	AntiPatternNolock
	AntiPatternCursor
	AntiPatternDynamicSQL
	AntiPatternGlobalTempTable
)

func (a AntiPattern) String() string {
	switch a {
	case AntiPatternSelectStar:
		return "select_star"
	case AntiPatternNolock:
		return "nolock"
	case AntiPatternCursor:
		return "cursor"
	case AntiPatternDynamicSQL:
		return "dynamic_sql"
	case AntiPatternGlobalTempTable:
		return "global_temp_table"
	default:
		return "unknown"
	}
}

func (a AntiPattern) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

// ComplexityCategory buckets a Routine's ComplexityScore.
type ComplexityCategory int

const (
	ComplexitySimple ComplexityCategory = iota
	ComplexityMedium
	ComplexityComplex
)

func (c ComplexityCategory) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityMedium:
		return "medium"
	case ComplexityComplex:
		return "complex"
	default:
		return "unknown"
	}
}

func (c ComplexityCategory) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

// Routine is a stored procedure or function, together with the computed
// artifacts the extractor and complexity scorer produce from its body.
type Routine struct {
	FQN        FQN         `json:"fqn"`
	Kind       RoutineKind `json:"kind"`
	Body       string      `json:"body"`
	Parameters []string    `json:"parameters,omitempty"`

	ComplexityScore    float64              `json:"complexity_score"`
	ComplexityCategory ComplexityCategory   `json:"complexity_category"`
	ReferencedTables   []FQN                `json:"referenced_tables,omitempty"`
	ColumnRefs         []ColumnRef          `json:"column_refs,omitempty"`
	Joins              [][2]FQN             `json:"joins,omitempty"`
	CRUD               map[string]CrudFlags `json:"crud,omitempty"` // keyed by FQN.Key()
	CalledRoutines     []FQN                `json:"called_routines,omitempty"`
	AntiPatterns       []AntiPattern        `json:"anti_patterns,omitempty"`
}
