// Package connector is the read-only boundary between a live database
// and the analysis core: it supplies raw catalog rows and
// never itself runs DDL. RawTable/RawColumn/etc. mirror the catalog
// package's shapes in string/number form, exactly as a driver handed
// them back, before BuildCatalog normalizes them into the frozen
// catalog.Catalog the core operates on.
package connector

import "time"

// RawColumn is one column row as read from the catalog, before type
// normalization.
type RawColumn struct {
	Name         string
	Ordinal      int
	DataType     string // provider-native type name, e.g. "varchar(255)", "int", "numeric(10,2)"
	Nullable     bool
	DefaultExpr  string
	IsIdentity   bool
	IsComputed   bool
	ComputedExpr string
}

// RawIndexColumn is one column participating in an index.
type RawIndexColumn struct {
	Column    string
	Direction string // "asc" or "desc"
}

// RawIndex is one index row, with usage counters the connector may not
// be able to supply (HasUsageStats false in that case).
type RawIndex struct {
	Name            string
	Columns         []RawIndexColumn
	IsUnique        bool
	IsClustered     bool
	IncludedColumns []string
	FilterPredicate string
	LastUsed        *time.Time
	UsageSeeks      uint64
	UsageScans      uint64
	UsageUpdates    uint64
	HasUsageStats   bool
}

// RawForeignKey mirrors catalog.ForeignKey before the referenced table
// is resolved to an FQN.
type RawForeignKey struct {
	Name              string
	Columns           []string
	ReferencedSchema  string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          string
	OnUpdate          string
}

// RawUniq is a named unique constraint.
type RawUniq struct {
	Name    string
	Columns []string
}

// RawTable is one table as read from the catalog.
type RawTable struct {
	Schema            string
	Name              string
	Columns           []RawColumn
	PrimaryKey        []string
	ForeignKeys       []RawForeignKey
	UniqueConstraints []RawUniq
	Indexes           []RawIndex
	RowCount          uint64
	HasRowCount       bool
	SizeBytes         *uint64
}

// RawView is one view's schema-qualified name and body text.
type RawView struct {
	Schema string
	Name   string
	Body   string
}

// RawRoutine is one stored procedure or function's signature and body
// text, before the SQL reference extractor and complexity scorer run
// over it.
type RawRoutine struct {
	Schema     string
	Name       string
	IsFunction bool
	Body       string
	Parameters []string
}

// Snapshot is everything one connector call yields: the raw catalog
// rows for one database, plus the dialect metadata needed to interpret
// them.
type Snapshot struct {
	Provider      string // "postgres" or "sqlserver"
	DefaultSchema string
	Tables        []RawTable
	Views         []RawView
	Routines      []RawRoutine
}
