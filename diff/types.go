// Package diff implements the structural two-way catalog comparison:
// a typed ChangeSet between a source (desired) and target (current)
// Catalog snapshot, with each change annotated by risk computed
// against the target's dependency graph.
package diff

import (
	"encoding/json"

	"github.com/dbforensic/dbforensic/catalog"
	"github.com/dbforensic/dbforensic/depgraph"
	"github.com/dbforensic/dbforensic/errs"
)

// RiskLevel is the ordinal severity assigned to one Change.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func maxRisk(a, b RiskLevel) RiskLevel {
	if b > a {
		return b
	}
	return a
}

// Change is the common interface every change variant satisfies. It
// replaces reflective field access with exhaustive construction-site
// matching : each concrete type below carries exactly the
// fields its kind needs.
type Change interface {
	Kind() string
	Risk() RiskLevel
}

type base struct {
	OpKind string    `json:"kind"`
	Level  RiskLevel `json:"risk"`
}

func (b base) Kind() string    { return b.OpKind }
func (b base) Risk() RiskLevel { return b.Level }

// TableAdded: a table exists in source but not target.
type TableAdded struct {
	base
	Table catalog.Table `json:"table"`
}

// TableRemoved: a table exists in target but not source. Risk is
// unconditionally Critical.
type TableRemoved struct {
	base
	Table catalog.Table `json:"table"`
}

// ColumnAdded: a column exists on a shared table in source but not
// target.
type ColumnAdded struct {
	base
	Table  catalog.FQN   `json:"table"`
	Column catalog.Column `json:"column"`
}

// ColumnRemoved: a column exists on a shared table in target but not
// source.
type ColumnRemoved struct {
	base
	Table    catalog.FQN         `json:"table"`
	Column   catalog.Column      `json:"column"`
	Affected []depgraph.ObjectRef `json:"affected,omitempty"`
}

// ColumnModified covers a difference in one of {type, nullability,
// identity} between the same-named column in both snapshots.
// Default-expression differences are emitted as DefaultChanged
// instead.
type ColumnModified struct {
	base
	Table          catalog.FQN `json:"table"`
	Column         string      `json:"column"`
	Field          string      `json:"field"` // "type", "nullability", "identity"
	Before         string      `json:"before"`
	After          string      `json:"after"`
	Classification string      `json:"classification,omitempty"` // "widening", "narrowing", "kind_change"
}

// DefaultChanged: the default-expression text differs for a shared
// column.
type DefaultChanged struct {
	base
	Table  catalog.FQN `json:"table"`
	Column string      `json:"column"`
	Before string      `json:"before"`
	After  string      `json:"after"`
}

// IndexAdded / IndexRemoved: by-name set difference within a shared
// table. Modifications are always drop+add.
type IndexAdded struct {
	base
	Table catalog.FQN  `json:"table"`
	Index catalog.Index `json:"index"`
}

type IndexRemoved struct {
	base
	Table catalog.FQN  `json:"table"`
	Index catalog.Index `json:"index"`
}

// FKAdded carries the orphan-row check predicate the engine emits but
// does not itself evaluate; the actual check is deferred to the
// migration step.
type FKAdded struct {
	base
	Table           catalog.FQN       `json:"table"`
	ForeignKey      catalog.ForeignKey `json:"foreign_key"`
	OrphanCheckSQL  string            `json:"orphan_check_sql"`
}

type FKRemoved struct {
	base
	Table      catalog.FQN       `json:"table"`
	ForeignKey catalog.ForeignKey `json:"foreign_key"`
}

type RoutineAdded struct {
	base
	Routine catalog.FQN        `json:"routine"`
	Kind    catalog.RoutineKind `json:"routine_kind"`
}

type RoutineRemoved struct {
	base
	Routine  catalog.FQN          `json:"routine"`
	Kind     catalog.RoutineKind  `json:"routine_kind"`
	Affected []depgraph.ObjectRef `json:"affected,omitempty"`
}

type RoutineBodyChanged struct {
	base
	Routine  catalog.FQN          `json:"routine"`
	Affected []depgraph.ObjectRef `json:"affected,omitempty"`
}

type ViewBodyChanged struct {
	base
	View     catalog.FQN          `json:"view"`
	Affected []depgraph.ObjectRef `json:"affected,omitempty"`
}

// ChangeSummary aggregates counts per (kind) and the overall risk
// across every change — the max across the set.
type ChangeSummary struct {
	CountByKind map[string]int `json:"count_by_kind"`
	Total       int            `json:"total"`
	OverallRisk RiskLevel      `json:"overall_risk"`
}

// ChangeSet is the full diff output: the ordered change list plus its
// summary and any non-fatal classification warnings.
type ChangeSet struct {
	Changes  []Change                   `json:"changes"`
	Summary  ChangeSummary              `json:"summary"`
	Warnings []errs.DiffMismatchWarning `json:"warnings,omitempty"`
}
