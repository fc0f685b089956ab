// Package extract implements the SQL Reference Extractor: a lexical,
// structural scan of a routine or view body (never a full SQL parser)
// that recovers which tables it touches, how it
// joins them, what CRUD operations it performs, which routines it
// calls and which structural anti-patterns it contains.
package extract

import (
	"sort"

	"github.com/dbforensic/dbforensic/catalog"
)

// JoinPair is a canonicalized, unordered pair of joined tables: Left is
// always the lexicographically smaller FQN.
type JoinPair struct {
	Left  catalog.FQN
	Right catalog.FQN
}

func newJoinPair(a, b catalog.FQN) JoinPair {
	if a.Less(b) {
		return JoinPair{Left: a, Right: b}
	}
	return JoinPair{Left: b, Right: a}
}

// ColumnRef is one resolved "alias.column" or "table.column" site found
// anywhere in a routine/view body, after the alias has been resolved
// back to the table or view it names.
type ColumnRef struct {
	Table  catalog.FQN
	Column string // lowercased
}

// Result is the full output of extracting one routine/view body.
type Result struct {
	Referenced     []catalog.FQN
	ColumnRefs     []ColumnRef
	Joins          []JoinPair
	CRUD           map[string]catalog.CrudFlags // keyed by FQN.Key()
	CalledRoutines []catalog.FQN
	AntiPatterns   []catalog.AntiPattern
	Warnings       []Warning
}

// Warning is a non-fatal extractor finding: an ambiguous unqualified
// name that matched more than one schema.
type Warning struct {
	Identifier string
	Message    string
}

// Input bundles what the extractor needs to disambiguate unqualified
// names: the routine's own default schema and the universe of known
// table/view FQNs in its catalog.
type Input struct {
	Body          string
	DefaultSchema string
	KnownNames    []catalog.FQN
}

func sortFQNs(fqns []catalog.FQN) []catalog.FQN {
	sort.Slice(fqns, func(i, j int) bool { return fqns[i].Less(fqns[j]) })
	return fqns
}

func sortColumnRefs(refs []ColumnRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Table.Key() != refs[j].Table.Key() {
			return refs[i].Table.Less(refs[j].Table)
		}
		return refs[i].Column < refs[j].Column
	})
}
