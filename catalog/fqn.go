// Package catalog holds the passive, immutable data model for a single
// database schema snapshot: tables, columns, constraints, indexes, views
// and routines. Nothing in this package talks to a database or a parser;
// it is built exclusively through the Builder in catalog.go and frozen.
package catalog

import (
	"encoding/json"
	"strings"
)

// FQN is a fully-qualified object name. Equality is case-insensitive;
// Schema/Name keep their original case for display.
type FQN struct {
	Schema string
	Name   string
}

// NewFQN builds an FQN from raw schema/name strings.
func NewFQN(schema, name string) FQN {
	return FQN{Schema: schema, Name: name}
}

// Key returns the case-folded comparison key used for map lookups and
// equality checks.
func (f FQN) Key() string {
	return strings.ToLower(f.Schema) + "." + strings.ToLower(f.Name)
}

// Equal reports whether two FQNs denote the same object, ignoring case.
func (f FQN) Equal(other FQN) bool {
	return f.Key() == other.Key()
}

// String renders the case-preserving display form "schema.name".
func (f FQN) String() string {
	if f.Schema == "" {
		return f.Name
	}
	return f.Schema + "." + f.Name
}

// MarshalJSON renders an FQN as its case-preserving "schema.name" display
// string, the form every reporter expects.
func (f FQN) MarshalJSON() ([]byte, error) { return json.Marshal(f.String()) }

// Less provides a stable lexicographic ordering over FQNs, used whenever
// output needs to be ordered by FQN or ties broken on FQN.
func (f FQN) Less(other FQN) bool {
	if f.Key() == other.Key() {
		return false
	}
	return f.Key() < other.Key()
}
