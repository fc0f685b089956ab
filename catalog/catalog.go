package catalog

import (
	"fmt"
	"sort"

	"github.com/dbforensic/dbforensic/util"
)

// Catalog is an immutable snapshot of one database's structural
// metadata. It is built once by a Builder and never mutated afterward;
// the graph, issue detectors and diff engine only ever read from it.
type Catalog struct {
	DefaultSchema string
	Provider      Provider

	tables   map[string]Table
	views    map[string]View
	routines map[string]Routine
}

// Tables returns every table, ordered by FQN for deterministic output.
func (c Catalog) Tables() []Table {
	return sortedValues(c.tables, func(t Table) FQN { return t.FQN })
}

// Views returns every view, ordered by FQN.
func (c Catalog) Views() []View {
	return sortedValues(c.views, func(v View) FQN { return v.FQN })
}

// Routines returns every routine, ordered by FQN.
func (c Catalog) Routines() []Routine {
	return sortedValues(c.routines, func(r Routine) FQN { return r.FQN })
}

// Table looks up a table by FQN.
func (c Catalog) Table(fqn FQN) (Table, bool) {
	t, ok := c.tables[fqn.Key()]
	return t, ok
}

// View looks up a view by FQN.
func (c Catalog) View(fqn FQN) (View, bool) {
	v, ok := c.views[fqn.Key()]
	return v, ok
}

// Routine looks up a routine by FQN.
func (c Catalog) Routine(fqn FQN) (Routine, bool) {
	r, ok := c.routines[fqn.Key()]
	return r, ok
}

// HasTableOrView reports whether fqn names either a table or a view —
// useful for resolution, since extractor references don't distinguish
// the two syntactically.
func (c Catalog) HasTableOrView(fqn FQN) bool {
	_, okT := c.tables[fqn.Key()]
	_, okV := c.views[fqn.Key()]
	return okT || okV
}

// KnownNames returns the set of every table/view FQN in the catalog,
// the disambiguation universe the extractor resolves against.
func (c Catalog) KnownNames() []FQN {
	names := make([]FQN, 0, len(c.tables)+len(c.views))
	for _, t := range c.tables {
		names = append(names, t.FQN)
	}
	for _, v := range c.views {
		names = append(names, v.FQN)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names
}

func sortedValues[T any](m map[string]T, key func(T) FQN) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i]).Less(key(out[j])) })
	return out
}

// Builder assembles a Catalog additively. Objects are validated for
// their structural invariants when Build is called; the caller gets a
// CatalogIntegrityError-shaped error for the first violation found
// (stable by FQN order, not discovery order).
type Builder struct {
	defaultSchema string
	provider      Provider
	tables        map[string]Table
	views         map[string]View
	routines      map[string]Routine
}

// NewBuilder starts a Catalog under construction.
func NewBuilder(provider Provider, defaultSchema string) *Builder {
	return &Builder{
		defaultSchema: defaultSchema,
		provider:      provider,
		tables:        map[string]Table{},
		views:         map[string]View{},
		routines:      map[string]Routine{},
	}
}

// AddTable registers a table, overwriting any prior table of the same
// FQN.
func (b *Builder) AddTable(t Table) *Builder {
	b.tables[t.FQN.Key()] = t
	return b
}

// AddView registers a view.
func (b *Builder) AddView(v View) *Builder {
	b.views[v.FQN.Key()] = v
	return b
}

// AddRoutine registers a routine.
func (b *Builder) AddRoutine(r Routine) *Builder {
	b.routines[r.FQN.Key()] = r
	return b
}

// IntegrityError reports a structural invariant violation discovered at
// Build time: an FK, PK, unique constraint or index referring to a
// column or table that doesn't exist.
type IntegrityError struct {
	Object  FQN
	Message string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Object, e.Message)
}

// Build freezes the accumulated objects into a Catalog, checking the
// per-object invariants. The first violation encountered
// (in FQN order) is returned; the Catalog return value is the zero
// value on error.
func (b *Builder) Build() (Catalog, error) {
	c := Catalog{
		DefaultSchema: b.defaultSchema,
		Provider:      b.provider,
		tables:        b.tables,
		views:         b.views,
		routines:      b.routines,
	}

	for _, t := range c.Tables() {
		if err := validateTable(t); err != nil {
			return Catalog{}, err
		}
		for _, fk := range t.ForeignKeys {
			if _, ok := c.tables[fk.ReferencedTable.Key()]; !ok {
				return Catalog{}, &IntegrityError{Object: t.FQN, Message: fmt.Sprintf("foreign key %q references unknown table %s", fk.Name, fk.ReferencedTable)}
			}
		}
	}
	return c, nil
}

func validateTable(t Table) error {
	colSet := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		colSet[asciiLowerKey(c.Name)] = true
	}
	missing := func(cols []string) string {
		for _, col := range cols {
			if !colSet[asciiLowerKey(col)] {
				return col
			}
		}
		return ""
	}

	if col := missing(t.PrimaryKey); col != "" {
		return &IntegrityError{Object: t.FQN, Message: fmt.Sprintf("primary key references unknown column %q", col)}
	}
	for _, fk := range t.ForeignKeys {
		if col := missing(fk.Columns); col != "" {
			return &IntegrityError{Object: t.FQN, Message: fmt.Sprintf("foreign key %q references unknown local column %q", fk.Name, col)}
		}
		if len(fk.Columns) != len(fk.ReferencedColumn) {
			return &IntegrityError{Object: t.FQN, Message: fmt.Sprintf("foreign key %q has mismatched column counts", fk.Name)}
		}
	}
	for _, uq := range t.UniqueConstraints {
		if col := missing(uq.Columns); col != "" {
			return &IntegrityError{Object: t.FQN, Message: fmt.Sprintf("unique constraint %q references unknown column %q", uq.Name, col)}
		}
	}
	for _, ix := range t.Indexes {
		cols := util.TransformSlice(ix.Columns, func(ic IndexColumn) string { return ic.Column })
		if col := missing(cols); col != "" {
			return &IntegrityError{Object: t.FQN, Message: fmt.Sprintf("index %q references unknown column %q", ix.Name, col)}
		}
	}
	return nil
}

func asciiLowerKey(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
