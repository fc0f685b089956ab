package extract

import (
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
)

// scanState tracks what kind of object name the scanner expects next,
// mirroring a Default -> AfterFROM -> AfterJOIN -> AfterUPDATE ->
// AfterINTO -> AfterCALL state machine.
type scanState int

const (
	stateDefault scanState = iota
	stateAfterFROM
	stateAfterJOIN
	stateAfterUPDATE
	stateAfterINTO
	stateAfterCALL
)

type verb int

const (
	verbNone verb = iota
	verbRead
	verbCreate
	verbUpdate
	verbDelete
)

type tableRef struct {
	fqn      catalog.FQN
	alias    string // lowercased alias or bare name used for attribution
	resolved bool
	fromJoin bool // true if this ref came from a JOIN clause (vs FROM/UPDATE/etc)
	excluded bool // temp table, table variable, or CTE reference
	verb     verb
}

// Extract runs the structural scan over one routine or view body. It
// never returns an error: malformed input degrades gracefully, with
// ambiguities surfacing as warnings instead.
func Extract(in Input) Result {
	res := Result{
		CRUD: map[string]catalog.CrudFlags{},
	}

	toks := mergeMultiWordKeywords(tokenize(in.Body))
	cteNames := collectCTENames(toks)
	res0 := scanTables(toks, cteNames)
	rawColRefs := scanColumnRefs(toks)

	resv := newResolver(in.DefaultSchema, in.KnownNames)

	aliasToFQN := map[string]catalog.FQN{}
	referencedSet := map[string]catalog.FQN{}

	for i := range res0.refs {
		ref := &res0.refs[i]
		if ref.excluded {
			continue
		}
		fqn, ok, warn := resv.resolve(ref.fqn.Schema, ref.fqn.Name)
		if warn != nil {
			res.Warnings = append(res.Warnings, *warn)
		}
		if !ok {
			ref.excluded = true
			continue
		}
		ref.fqn = fqn
		ref.resolved = true
		aliasToFQN[ref.alias] = fqn
		referencedSet[fqn.Key()] = fqn

		flags := res.CRUD[fqn.Key()]
		switch ref.verb {
		case verbRead:
			flags.Read = true
		case verbCreate:
			flags.Create = true
		case verbUpdate:
			flags.Update = true
		case verbDelete:
			flags.Delete = true
		}
		res.CRUD[fqn.Key()] = flags
	}

	// column refs: resolve against the same alias table, so a bare
	// table-qualified column ("orders.id") resolves just as well as an
	// aliased one ("o.id") — aliasToFQN carries both.
	colRefSet := map[ColumnRef]bool{}
	for _, r := range rawColRefs {
		fqn, ok := aliasToFQN[r.alias]
		if !ok {
			continue
		}
		colRefSet[ColumnRef{Table: fqn, Column: r.column}] = true
	}
	for cr := range colRefSet {
		res.ColumnRefs = append(res.ColumnRefs, cr)
	}
	sortColumnRefs(res.ColumnRefs)

	// joins: resolve alias pairs captured during the scan
	joinSet := map[JoinPair]bool{}
	for _, jp := range res0.rawJoins {
		left, okL := aliasToFQN[jp.leftAlias]
		right, okR := aliasToFQN[jp.rightAlias]
		if !okL || !okR || left.Key() == right.Key() {
			continue
		}
		joinSet[newJoinPair(left, right)] = true
	}
	for jp := range joinSet {
		res.Joins = append(res.Joins, jp)
	}
	sortJoins(res.Joins)

	for fqn := range referencedSet {
		res.Referenced = append(res.Referenced, referencedSet[fqn])
	}
	res.Referenced = sortFQNs(res.Referenced)

	// called routines: not resolved against KnownNames (which holds only
	// tables and views); an unqualified call is recorded under the
	// default schema, a qualified one under its own schema.
	seenCalls := map[string]bool{}
	for _, name := range res0.calledRoutines {
		fqn := catalog.NewFQN(in.DefaultSchema, name)
		if name2 := splitSchemaName(name); name2.Schema != "" {
			fqn = name2
		}
		if seenCalls[fqn.Key()] {
			continue
		}
		seenCalls[fqn.Key()] = true
		res.CalledRoutines = append(res.CalledRoutines, fqn)
	}
	res.CalledRoutines = sortFQNs(res.CalledRoutines)

	res.AntiPatterns = detectAntiPatterns(toks)

	return res
}

func splitSchemaName(raw string) catalog.FQN {
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) == 2 {
		return catalog.NewFQN(parts[0], parts[1])
	}
	return catalog.FQN{Name: raw}
}

func sortJoins(joins []JoinPair) {
	for i := 1; i < len(joins); i++ {
		for j := i; j > 0; j-- {
			if joinLess(joins[j], joins[j-1]) {
				joins[j], joins[j-1] = joins[j-1], joins[j]
			} else {
				break
			}
		}
	}
}

func joinLess(a, b JoinPair) bool {
	if a.Left.Key() != b.Left.Key() {
		return a.Left.Less(b.Left)
	}
	return a.Right.Less(b.Right)
}
