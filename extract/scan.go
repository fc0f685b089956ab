package extract

import (
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
)

// rawJoinPair is a join predicate captured during the scan, still keyed
// by the raw lowercased aliases used in the body rather than resolved
// FQNs (resolution happens once, in Extract, after the whole body has
// been scanned).
type rawJoinPair struct {
	leftAlias  string
	rightAlias string
}

type scanResultInternal struct {
	refs           []tableRef
	rawJoins       []rawJoinPair
	calledRoutines []string
}

// collectCTENames returns the lowercased names introduced by a leading
// WITH clause, so later table-ref capture can exclude them: a CTE is
// not a catalog object and must never be attributed as one.
func collectCTENames(toks []token) map[string]bool {
	names := map[string]bool{}
	n := len(toks)
	for i := 0; i < n; i++ {
		if !(toks[i].kind == tokKeyword && toks[i].text == "WITH") {
			continue
		}
		i++
		if i < n && toks[i].kind == tokIdent && strings.EqualFold(toks[i].text, "RECURSIVE") {
			i++
		}
		for i < n && toks[i].kind == tokIdent {
			names[strings.ToLower(toks[i].text)] = true
			i++
			if i < n && toks[i].kind == tokLParen {
				i = skipBalancedParens(toks, i)
			}
			if i >= n || !(toks[i].kind == tokKeyword && toks[i].text == "AS") {
				break
			}
			i++
			if i >= n || toks[i].kind != tokLParen {
				break
			}
			i = skipBalancedParens(toks, i)
			if i < n && toks[i].kind == tokComma {
				i++
				continue
			}
			break
		}
	}
	return names
}

func skipBalancedParens(toks []token, i int) int {
	n := len(toks)
	if i >= n || toks[i].kind != tokLParen {
		return i
	}
	depth := 1
	i++
	for i < n && depth > 0 {
		switch toks[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		}
		i++
	}
	return i
}

// readQualifiedName reads an identifier, optionally dotted (schema.name
// or db.schema.name, the latter collapsed to its last two parts — only
// two-part names are resolved). Returns ok=false if toks[i]
// is not an identifier.
func readQualifiedName(toks []token, i int) (schema, name string, next int, ok bool) {
	n := len(toks)
	if i >= n || toks[i].kind != tokIdent {
		return "", "", i, false
	}
	parts := []string{toks[i].text}
	i++
	for i+1 < n && toks[i].kind == tokDot && toks[i+1].kind == tokIdent {
		parts = append(parts, toks[i+1].text)
		i += 2
	}
	if len(parts) == 1 {
		return "", parts[0], i, true
	}
	return parts[len(parts)-2], parts[len(parts)-1], i, true
}

// readAlias consumes an optional "AS ident" or bare "ident" alias
// following a table reference. Returns alias="" if none is present.
func readAlias(toks []token, i int) (alias string, next int) {
	n := len(toks)
	if i < n && toks[i].kind == tokKeyword && toks[i].text == "AS" {
		i++
		if i < n && toks[i].kind == tokIdent {
			return toks[i].text, i + 1
		}
		return "", i
	}
	if i < n && toks[i].kind == tokIdent {
		return toks[i].text, i + 1
	}
	return "", i
}

// scanTables runs the FROM/JOIN/UPDATE/INSERT INTO/DELETE FROM/MERGE
// INTO/EXEC state machine over the merged token stream, capturing
// table references, join predicates (from ON clauses) and called
// routine names in a single left-to-right pass.
func scanTables(toks []token, cteNames map[string]bool) scanResultInternal {
	var out scanResultInternal
	state := stateDefault
	currentVerb := verbNone
	n := len(toks)

	for i := 0; i < n; {
		t := toks[i]

		if t.kind == tokKeyword {
			switch {
			case t.text == "FROM":
				state, currentVerb = stateAfterFROM, verbRead
				i++
			case strings.Contains(t.text, "JOIN"):
				state = stateAfterJOIN
				i++
			case t.text == "UPDATE":
				state, currentVerb = stateAfterUPDATE, verbUpdate
				i++
			case t.text == "INSERT INTO":
				state, currentVerb = stateAfterINTO, verbCreate
				i++
			case t.text == "DELETE FROM":
				state, currentVerb = stateAfterFROM, verbDelete
				i++
			case t.text == "MERGE INTO":
				state, currentVerb = stateAfterINTO, verbUpdate
				i++
			case t.text == "EXEC" || t.text == "EXECUTE" || t.text == "CALL":
				state = stateAfterCALL
				i++
			case t.text == "ON":
				i = parseOnClause(toks, i+1, &out.rawJoins)
				state = stateDefault
			default:
				state = stateDefault
				i++
			}
			continue
		}

		if t.kind == tokIdent && (state == stateAfterFROM || state == stateAfterJOIN ||
			state == stateAfterUPDATE || state == stateAfterINTO) {
			schema, name, next, ok := readQualifiedName(toks, i)
			if !ok {
				i++
				continue
			}
			i = next
			alias, next2 := readAlias(toks, i)
			i = next2

			lname := strings.ToLower(name)
			aliasKey := strings.ToLower(alias)
			if aliasKey == "" {
				aliasKey = lname
			}
			excluded := strings.HasPrefix(name, "#") || strings.HasPrefix(name, "@") || cteNames[lname]

			out.refs = append(out.refs, tableRef{
				fqn:      catalog.FQN{Schema: schema, Name: name},
				alias:    aliasKey,
				fromJoin: state == stateAfterJOIN,
				excluded: excluded,
				verb:     currentVerb,
			})

			if state == stateAfterFROM && i < n && toks[i].kind == tokComma {
				i++
				continue
			}
			state = stateDefault
			continue
		}

		if t.kind == tokIdent && state == stateAfterCALL {
			schema, name, next, ok := readQualifiedName(toks, i)
			if ok {
				full := name
				if schema != "" {
					full = schema + "." + name
				}
				out.calledRoutines = append(out.calledRoutines, full)
				i = next
			} else {
				i++
			}
			state = stateDefault
			continue
		}

		i++
	}

	return out
}

// parseOnClause reads one or more "alias.col = alias.col" predicates
// joined by AND, starting at the token after ON. Predicates lacking an
// alias-qualified side (a literal or a bare column) are skipped: the
// scanner only infers joins it can attribute to a captured table ref.
func parseOnClause(toks []token, i int, joins *[]rawJoinPair) int {
	n := len(toks)
	for i < n {
		if toks[i].kind == tokKeyword && toks[i].text == "AND" {
			i++
			continue
		}
		if toks[i].kind != tokIdent {
			break
		}
		leftAlias, _, next, ok := readQualifiedName(toks, i)
		if !ok {
			break
		}
		i = next
		if i >= n || toks[i].kind != tokEq {
			i = skipToNextPredicate(toks, i)
			continue
		}
		i++
		if i >= n || toks[i].kind != tokIdent {
			break
		}
		rightAlias, _, next2, ok2 := readQualifiedName(toks, i)
		if !ok2 {
			break
		}
		i = next2

		if leftAlias != "" && rightAlias != "" {
			*joins = append(*joins, rawJoinPair{
				leftAlias:  strings.ToLower(leftAlias),
				rightAlias: strings.ToLower(rightAlias),
			})
		}

		if i < n && toks[i].kind == tokKeyword && toks[i].text == "AND" {
			i++
			continue
		}
		break
	}
	return i
}

func skipToNextPredicate(toks []token, i int) int {
	n := len(toks)
	for i < n {
		if toks[i].kind == tokKeyword {
			return i
		}
		i++
	}
	return i
}

// rawColumnRef is an "alias.column" site captured anywhere in the body,
// still keyed by the raw lowercased alias rather than a resolved FQN.
type rawColumnRef struct {
	alias  string
	column string
}

// scanColumnRefs finds every two-part "ident.ident" site in the token
// stream, wherever it occurs (SELECT list, WHERE, ON, ORDER BY, ...),
// not just inside the clauses scanTables already understands. Three+
// part chains (db.schema.table) are left alone: those name a table, not
// a column, and are already captured by scanTables.
func scanColumnRefs(toks []token) []rawColumnRef {
	var out []rawColumnRef
	n := len(toks)
	for i := 0; i < n; i++ {
		if toks[i].kind != tokIdent {
			continue
		}
		if i > 0 && toks[i-1].kind == tokDot {
			continue // middle/tail of a longer chain, already considered at its head
		}
		if i+2 >= n || toks[i+1].kind != tokDot || toks[i+2].kind != tokIdent {
			continue
		}
		if i+4 < n && toks[i+3].kind == tokDot && toks[i+4].kind == tokIdent {
			continue // db.schema.table: a table reference, not alias.column
		}
		out = append(out, rawColumnRef{
			alias:  strings.ToLower(toks[i].text),
			column: strings.ToLower(toks[i+2].text),
		})
	}
	return out
}
