package extract

import (
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
)

// detectAntiPatterns scans the merged token stream for the five
// structural anti-patterns the extractor flags.
// Detection is purely lexical, matching the rest of the package: a
// flag means "this shape appeared in the body", not "this is always a
// problem".
func detectAntiPatterns(toks []token) []catalog.AntiPattern {
	var selectStar, nolock, cursor, dynamicSQL, globalTemp bool

	for i, t := range toks {
		switch {
		case t.kind == tokOther && t.text == "*" && precedingIsSelect(toks, i):
			selectStar = true
		case t.kind == tokIdent && strings.EqualFold(t.text, "NOLOCK"):
			nolock = true
		case t.kind == tokKeyword && t.text == "CURSOR":
			cursor = true
		case t.kind == tokIdent && strings.HasPrefix(t.text, "##"):
			globalTemp = true
		}

		if t.kind == tokKeyword && (t.text == "EXEC" || t.text == "EXECUTE") && i+1 < len(toks) {
			next := toks[i+1]
			if next.kind == tokLParen || (next.kind == tokIdent && strings.EqualFold(next.text, "sp_executesql")) {
				dynamicSQL = true
			}
		}
	}

	var out []catalog.AntiPattern
	if selectStar {
		out = append(out, catalog.AntiPatternSelectStar)
	}
	if nolock {
		out = append(out, catalog.AntiPatternNolock)
	}
	if cursor {
		out = append(out, catalog.AntiPatternCursor)
	}
	if dynamicSQL {
		out = append(out, catalog.AntiPatternDynamicSQL)
	}
	if globalTemp {
		out = append(out, catalog.AntiPatternGlobalTempTable)
	}
	return out
}

// precedingIsSelect reports whether the token immediately before index
// i (skipping an optional DISTINCT) is a SELECT keyword, so that `*`
// inside `COUNT(*)` is never mistaken for `SELECT *`.
func precedingIsSelect(toks []token, i int) bool {
	j := i - 1
	if j >= 0 && toks[j].kind == tokIdent && strings.EqualFold(toks[j].text, "DISTINCT") {
		j--
	}
	return j >= 0 && toks[j].kind == tokKeyword && toks[j].text == "SELECT"
}
