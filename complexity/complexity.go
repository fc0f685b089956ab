// Package complexity implements the weighted-dimension complexity
// scorer: a pure function of a routine body to a numeric score and
// category, with fixed weights and per-dimension caps that must stay
// bit-exact across releases.
package complexity

import (
	"regexp"
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
)

// Breakdown exposes each dimension's contribution alongside the total,
// useful for --debug-dump and for tests pinning individual weights.
type Breakdown struct {
	Size         float64
	Joins        float64
	Subqueries   float64
	Cursors      float64
	TempTables   float64
	DynamicSQL   float64
	ControlFlow  float64
	Total        float64
	Category     catalog.ComplexityCategory
}

const (
	sizeWeight  = 0.1
	sizeCap     = 30.0
	joinWeight  = 3.0
	joinCap     = 30.0
	subqWeight  = 5.0
	subqCap     = 25.0
	cursorWeight = 8.0
	cursorCap    = 16.0
	tempWeight   = 2.0
	tempCap      = 12.0
	dynamicSQLPts = 10.0
	ctrlWeight    = 1.0
	ctrlCap       = 15.0
)

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	stringLit    = regexp.MustCompile(`'(?:[^']|'')*'`)

	joinRe       = regexp.MustCompile(`(?i)\bJOIN\b`)
	cursorRe     = regexp.MustCompile(`(?i)\bDECLARE\s+\S+\s+CURSOR\b`)
	tempTableRe  = regexp.MustCompile(`#[A-Za-z_][A-Za-z0-9_]*`)
	dynamicSQLRe = regexp.MustCompile(`(?i)\bEXEC\s*\(|\bsp_executesql\b`)
	ifRe         = regexp.MustCompile(`(?i)\bIF\b`)
	whileRe      = regexp.MustCompile(`(?i)\bWHILE\b`)
	caseWhenRe   = regexp.MustCompile(`(?i)\bCASE\s+WHEN\b`)
	selectAheadRe = regexp.MustCompile(`(?i)^\s*SELECT\b`)
)

// stripLiterals removes comment and string-literal content so keyword
// counting never matches text that only happens to look like SQL.
func stripLiterals(body string) string {
	s := blockComment.ReplaceAllString(body, " ")
	s = lineComment.ReplaceAllString(s, " ")
	s = stringLit.ReplaceAllString(s, "''")
	return s
}

// Score computes the weighted-dimension complexity score and category
// for one routine body, per the fixed table of weights and caps.
func Score(body string) Breakdown {
	clean := stripLiterals(body)

	var b Breakdown
	b.Size = capAt(float64(countNonBlankLines(body))*sizeWeight, sizeCap)
	b.Joins = capAt(float64(len(joinRe.FindAllString(clean, -1)))*joinWeight, joinCap)
	b.Subqueries = capAt(float64(maxSubqueryDepth(clean))*subqWeight, subqCap)
	b.Cursors = capAt(float64(len(cursorRe.FindAllString(clean, -1)))*cursorWeight, cursorCap)
	b.TempTables = capAt(float64(countDistinctTempTables(clean))*tempWeight, tempCap)
	if dynamicSQLRe.MatchString(clean) {
		b.DynamicSQL = dynamicSQLPts
	}
	controlFlowCount := len(ifRe.FindAllString(clean, -1)) +
		len(whileRe.FindAllString(clean, -1)) +
		len(caseWhenRe.FindAllString(clean, -1))
	b.ControlFlow = capAt(float64(controlFlowCount)*ctrlWeight, ctrlCap)

	b.Total = b.Size + b.Joins + b.Subqueries + b.Cursors + b.TempTables + b.DynamicSQL + b.ControlFlow
	b.Category = categorize(b.Total)
	return b
}

func capAt(v, cap float64) float64 {
	if v > cap {
		return cap
	}
	return v
}

func categorize(score float64) catalog.ComplexityCategory {
	switch {
	case score < 20:
		return catalog.ComplexitySimple
	case score <= 50:
		return catalog.ComplexityMedium
	default:
		return catalog.ComplexityComplex
	}
}

func countNonBlankLines(body string) int {
	n := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func countDistinctTempTables(clean string) int {
	seen := map[string]bool{}
	for _, m := range tempTableRe.FindAllString(clean, -1) {
		seen[strings.ToLower(m)] = true
	}
	return len(seen)
}

// maxSubqueryDepth walks parenthesis nesting and records the depth of
// every "(" immediately followed by SELECT (ignoring whitespace),
// returning the deepest such level found.
func maxSubqueryDepth(clean string) int {
	depth := 0
	max := 0
	r := []rune(clean)
	for i, c := range r {
		switch c {
		case '(':
			depth++
			rest := string(r[i+1:])
			if selectAheadRe.MatchString(rest) && depth > max {
				max = depth
			}
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return max
}
