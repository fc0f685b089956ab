package diff

import (
	"strings"

	"github.com/dbforensic/dbforensic/catalog"
)

// integerRank and floatRank give a coarse, name-based size ordering
// for the common provider type names, so "int -> bigint" classifies as
// widening without needing real catalog metadata about storage width.
var integerRank = map[string]int{
	"tinyint":  1,
	"smallint": 2,
	"int2":     2,
	"int":      3,
	"integer":  3,
	"int4":     3,
	"bigint":   4,
	"int8":     4,
}

var floatRank = map[string]int{
	"real":             1,
	"float4":           1,
	"float":             2,
	"double precision": 2,
	"float8":           2,
}

func baseTypeName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// classifyTypeChange returns "widening", "narrowing" or "kind_change",
// plus ok=false when the engine cannot classify confidently (same
// kind, no rankable dimension differs) — the caller attaches a
// DiffMismatchWarning in that case.
func classifyTypeChange(before, after catalog.DataType) (classification string, ok bool) {
	if before.Kind != after.Kind {
		return "kind_change", true
	}

	switch before.Kind {
	case catalog.TypeKindInteger:
		br, bok := integerRank[baseTypeName(before.Raw)]
		ar, aok := integerRank[baseTypeName(after.Raw)]
		if bok && aok && br != ar {
			return rankDirection(br, ar), true
		}
	case catalog.TypeKindFloat:
		br, bok := floatRank[baseTypeName(before.Raw)]
		ar, aok := floatRank[baseTypeName(after.Raw)]
		if bok && aok && br != ar {
			return rankDirection(br, ar), true
		}
	case catalog.TypeKindString, catalog.TypeKindBinary:
		if c, ok := classifyOptionalInt(before.Length, after.Length); ok {
			return c, true
		}
	case catalog.TypeKindDecimal:
		if c, ok := classifyOptionalInt(before.Precision, after.Precision); ok {
			return c, true
		}
		if c, ok := classifyOptionalInt(before.Scale, after.Scale); ok {
			return c, true
		}
	}

	if before.Raw == after.Raw {
		// Shouldn't be reached by callers (they only classify when
		// something differs), but guards against a false mismatch.
		return "widening", true
	}
	return "", false
}

func rankDirection(before, after int) string {
	if after > before {
		return "widening"
	}
	return "narrowing"
}

func classifyOptionalInt(before, after *int) (string, bool) {
	if before == nil || after == nil || *before == *after {
		return "", false
	}
	if *after > *before {
		return "widening", true
	}
	return "narrowing", true
}
