package diff

import (
	"regexp"
	"strings"
)

var (
	ddBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	ddLineComment  = regexp.MustCompile(`--[^\n]*`)
	ddWhitespace   = regexp.MustCompile(`\s+`)
)

// normalizeKeywords lists the keywords normalizeBody lowercases on
// whole-word matches. Matching is not token-aware, so a keyword word
// inside a string literal or quoted identifier is lowercased too; all
// other text keeps its original case.
var normalizeKeywords = []string{
	"SELECT", "FROM", "WHERE", "JOIN", "INNER", "LEFT", "RIGHT", "FULL",
	"CROSS", "ON", "GROUP", "BY", "ORDER", "HAVING", "INSERT", "INTO",
	"UPDATE", "DELETE", "SET", "VALUES", "AND", "OR", "NOT", "NULL",
	"AS", "WITH", "MERGE", "EXEC", "EXECUTE", "CALL", "CASE", "WHEN",
	"THEN", "ELSE", "END", "DECLARE", "CURSOR", "IF", "WHILE", "BEGIN",
	"RETURN", "CREATE", "ALTER", "DROP", "TABLE", "VIEW", "PROCEDURE",
	"FUNCTION", "DISTINCT", "UNION", "ALL", "LIMIT", "OFFSET", "ASC",
	"DESC", "IS", "IN", "EXISTS", "BETWEEN", "LIKE",
}

var keywordRe = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(normalizeKeywords))
	for i, kw := range normalizeKeywords {
		res[i] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return res
}()

// normalizeBody strips comments, collapses whitespace and lowercases
// recognized keywords, : "compare bodies after
// normalization (strip comments, collapse whitespace, lowercase
// keywords)".
func normalizeBody(body string) string {
	s := ddBlockComment.ReplaceAllString(body, " ")
	s = ddLineComment.ReplaceAllString(s, " ")
	for i, re := range keywordRe {
		s = re.ReplaceAllString(s, strings.ToLower(normalizeKeywords[i]))
	}
	s = ddWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
