package planner

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `_`, `\_`, `%`, `\%`)

// EscapeLike backslash-escapes the LIKE metacharacters in s.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
