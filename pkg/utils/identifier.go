package utils

import "strings"

// BacktickIdentifier quotes a single identifier with backticks, escaping any
// backticks and backslashes it contains. A name that is already quoted is
// returned unchanged.
//
// Examples:
//   - "events" -> "`events`"
//   - "odd`name" -> "`odd\`name`"
//   - "`events`" -> "`events`"
//   - "" -> ""
func BacktickIdentifier(name string) string {
	if name == "" || IsBackticked(name) {
		return name
	}

	escaped := strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(name)
	return "`" + escaped + "`"
}

// IsBackticked reports whether s is a single identifier wrapped in
// backticks.
func IsBackticked(s string) bool {
	if len(s) < 2 || s[0] != '`' || s[len(s)-1] != '`' {
		return false
	}

	inner := strings.ReplaceAll(s[1:len(s)-1], "\\`", "")
	return !strings.Contains(inner, "`")
}
