// Package naming derives table and column names.
package naming

import (
	"strings"
	"unicode"
)

// CamelToSnake converts a Go identifier to a column name. Acronyms stay
// together, so "UserID" becomes "user_id" and "HTTPServer" "http_server".
func CamelToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 && wordStart(runes, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// wordStart reports whether the upper-case rune at i opens a new word.
func wordStart(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

// ForeignKey returns the default column a child table uses to point at
// table: "users" gives "users_id". The table name is not singularized.
func ForeignKey(table string) string {
	return table + "_id"
}
