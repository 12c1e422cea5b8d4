// Package sanitize turns page titles into filesystem-safe names.
package sanitize

import (
	"regexp"
	"strings"
)

const maxRunes = 150

var (
	illegal    = regexp.MustCompile(`[\\/:*?"<>|]+`)
	whitespace = regexp.MustCompile(`[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]+`)
)

// Filename replaces path separators and characters illegal on common
// filesystems with "_", collapses whitespace (Unicode spaces included), and
// truncates to 150 runes.
// Distinct titles may map to the same name.
func Filename(raw string) string {
	name := illegal.ReplaceAllString(raw, "_")
	name = strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
	if r := []rune(name); len(r) > maxRunes {
		name = string(r[:maxRunes])
	}
	return strings.TrimRight(name, " ")
}
