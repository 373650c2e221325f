// Package strings holds small string-slice helpers for parsing delimited
// configuration values.
package strings

import "strings"

// DedupeAndTrim trims whitespace, drops empty entries and removes duplicates
// while preserving first-seen order. Comma-split environment lists arrive
// with stray spaces and trailing separators; callers get back only usable
// entries.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	kept := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		kept = append(kept, v)
	}
	return kept
}
