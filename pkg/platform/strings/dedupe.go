// Package strings cleans up string sets taken from external input, such as
// the role claims on an access token.
package strings

import (
	"strings"
)

// DedupeAndTrim trims whitespace from each element and drops empties and
// repeats, keeping first-seen order.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower additionally lowercases each element, so "Screener"
// and "screener" collapse to one entry.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, canon func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		c := canon(v)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
