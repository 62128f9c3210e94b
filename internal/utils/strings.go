package utils

import "strings"

// ParseCSV splits a comma-separated string into trimmed, non-empty values.
// Returns nil when nothing is left, so callers can fall back to a default.
func ParseCSV(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// NormalizeTicker returns the canonical (trimmed, upper-case) form of a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
