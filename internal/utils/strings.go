// Package utils holds small helpers shared by folio's handlers and services.
package utils

import "strings"

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Duplicates keep their first position. Returns nil for empty/whitespace-only input.
// Used for list-valued query parameters such as ?symbols= and ?types=.
func ParseCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
