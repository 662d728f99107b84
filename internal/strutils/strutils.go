package strutils

import (
	"sort"
	"strings"
)

// StrListContains looks for a string in a list of strings.
func StrListContains(haystack []string, needle string) bool {
	for _, item := range haystack {
		if item == needle {
			return true
		}
	}
	return false
}

// RemoveDuplicatesStable removes duplicate and empty elements from a slice of
// strings, preserving order (and case) of the original elements. The unique
// check is case-insensitive when caseInsensitive is true.
func RemoveDuplicatesStable(items []string, caseInsensitive bool) []string {
	itemsMap := make(map[string]struct{}, len(items))
	deduplicated := make([]string, 0, len(items))

	for _, item := range items {
		key := strings.TrimSpace(item)
		if caseInsensitive {
			key = strings.ToLower(key)
		}
		if key == "" {
			continue
		}
		if _, ok := itemsMap[key]; ok {
			continue
		}
		itemsMap[key] = struct{}{}
		deduplicated = append(deduplicated, item)
	}
	return deduplicated
}

// ScopeEqual reports whether two space-separated scope strings request the
// same set of scopes. Order and case are irrelevant.
func ScopeEqual(a, b string) bool {
	return strings.Join(normalizeScope(a), " ") == strings.Join(normalizeScope(b), " ")
}

func normalizeScope(scope string) []string {
	fields := strings.Fields(strings.ToLower(scope))
	fields = RemoveDuplicatesStable(fields, false)
	sort.Strings(fields)
	return fields
}
