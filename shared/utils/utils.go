// Package utils holds small generic helpers for map keys and hash display.
// No other package in this module imports it.
package utils

import "sort"

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TruncateHash shortens a hex hash for display, e.g. in CLI log output.
func TruncateHash(hash string, n int) string {
	if n <= 0 || n >= len(hash) {
		return hash
	}
	return hash[:n]
}
