package aggregate

import (
	"sort"

	"finlens/internal/core"
)

// Categories returns the sorted set of non-empty category names.
func Categories(txs []core.Transaction) []string {
	seen := make(map[string]struct{})
	for _, tx := range txs {
		if tx.Category != "" {
			seen[tx.Category] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Tags returns the sorted set of non-empty tags across all rows.
func Tags(txs []core.Transaction) []string {
	seen := make(map[string]struct{})
	for _, tx := range txs {
		for _, tag := range tx.Tags {
			if tag != "" {
				seen[tag] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
