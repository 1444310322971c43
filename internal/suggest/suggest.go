// Package suggest ranks near-miss names for "did you mean" advice.
package suggest

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Rank returns up to max candidates close to target, nearest first. A
// candidate qualifies when its edit distance is at most a third of the
// longer string's length, or when one name contains the other. Ties are
// broken alphabetically. max <= 0 means no limit.
func Rank(target string, candidates []string, max int) []string {
	type scored struct {
		name string
		dist int
	}
	seen := make(map[string]struct{}, len(candidates))
	var matches []scored
	lowerTarget := strings.ToLower(target)
	for _, c := range candidates {
		if c == target || c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}

		dist := levenshtein.Distance(lowerTarget, strings.ToLower(c), nil)
		longest := len(c)
		if len(target) > longest {
			longest = len(target)
		}
		lower := strings.ToLower(c)
		contains := len(target) > 1 && (strings.Contains(lower, lowerTarget) || strings.Contains(lowerTarget, lower))
		if dist*3 > longest && !contains {
			continue
		}
		matches = append(matches, scored{name: c, dist: dist})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].name < matches[j].name
	})
	if max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}
