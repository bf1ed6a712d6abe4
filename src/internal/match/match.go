// Package match picks a single bibliographic record for a file out of the
// candidates its ISBNs produced.
package match

import (
	"fmt"
	"path/filepath"
	"strings"

	"isbnscan/src/internal/catalog"
)

// Selector chooses one record from candidates for the file named filename.
// Implementations must break ties in favour of the earliest candidate.
type Selector interface {
	Select(candidates []catalog.Record, filename string) (catalog.Record, bool)
}

// Strategy names accepted by ByName.
const (
	StrategyEditDistance = "edit-distance"
	StrategyFirst        = "first"
	StrategyLatestYear   = "latest-year"
)

// ByName returns the selector registered under name. An empty name selects
// the edit-distance strategy.
func ByName(name string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyEditDistance:
		return EditDistance{}, nil
	case StrategyFirst:
		return First{}, nil
	case StrategyLatestYear:
		return LatestYear{}, nil
	default:
		return nil, fmt.Errorf("match: unknown selector %q", name)
	}
}

// EditDistance picks the candidate whose title is closest to the bare file
// name (no directory, no extension).
type EditDistance struct{}

// Select returns the candidate with the smallest edit distance between its
// title and filename. Ties go to the earlier candidate.
func (EditDistance) Select(candidates []catalog.Record, filename string) (catalog.Record, bool) {
	switch len(candidates) {
	case 0:
		return catalog.Record{}, false
	case 1:
		return candidates[0], true
	}
	name := BareName(filename)
	best, bestDist := 0, Distance(candidates[0].Title, name)
	for i := 1; i < len(candidates); i++ {
		if d := Distance(candidates[i].Title, name); d < bestDist {
			best, bestDist = i, d
		}
	}
	return candidates[best], true
}

// First picks the first candidate.
type First struct{}

// Select returns candidates[0].
func (First) Select(candidates []catalog.Record, _ string) (catalog.Record, bool) {
	if len(candidates) == 0 {
		return catalog.Record{}, false
	}
	return candidates[0], true
}

// LatestYear picks the candidate with the most recent known publication year.
type LatestYear struct{}

// Select returns the candidate with the highest HighYear, the earliest one
// on a tie.
func (LatestYear) Select(candidates []catalog.Record, _ string) (catalog.Record, bool) {
	if len(candidates) == 0 {
		return catalog.Record{}, false
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].HighYear > candidates[best].HighYear {
			best = i
		}
	}
	return candidates[best], true
}

// BareName strips the directory and the extension from path.
func BareName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Distance returns the Levenshtein distance between a and b, compared byte
// by byte and case sensitive.
func Distance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	costs := make([]int, len(b)+1)
	for j := range costs {
		costs[j] = j
	}
	for i := 0; i < len(a); i++ {
		costs[0] = i + 1
		corner := i
		for j := 0; j < len(b); j++ {
			upper := costs[j+1]
			if a[i] == b[j] {
				costs[j+1] = corner
			} else {
				costs[j+1] = 1 + min(upper, corner, costs[j])
			}
			corner = upper
		}
	}
	return costs[len(b)]
}
