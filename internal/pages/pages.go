// Package pages resolves textual page range and rotation specifications into
// concrete page numbers. Malformed or out-of-range tokens are dropped
// silently; an empty result is the caller's signal of a bad request.
package pages

import (
	"sort"
	"strconv"
	"strings"
)

// ParseSelection parses a comma-separated range spec ("1-3, 5") into
// ascending, de-duplicated 1-based page numbers within [1, pageCount].
func ParseSelection(spec string, pageCount int) []int {
	resolved := parse(spec, pageCount)
	if len(resolved) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(resolved))
	var unique []int
	for _, p := range resolved {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	sort.Ints(unique)
	return unique
}

// ParseOrder parses a range spec preserving token order. Duplicates are
// allowed, so "3,1,3" yields [3 1 3].
func ParseOrder(spec string, pageCount int) []int {
	return parse(spec, pageCount)
}

func parse(spec string, pageCount int) []int {
	var result []int
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if start, end, ok := strings.Cut(token, "-"); ok {
			lo, err1 := strconv.Atoi(strings.TrimSpace(start))
			hi, err2 := strconv.Atoi(strings.TrimSpace(end))
			if err1 != nil || err2 != nil {
				continue
			}
			// An inverted range is skipped, not an error.
			for p := lo; p <= hi; p++ {
				if p >= 1 && p <= pageCount {
					result = append(result, p)
				}
			}
			continue
		}

		p, err := strconv.Atoi(token)
		if err != nil || p < 1 || p > pageCount {
			continue
		}
		result = append(result, p)
	}
	return result
}

// ParseRotations parses a serialized rotation map ("1:90,3:-90") into
// page → degree-delta entries. Pages outside [1, pageCount], malformed
// pairs and deltas that are not a multiple of 90 are dropped. Repeated
// pages accumulate.
func ParseRotations(spec string, pageCount int) map[int]int {
	rotations := make(map[int]int)
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		pagePart, deltaPart, ok := strings.Cut(token, ":")
		if !ok {
			continue
		}
		page, err1 := strconv.Atoi(strings.TrimSpace(pagePart))
		delta, err2 := strconv.Atoi(strings.TrimSpace(deltaPart))
		if err1 != nil || err2 != nil || page < 1 || page > pageCount || delta%90 != 0 {
			continue
		}
		rotations[page] += delta
	}
	return rotations
}

// ZeroBased converts 1-based page numbers to the 0-based indices the
// document layer consumes.
func ZeroBased(pages []int) []int {
	indices := make([]int, len(pages))
	for i, p := range pages {
		indices[i] = p - 1
	}
	return indices
}
