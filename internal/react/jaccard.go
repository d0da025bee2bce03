package react

import "strings"

// jaccardSimilarity returns the Jaccard token similarity of two strings:
// the size of the intersection of their lowercased word sets divided by
// the size of their union. Two empty token sets are defined as
// dissimilar (0), since there is nothing to compare.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

var failureMarkers = []string{"error", "failed", "실패", "오류"}

func containsFailureMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range failureMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
