package domain

import "strings"

// NormalizeName lowercases and collapses whitespace so that naming noise
// ("Cafe  Luz", " cafe luz ") compares equal. Used for candidate matching,
// competitor de-duplication and cache keys.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchCandidate picks the best index in names for the query:
//
//  1. exact case-insensitive match
//  2. substring containment, either direction
//  3. the first candidate, flagged as a closest match
//
// Returns -1 only for an empty list. The first-candidate fallback is
// load-bearing: provider name variants must not break the pipeline, so
// availability wins over precision.
func MatchCandidate(query string, names []string) (idx int, closest bool) {
	if len(names) == 0 {
		return -1, false
	}
	q := NormalizeName(query)
	for i, n := range names {
		if NormalizeName(n) == q {
			return i, false
		}
	}
	for i, n := range names {
		nn := NormalizeName(n)
		if strings.Contains(nn, q) || strings.Contains(q, nn) {
			return i, false
		}
	}
	return 0, true
}
