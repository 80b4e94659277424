// Package scoring computes composite similarity scores between a query
// record and a single reference candidate.
package scoring

import "strings"

// ExactMatch returns 1.0 for exact match, 0.0 otherwise
func ExactMatch(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return 0.0
}

// Levenshtein calculates a similarity between 0.0 and 1.0 from the edit
// distance of two strings.
func Levenshtein(a, b string) float64 {
	distance := LevenshteinDistance(a, b)
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two-row dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// TokenSetRatio compares two strings as sets of whitespace tokens, ignoring
// duplicated and reordered words. The score is the best Levenshtein
// similarity among the sorted intersection and each side's remainder,
// which makes "acme corp" vs "corp acme west" score high.
func TokenSetRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}

	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	var common, onlyA, onlyB []string
	for _, tok := range tokensA {
		if containsToken(tokensB, tok) {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for _, tok := range tokensB {
		if !containsToken(tokensA, tok) {
			onlyB = append(onlyB, tok)
		}
	}

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Levenshtein(withA, withB)
	if base != "" {
		if s := Levenshtein(base, withA); s > best {
			best = s
		}
		if s := Levenshtein(base, withB); s > best {
			best = s
		}
	}
	return best
}

// tokenSet returns the sorted unique whitespace tokens of s.
func tokenSet(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	// Insertion sort keeps the comparison order stable
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}
